package cover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbancover/internal/classify"
	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/geometry/geomtest"
	"github.com/sells-group/urbancover/internal/raster"
	"github.com/sells-group/urbancover/internal/raster/rastertest"
	"github.com/sells-group/urbancover/internal/rasterize"
	"github.com/sells-group/urbancover/internal/reconcile"
	"github.com/sells-group/urbancover/internal/stac"
	"github.com/sells-group/urbancover/internal/store"
	"github.com/sells-group/urbancover/internal/tilegrid"
)

var utm30 = geometry.SpatialRef{EPSG: 32630}

const (
	itemID    = "S2B_30TVK_20210612_0_L2A"
	sclPath   = "https://tiles.example.com/30/T/VK/SCL.tif"
	luPath    = "s3://landuse/sigpac.tif"
	outFolder = "out"
)

// degreesToMetres maps test footprints (in thousandths of a degree) onto
// the 10 m test grid.
func degreesToMetres(_, _ geometry.SpatialRef, x, y float64) (float64, float64, error) {
	return x * 1000, y * 1000, nil
}

func makeItem(t *testing.T, x0, y0, x1, y1 float64) *stac.Item {
	t.Helper()
	data := fmt.Sprintf(`{
		"type": "Feature",
		"id": %q,
		"geometry": {"type": "Polygon", "coordinates": [[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]},
		"properties": {
			"sentinel:product_id": "S2B_MSIL2A_20210612",
			"platform": "sentinel-2b",
			"sentinel:utm_zone": 30,
			"sentinel:latitude_band": "T",
			"sentinel:grid_square": "VK",
			"eo:cloud_cover": 25
		},
		"assets": {"SCL": {"href": %q}}
	}`, itemID, x0, y0, x1, y0, x1, y1, x0, y1, x0, y0, sclPath)
	it, err := stac.ParseItem([]byte(data))
	require.NoError(t, err)
	return it
}

func layer(t *testing.T, originX, originY float64, sr geometry.SpatialRef, rows [][]float64) rastertest.Layer {
	t.Helper()
	g, err := raster.GridFromRows(rows)
	require.NoError(t, err)
	return rastertest.Layer{
		Info: raster.Info{
			Width:        g.Width,
			Height:       g.Height,
			GeoTransform: raster.NorthUp(originX, originY, 10, 10),
			SpatialRef:   sr,
		},
		Grid: g,
	}
}

var sclRows = [][]float64{
	{4, 4, 1, 1},
	{4, 4, 1, 1},
	{2, 2, 2, 2},
	{2, 2, 2, 2},
}

var urbanRows = [][]float64{
	{0, 0, 0, 0},
	{0, 0, 0, 0},
	{0, 0, 0, 0},
	{0, 0, 0, 0},
}

func win(left, top, right, bottom int) raster.Window {
	return raster.Window{Left: left, Top: top, Right: right, Bottom: bottom}
}

type fixture struct {
	proc   *Processor
	reader *rastertest.Reader
	store  *store.LocalStore
	engine *geomtest.RectEngine
}

func newFixture(t *testing.T, tiles ...string) *fixture {
	t.Helper()
	reader := rastertest.NewReader().
		Add(sclPath, layer(t, 0, 40, utm30, sclRows)).
		Add(luPath, layer(t, 0, 40, utm30, urbanRows))
	st := store.NewLocal(t.TempDir())
	eng := &geomtest.RectEngine{Project: degreesToMetres}
	if len(tiles) == 0 {
		tiles = []string{"30TVK"}
	}
	return &fixture{
		proc: &Processor{
			Geometry:   eng,
			Raster:     reader,
			Rasterizer: rasterize.Scanline{},
			Tiles:      tilegrid.Static(tiles),
			Store:      st,
			Options: Options{
				LandUsePath:  luPath,
				OutputFolder: outFolder,
				GridRef:      utm30,
				Codes:        classify.DefaultCodes(),
			},
		},
		reader: reader,
		store:  st,
		engine: eng,
	}
}

func (f *fixture) putNeighbour(t *testing.T, grid string, extent geometry.Envelope) {
	t.Helper()
	id, err := reconcile.SiblingItemID(itemID, grid)
	require.NoError(t, err)
	doc := fmt.Sprintf(`{"id":%q,"land_use":{"urban_pixels":1,"valid_urban_pixels":1,"urban_cover":100,"aoi_extent":[%g,%g,%g,%g]}}`,
		id, extent.MinX, extent.MinY, extent.MaxX, extent.MaxY)
	path := filepath.Join(f.store.Root, outFolder, id+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func (f *fixture) document(t *testing.T) stac.LandUse {
	t.Helper()
	data, err := f.store.Get(context.Background(), store.DocumentKey(outFolder, itemID))
	require.NoError(t, err)
	lu, err := stac.ParseLandUse(data)
	require.NoError(t, err)
	return lu
}

func TestProcess_FullFootprint(t *testing.T) {
	f := newFixture(t)

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, MessageOK, out.Message)
	assert.Equal(t, 200, out.StatusCode())
	assert.NotEmpty(t, out.InvocationID)
	// The four SCL pixels with code 1 are not cloud-valid, so 12 of 16 urban
	// pixels count. The published worked example states 16 valid and 100%,
	// which contradicts its own masking rule; 12 and 75% are correct.
	assert.Equal(t, 16, out.Stats.UrbanPixels)
	assert.Equal(t, 12, out.Stats.ValidUrbanPixels)
	assert.InDelta(t, 75.0, out.Stats.UrbanCover, 1e-9)
	assert.Equal(t, geometry.NewEnvelope(0, 0, 40, 40), out.AOIExtent)

	lu := f.document(t)
	assert.Equal(t, 16, lu.UrbanPixels)
	assert.Equal(t, 12, lu.ValidUrbanPixels)
	assert.Equal(t, geometry.NewEnvelope(0, 0, 40, 40), lu.AOIExtent)

	assert.Equal(t, 2, f.reader.Opened())
	assert.Equal(t, 0, f.reader.Live())
	assert.Equal(t, []raster.Window{win(0, 0, 4, 4), win(0, 0, 4, 4)}, f.reader.Reads())
}

func TestProcess_PartialFootprint(t *testing.T) {
	f := newFixture(t)

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.02, 0.04))
	require.NoError(t, err)

	assert.Equal(t, 8, out.Stats.UrbanPixels)
	assert.Equal(t, 8, out.Stats.ValidUrbanPixels)
	assert.Equal(t, 100.0, out.Stats.UrbanCover)
	assert.Equal(t, 0, f.reader.Live())
}

func TestProcess_NoOverlap(t *testing.T) {
	f := newFixture(t)
	f.reader.Add(luPath, layer(t, 1000, 1040, utm30, urbanRows))

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)

	assert.Equal(t, StatusNoOverlap, out.Status)
	assert.Equal(t, MessageNoOverlap, out.Message)
	assert.Equal(t, 200, out.Response().StatusCode)
	assert.Equal(t, "Input data do not intersect", out.Response().Body)
	assert.Zero(t, out.Stats)
	assert.Empty(t, f.reader.Reads())
	assert.Equal(t, 0, f.reader.Live())

	ok, err := f.store.Exists(context.Background(), store.DocumentKey(outFolder, itemID))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcess_SubtractsNeighbour(t *testing.T) {
	f := newFixture(t, "30TVK", "30TWK", "30TVL")
	f.putNeighbour(t, "30TWK", geometry.NewEnvelope(20, 0, 100, 40))

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)

	assert.Equal(t, []string{"30TWK"}, out.Neighbours)
	assert.Equal(t, geometry.NewEnvelope(0, 0, 20, 40), out.AOIExtent)
	assert.Equal(t, 8, out.Stats.UrbanPixels)
	assert.Equal(t, 8, out.Stats.ValidUrbanPixels)
	assert.Equal(t, []raster.Window{win(0, 0, 2, 4), win(0, 0, 2, 4)}, f.reader.Reads())

	// The persisted extent is the whole cloud-mask envelope.
	assert.Equal(t, geometry.NewEnvelope(0, 0, 40, 40), f.document(t).AOIExtent)
	assert.Equal(t, 0, f.reader.Live())
}

func TestProcess_OwnRecordIgnored(t *testing.T) {
	f := newFixture(t, "30TVK")
	f.putNeighbour(t, "30TVK", geometry.NewEnvelope(0, 0, 40, 40))

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)
	assert.Empty(t, out.Neighbours)
	assert.Equal(t, 16, out.Stats.UrbanPixels)
	assert.Equal(t, 0, f.engine.Differences)
}

func TestProcess_OwnRecordIgnoredWithoutGridProperties(t *testing.T) {
	f := newFixture(t, "30TVK")
	f.putNeighbour(t, "30TVK", geometry.NewEnvelope(0, 0, 40, 40))

	data := fmt.Sprintf(`{
		"id": %q,
		"geometry": {"type": "Polygon", "coordinates": [[[0,0],[0.04,0],[0.04,0.04],[0,0.04],[0,0]]]},
		"properties": {"mgrs:utm_zone": 30},
		"assets": {"SCL": {"href": %q}}
	}`, itemID, sclPath)
	item, err := stac.ParseItem([]byte(data))
	require.NoError(t, err)

	out, err := f.proc.Process(context.Background(), item)
	require.NoError(t, err)
	assert.Empty(t, out.Neighbours)
	assert.Equal(t, 16, out.Stats.UrbanPixels)
	assert.Equal(t, 0, f.engine.Differences)
	assert.Equal(t, 16, f.document(t).UrbanPixels)
}

func TestProcess_EmptyResidual(t *testing.T) {
	f := newFixture(t, "30TVK", "30TWK")
	f.putNeighbour(t, "30TWK", geometry.NewEnvelope(-10, -10, 50, 50))

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)

	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, classify.Statistics{}, out.Stats)
	assert.True(t, out.AOIExtent.Empty())
	assert.Empty(t, f.reader.Reads())
	assert.Equal(t, 0, f.reader.Live())

	lu := f.document(t)
	assert.Equal(t, 0, lu.UrbanPixels)
	assert.Equal(t, 0.0, lu.UrbanCover)
}

func TestProcess_ResidualClampedToLandUse(t *testing.T) {
	f := newFixture(t)
	// Land use covers only the top half of the cloud mask.
	f.reader.Add(luPath, layer(t, 0, 40, utm30, [][]float64{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}))

	out, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	require.NoError(t, err)

	assert.Equal(t, geometry.NewEnvelope(0, 20, 40, 40), out.AOIExtent)
	assert.Equal(t, 8, out.Stats.UrbanPixels)
	assert.Equal(t, 4, out.Stats.ValidUrbanPixels)
	assert.Equal(t, 50.0, out.Stats.UrbanCover)
}

func TestProcess_NeighbourFetchError(t *testing.T) {
	f := newFixture(t, "30TVK", "30TWK")
	id, err := reconcile.SiblingItemID(itemID, "30TWK")
	require.NoError(t, err)
	path := filepath.Join(f.store.Root, outFolder, id+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"broken"}`), 0o644))

	_, err = f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	var nf *reconcile.NeighborFetchError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "30TWK", nf.Name)
	assert.Equal(t, 0, f.reader.Live())

	ok, err := f.store.Exists(context.Background(), store.DocumentKey(outFolder, itemID))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProcess_RasterOpenError(t *testing.T) {
	f := newFixture(t)
	f.proc.Options.LandUsePath = "s3://landuse/missing.tif"

	_, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	var oe *raster.RasterOpenError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "s3://landuse/missing.tif", oe.Path)
	assert.Equal(t, 1, f.reader.Opened())
	assert.Equal(t, 0, f.reader.Live())
}

func TestProcess_DatasetCRSMismatch(t *testing.T) {
	f := newFixture(t)
	f.reader.Add(luPath, layer(t, 0, 40, geometry.SpatialRef{EPSG: 25830}, urbanRows))

	_, err := f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	var crs *geometry.CRSError
	require.ErrorAs(t, err, &crs)
	assert.Equal(t, 25830, crs.EPSG)
	assert.Equal(t, 0, f.reader.Live())
}

func TestProcess_ShapeMismatch(t *testing.T) {
	f := newFixture(t)
	// A 20 m land-use grid yields a smaller window than the 10 m cloud mask.
	g, err := raster.GridFromRows([][]float64{{0, 0}, {0, 0}})
	require.NoError(t, err)
	f.reader.Add(luPath, rastertest.Layer{
		Info: raster.Info{Width: 2, Height: 2, GeoTransform: raster.NorthUp(0, 40, 20, 20), SpatialRef: utm30},
		Grid: g,
	})

	_, err = f.proc.Process(context.Background(), makeItem(t, 0, 0, 0.04, 0.04))
	var se *classify.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, f.reader.Live())
}
