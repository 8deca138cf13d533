package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/geometry/geomtest"
)

var utm30 = geometry.SpatialRef{EPSG: 32630}

const itemID = "S2B_30TVK_20210612_0_L2A"

type fakeSource struct {
	mu      sync.Mutex
	records map[string]*ProcessedTileRecord
	errs    map[string]error
	lookups []string
}

func (f *fakeSource) Lookup(_ context.Context, id string) (*ProcessedTileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, id)
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	return f.records[id], nil
}

func record(grid string, e geometry.Envelope) (string, *ProcessedTileRecord) {
	id, _ := SiblingItemID(itemID, grid)
	return id, &ProcessedTileRecord{AOIExtent: e}
}

func newSource(entries map[string]geometry.Envelope) *fakeSource {
	src := &fakeSource{records: map[string]*ProcessedTileRecord{}}
	for grid, e := range entries {
		id, rec := record(grid, e)
		src.records[id] = rec
	}
	return src
}

func TestSiblingItemID(t *testing.T) {
	got, err := SiblingItemID(itemID, "30TWK")
	require.NoError(t, err)
	assert.Equal(t, "S2B_30TWK_20210612_0_L2A", got)

	_, err = SiblingItemID("S2B_30", "30TWK")
	assert.Error(t, err)
}

func TestReconcile_NoNeighbours(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: newSource(nil)}

	res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TVK", "30TWK", "30TVL"})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.InDelta(t, 10000, res.Residual.Area(), 1e-9)
}

func TestReconcile_SubtractsIntersectingNeighbours(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	src := newSource(map[string]geometry.Envelope{
		"30TWK": geometry.NewEnvelope(80, 0, 200, 100),
		"30TVL": geometry.NewEnvelope(0, 90, 100, 200),
		"30TWL": geometry.NewEnvelope(500, 500, 600, 600),
	})
	eng := &geomtest.RectEngine{}
	r := &Reconciler{Engine: eng, Records: src}

	res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TVK", "30TWK", "30TVL", "30TWL"})
	require.NoError(t, err)

	assert.Equal(t, []string{"30TWK", "30TVL"}, res.Applied)
	assert.Equal(t, 2, eng.Differences)
	assert.InDelta(t, 80*90, res.Residual.Area(), 1e-9)
	assert.Equal(t, geometry.NewEnvelope(0, 0, 80, 90), res.Residual.Envelope())
}

func TestReconcile_SelfTileExcluded(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	src := newSource(map[string]geometry.Envelope{
		"30TVK": geometry.NewEnvelope(0, 0, 100, 100),
	})
	r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: src}

	res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TVK"})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Empty(t, src.lookups)
	assert.InDelta(t, 10000, res.Residual.Area(), 1e-9)
}

func TestReconcile_SelfTileExcludedByItemID(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	src := newSource(map[string]geometry.Envelope{
		"30TVK": geometry.NewEnvelope(0, 0, 100, 100),
		"30TWK": geometry.NewEnvelope(500, 500, 600, 600),
	})
	r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: src}

	// ownGrid built from missing item properties does not match any grid name.
	res, err := r.Reconcile(context.Background(), aoi, itemID, "0", []string{"30TVK", "30TWK"})
	require.NoError(t, err)

	assert.Empty(t, res.Applied)
	assert.Equal(t, []string{"S2B_30TWK_20210612_0_L2A"}, src.lookups)
	assert.InDelta(t, 10000, res.Residual.Area(), 1e-9)
}

func TestReconcile_OrderIndependent(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	extents := map[string]geometry.Envelope{
		"30TWK": geometry.NewEnvelope(70, -10, 130, 40),
		"30TVL": geometry.NewEnvelope(-10, 60, 50, 120),
		"30TWL": geometry.NewEnvelope(30, 30, 60, 80),
		"30TUK": geometry.NewEnvelope(-20, -20, 10, 10),
	}
	names := []string{"30TWK", "30TVL", "30TWL", "30TUK"}

	var areas []float64
	for _, perm := range permutations(names) {
		r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: newSource(extents)}
		res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", perm)
		require.NoError(t, err)
		areas = append(areas, res.Residual.Area())
	}
	require.Len(t, areas, 24)
	for _, a := range areas[1:] {
		assert.InDelta(t, areas[0], a, 1e-6)
	}
	assert.Less(t, areas[0], 10000.0)
}

func TestReconcile_FullySubtracted(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	src := newSource(map[string]geometry.Envelope{
		"30TWK": geometry.NewEnvelope(-50, -50, 150, 150),
		"30TVL": geometry.NewEnvelope(0, 0, 10, 10),
	})
	eng := &geomtest.RectEngine{}
	r := &Reconciler{Engine: eng, Records: src}

	res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TWK", "30TVL"})
	require.NoError(t, err)
	assert.True(t, res.Residual.Empty())
	assert.Equal(t, 0.0, res.Residual.Area())
	assert.Equal(t, []string{"30TWK"}, res.Applied)
	assert.Equal(t, 1, eng.Differences)
}

func TestReconcile_ResidualIsSubset(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	src := newSource(map[string]geometry.Envelope{
		"30TWK": geometry.NewEnvelope(40, 40, 60, 60),
	})
	r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: src}

	res, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TWK"})
	require.NoError(t, err)

	outer := aoi.Envelope()
	for _, part := range geomtest.Rects(res.Residual) {
		assert.Equal(t, part, part.Clamp(outer))
	}
	assert.InDelta(t, 10000-400, res.Residual.Area(), 1e-9)
}

func TestReconcile_FetchErrorPropagates(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, utm30)
	id, _ := SiblingItemID(itemID, "30TWK")
	src := &fakeSource{errs: map[string]error{id: errors.New("corrupt document")}}
	r := &Reconciler{Engine: &geomtest.RectEngine{}, Records: src}

	_, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TWK"})
	require.Error(t, err)

	var nf *NeighborFetchError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "30TWK", nf.Name)
	assert.Equal(t, id, nf.ItemID)
	assert.ErrorContains(t, err, "corrupt document")
}

func TestReconcile_CRSMismatch(t *testing.T) {
	aoi := geometry.BBoxPolygon(0, 0, 100, 100, geometry.WGS84)
	src := newSource(map[string]geometry.Envelope{
		"30TWK": geometry.NewEnvelope(0, 0, 10, 10),
	})
	r := &Reconciler{Engine: &failingEngine{}, Records: src}

	_, err := r.Reconcile(context.Background(), aoi, itemID, "30TVK", []string{"30TWK"})
	var crs *geometry.CRSError
	assert.ErrorAs(t, err, &crs)
}

type failingEngine struct{ geomtest.RectEngine }

func (f *failingEngine) Intersects(a, _ geometry.Geometry) (bool, error) {
	return false, &geometry.CRSError{EPSG: a.SpatialRef().EPSG, Other: 32630}
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := make([]string, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}
