package tilegrid

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/geometry"
)

// DefaultNameField is the attribute holding the tile name in the
// Sentinel-2 grid shapefile.
const DefaultNameField = "Name"

// Tile is one cell of the tiling grid.
type Tile struct {
	Name      string
	Footprint geometry.Geometry
}

// Grid is a tiling grid loaded into memory.
type Grid struct {
	Tiles []Tile
}

var _ Source = (*Grid)(nil)

// LoadShapefile reads the tiling grid from a polygon shapefile in WGS84.
// Records without a name or without a polygon are skipped.
func LoadShapefile(path, nameField string) (*Grid, error) {
	if nameField == "" {
		nameField = DefaultNameField
	}
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "tilegrid: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := -1
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), nameField) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, eris.Errorf("tilegrid: shapefile %s has no %s field", path, nameField)
	}

	grid := &Grid{}
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
		poly, ok := shape.(*shp.Polygon)
		if !ok || name == "" {
			skipped++
			continue
		}
		fp, err := geometry.FromT(polygonParts(poly), geometry.WGS84)
		if err != nil || fp.Empty() {
			zap.L().Debug("tilegrid: skipping malformed tile", zap.Int("record", n), zap.Error(err))
			skipped++
			continue
		}
		grid.Tiles = append(grid.Tiles, Tile{Name: name, Footprint: fp})
	}

	zap.L().Debug("tilegrid: loaded shapefile",
		zap.String("path", path),
		zap.Int("tiles", len(grid.Tiles)),
		zap.Int("skipped", skipped),
	)
	return grid, nil
}

// Siblings returns, in grid order, the tiles whose bounds intersect the
// footprint's bounds.
func (g *Grid) Siblings(_ context.Context, footprint geometry.Geometry) ([]string, error) {
	if footprint.SpatialRef() != geometry.WGS84 {
		return nil, &geometry.CRSError{EPSG: footprint.SpatialRef().EPSG, Other: geometry.WGS84.EPSG}
	}
	env := footprint.Envelope()
	var out []string
	for _, t := range g.Tiles {
		if t.Footprint.Envelope().Intersects(env) {
			out = append(out, t.Name)
		}
	}
	return out, nil
}

// polygonParts turns every shapefile part into its own polygon. Grid cells
// have no holes.
func polygonParts(p *shp.Polygon) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		poly := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("tilegrid: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
	return mp
}
