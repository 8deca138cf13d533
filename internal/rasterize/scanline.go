package rasterize

import (
	"context"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/geometry"
)

// edge is a polygon ring segment in pixel coordinates.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64
}

// Scanline is a pure-Go Rasterizer. A pixel is Inside when its center lies
// inside the geometry under the even-odd rule over all rings, so holes and
// multipolygon parts need no special casing. Centers exactly on a boundary
// follow a half-open convention: left and top edges are in, right and
// bottom edges are out.
type Scanline struct{}

var _ Rasterizer = Scanline{}

func (Scanline) Burn(_ context.Context, g geometry.Geometry, spec GridSpec) (*Mask, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if g.SpatialRef() != spec.SpatialRef {
		return nil, &geometry.CRSError{EPSG: g.SpatialRef().EPSG, Other: spec.SpatialRef.EPSG}
	}

	mask := NewMask(spec.Width, spec.Height)
	if g.Empty() || spec.Width == 0 || spec.Height == 0 {
		zap.L().Debug("rasterize: nothing to burn", zap.Bool("empty_geometry", g.Empty()))
		return mask, nil
	}

	edges := pixelEdges(g, spec)
	crossings := make([]float64, 0, 16)
	for row := 0; row < spec.Height; row++ {
		yc := float64(row) + 0.5
		crossings = crossings[:0]
		for _, e := range edges {
			if (e.y0 <= yc && yc < e.y1) || (e.y1 <= yc && yc < e.y0) {
				crossings = append(crossings, e.x0+(yc-e.y0)*e.dxdy)
			}
		}
		slices.Sort(crossings)
		for i := 0; i+1 < len(crossings); i += 2 {
			// Columns whose center c+0.5 lies in [xa, xb).
			first := max(int(math.Ceil(crossings[i]-0.5)), 0)
			last := min(int(math.Ceil(crossings[i+1]-0.5)), spec.Width)
			base := row * spec.Width
			for col := first; col < last; col++ {
				mask.Data[base+col] = Inside
			}
		}
	}
	return mask, nil
}

// pixelEdges converts every non-horizontal ring segment into pixel space,
// where row 0 is the top of the grid. Rings are treated as closed whether or
// not the last vertex repeats the first.
func pixelEdges(g geometry.Geometry, spec GridSpec) []edge {
	var edges []edge
	for _, ring := range g.Rings() {
		for i := range ring {
			j := (i + 1) % len(ring)
			x0 := (ring[i][0] - spec.OriginX) / spec.ResX
			y0 := (spec.OriginY - ring[i][1]) / spec.ResY
			x1 := (ring[j][0] - spec.OriginX) / spec.ResX
			y1 := (spec.OriginY - ring[j][1]) / spec.ResY
			if y0 == y1 {
				continue
			}
			edges = append(edges, edge{x0: x0, y0: y0, x1: x1, y1: y1, dxdy: (x1 - x0) / (y1 - y0)})
		}
	}
	return edges
}
