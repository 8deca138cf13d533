// Package geomtest provides a pure-Go geometry.Engine for tests. It performs
// exact set algebra on unions of axis-aligned rectangles, which is all the
// tile reconciliation ever feeds it: raster envelopes and persisted
// neighbour extents.
package geomtest

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/urbancover/internal/geometry"
)

// ProjectFunc maps one vertex between references.
type ProjectFunc func(from, to geometry.SpatialRef, x, y float64) (float64, float64, error)

// RectEngine treats every polygon part as the rectangle of its bounds.
// Transform moves vertices with Project and keeps arbitrary shapes, so
// footprints survive reprojection intact.
type RectEngine struct {
	Project ProjectFunc

	// Differences counts Difference calls, for order and skip assertions.
	Differences int
}

var _ geometry.Engine = (*RectEngine)(nil)

// Offset returns a ProjectFunc that translates by (dx, dy).
func Offset(dx, dy float64) ProjectFunc {
	return func(_, _ geometry.SpatialRef, x, y float64) (float64, float64, error) {
		return x + dx, y + dy, nil
	}
}

func (e *RectEngine) Transform(g geometry.Geometry, to geometry.SpatialRef) (geometry.Geometry, error) {
	from := g.SpatialRef()
	if from == to {
		return g, nil
	}
	if e.Project == nil || !to.Valid() {
		return geometry.Geometry{}, &geometry.CRSError{EPSG: to.EPSG}
	}
	src := g.MultiPolygon()
	out := geom.NewMultiPolygon(geom.XY)
	for i := 0; i < src.NumPolygons(); i++ {
		rings := src.Polygon(i).Coords()
		for _, ring := range rings {
			for _, c := range ring {
				x, y, err := e.Project(from, to, c[0], c[1])
				if err != nil {
					return geometry.Geometry{}, &geometry.CRSError{EPSG: to.EPSG, Err: err}
				}
				c[0], c[1] = x, y
			}
		}
		if err := out.Push(geom.NewPolygon(geom.XY).MustSetCoords(rings)); err != nil {
			return geometry.Geometry{}, err
		}
	}
	return geometry.FromT(out, to)
}

func (e *RectEngine) Intersects(a, b geometry.Geometry) (bool, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return false, err
	}
	for _, ra := range Rects(a) {
		for _, rb := range Rects(b) {
			if ra.Intersects(rb) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (e *RectEngine) Intersection(a, b geometry.Geometry) (geometry.Geometry, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return geometry.Geometry{}, err
	}
	var out []geometry.Envelope
	for _, ra := range Rects(a) {
		for _, rb := range Rects(b) {
			if in := ra.Intersection(rb); !in.Empty() {
				out = append(out, in)
			}
		}
	}
	return FromRects(out, a.SpatialRef()), nil
}

func (e *RectEngine) Difference(a, b geometry.Geometry) (geometry.Geometry, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return geometry.Geometry{}, err
	}
	e.Differences++
	pieces := Rects(a)
	for _, cut := range Rects(b) {
		var next []geometry.Envelope
		for _, p := range pieces {
			next = append(next, subtract(p, cut)...)
		}
		pieces = next
	}
	return FromRects(pieces, a.SpatialRef()), nil
}

// Rects returns the bounds of every polygon part of g.
func Rects(g geometry.Geometry) []geometry.Envelope {
	mp := g.MultiPolygon()
	out := make([]geometry.Envelope, 0, mp.NumPolygons())
	for i := 0; i < mp.NumPolygons(); i++ {
		b := mp.Polygon(i).Bounds()
		out = append(out, geometry.Envelope{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)})
	}
	return out
}

// FromRects builds a multipolygon geometry of rectangles.
func FromRects(rects []geometry.Envelope, sr geometry.SpatialRef) geometry.Geometry {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		_ = mp.Push(geometry.FromEnvelope(r, sr).MultiPolygon().Polygon(0))
	}
	g, _ := geometry.FromT(mp, sr)
	return g
}

// subtract splits r \ cut into at most four disjoint rectangles: full-width
// strips below and above the cut, then the left and right remainders.
func subtract(r, cut geometry.Envelope) []geometry.Envelope {
	in := r.Intersection(cut)
	if in.Empty() {
		return []geometry.Envelope{r}
	}
	candidates := []geometry.Envelope{
		{MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: in.MinY},
		{MinX: r.MinX, MinY: in.MaxY, MaxX: r.MaxX, MaxY: r.MaxY},
		{MinX: r.MinX, MinY: in.MinY, MaxX: in.MinX, MaxY: in.MaxY},
		{MinX: in.MaxX, MinY: in.MinY, MaxX: r.MaxX, MaxY: in.MaxY},
	}
	out := candidates[:0]
	for _, c := range candidates {
		if !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}
