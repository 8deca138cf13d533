// Package geometry holds the vector side of the engine: spatial references,
// immutable polygonal geometries, envelopes and the Engine interface that
// performs reprojection and set algebra on them.
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// WGS84 is the geographic reference STAC footprints are published in.
var WGS84 = SpatialRef{EPSG: 4326}

// SpatialRef identifies a coordinate reference system by EPSG code.
type SpatialRef struct {
	EPSG int
}

// Geographic reports whether the reference uses angular units.
// EPSG codes 4000-4999 are the geographic 2D/3D block.
func (s SpatialRef) Geographic() bool {
	return s.EPSG >= 4000 && s.EPSG < 5000
}

// Valid reports whether the reference carries a code at all.
func (s SpatialRef) Valid() bool {
	return s.EPSG > 0
}

// Geometry is an immutable polygonal geometry in a spatial reference.
// Every geometry is normalized to a multipolygon; a geometry with no
// polygons is empty.
type Geometry struct {
	mp *geom.MultiPolygon
	sr SpatialRef
}

// Empty returns an empty geometry in sr.
func Empty(sr SpatialRef) Geometry {
	return Geometry{mp: geom.NewMultiPolygon(geom.XY).SetSRID(sr.EPSG), sr: sr}
}

// BBoxPolygon builds the closed five-point ring of the given bounds.
func BBoxPolygon(xmin, ymin, xmax, ymax float64, sr SpatialRef) Geometry {
	p := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{xmin, ymin},
		{xmax, ymin},
		{xmax, ymax},
		{xmin, ymax},
		{xmin, ymin},
	}})
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(sr.EPSG)
	_ = mp.Push(p)
	return Geometry{mp: mp, sr: sr}
}

// FromEnvelope is BBoxPolygon for an Envelope.
func FromEnvelope(e Envelope, sr SpatialRef) Geometry {
	if e.Empty() {
		return Empty(sr)
	}
	return BBoxPolygon(e.MinX, e.MinY, e.MaxX, e.MaxY, sr)
}

// FromT normalizes a go-geom value into a Geometry. Polygons and
// multipolygons are kept; polygonal members of collections are kept; points
// and lines carry no area and are dropped, so e.g. two rectangles touching
// along an edge intersect to an empty geometry.
func FromT(t geom.T, sr SpatialRef) (Geometry, error) {
	out := geom.NewMultiPolygon(geom.XY).SetSRID(sr.EPSG)
	if err := collectPolygons(out, t); err != nil {
		return Geometry{}, err
	}
	return Geometry{mp: out, sr: sr}, nil
}

func collectPolygons(out *geom.MultiPolygon, t geom.T) error {
	switch g := t.(type) {
	case nil:
		return nil
	case *geom.Polygon:
		if g.Empty() {
			return nil
		}
		return eris.Wrap(out.Push(xyPolygon(g)), "geometry: push polygon")
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if err := collectPolygons(out, g.Polygon(i)); err != nil {
				return err
			}
		}
		return nil
	case *geom.GeometryCollection:
		for _, member := range g.Geoms() {
			if err := collectPolygons(out, member); err != nil {
				return err
			}
		}
		return nil
	case *geom.Point, *geom.MultiPoint, *geom.LineString, *geom.MultiLineString, *geom.LinearRing:
		return nil
	default:
		return eris.Errorf("geometry: unsupported geometry type %T", t)
	}
}

// xyPolygon drops Z/M ordinates, which the engine never uses.
func xyPolygon(p *geom.Polygon) *geom.Polygon {
	if p.Layout() == geom.XY {
		return p.Clone()
	}
	rings := p.Coords()
	flat := make([][]geom.Coord, len(rings))
	for i, ring := range rings {
		flat[i] = make([]geom.Coord, len(ring))
		for j, c := range ring {
			flat[i][j] = geom.Coord{c[0], c[1]}
		}
	}
	return geom.NewPolygon(geom.XY).MustSetCoords(flat)
}

// SpatialRef returns the reference the geometry's coordinates are in.
func (g Geometry) SpatialRef() SpatialRef {
	return g.sr
}

// Empty reports whether the geometry covers no area.
func (g Geometry) Empty() bool {
	return g.mp == nil || g.mp.NumPolygons() == 0
}

// NumPolygons returns the number of polygon parts.
func (g Geometry) NumPolygons() int {
	if g.mp == nil {
		return 0
	}
	return g.mp.NumPolygons()
}

// MultiPolygon returns a copy of the underlying go-geom value.
func (g Geometry) MultiPolygon() *geom.MultiPolygon {
	if g.mp == nil {
		return geom.NewMultiPolygon(geom.XY).SetSRID(g.sr.EPSG)
	}
	return g.mp.Clone()
}

// Rings returns copies of every ring of every part, outer rings and holes
// alike.
func (g Geometry) Rings() [][]geom.Coord {
	if g.Empty() {
		return nil
	}
	mp := g.mp.Clone()
	var rings [][]geom.Coord
	for i := 0; i < mp.NumPolygons(); i++ {
		rings = append(rings, mp.Polygon(i).Coords()...)
	}
	return rings
}

// Envelope returns the bounds of the geometry. Empty geometries return an
// empty envelope.
func (g Geometry) Envelope() Envelope {
	if g.Empty() {
		return Envelope{}
	}
	b := g.mp.Bounds()
	return Envelope{MinX: b.Min(0), MinY: b.Min(1), MaxX: b.Max(0), MaxY: b.Max(1)}
}

// Area returns the planar area in the units of the spatial reference.
func (g Geometry) Area() float64 {
	if g.Empty() {
		return 0
	}
	return g.mp.Area()
}
