package gdal

import (
	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/urbancover/internal/geometry"
)

// GeometryEngine is the OGR implementation of geometry.Engine. Geometries
// cross into OGR as WKB and come back the same way.
type GeometryEngine struct{}

var _ geometry.Engine = GeometryEngine{}

func (GeometryEngine) Transform(g geometry.Geometry, to geometry.SpatialRef) (geometry.Geometry, error) {
	if g.SpatialRef() == to {
		return g, nil
	}
	if g.Empty() {
		return geometry.Empty(to), nil
	}

	dst, err := spatialRef(to)
	if err != nil {
		return geometry.Geometry{}, err
	}
	defer dst.Close()

	og, err := toOGR(g)
	if err != nil {
		return geometry.Geometry{}, err
	}
	defer og.Close()

	if err := og.Reproject(dst); err != nil {
		return geometry.Geometry{}, &geometry.CRSError{EPSG: g.SpatialRef().EPSG, Other: to.EPSG, Err: err}
	}
	return fromOGR(og, to)
}

func (GeometryEngine) Intersects(a, b geometry.Geometry) (bool, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return false, err
	}
	if a.Empty() || b.Empty() {
		return false, nil
	}
	oa, ob, err := pair(a, b)
	if err != nil {
		return false, err
	}
	defer oa.Close()
	defer ob.Close()

	hit, err := oa.Intersects(ob)
	if err != nil {
		return false, eris.Wrap(err, "gdal: intersects")
	}
	return hit, nil
}

func (GeometryEngine) Intersection(a, b geometry.Geometry) (geometry.Geometry, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return geometry.Geometry{}, err
	}
	if a.Empty() || b.Empty() {
		return geometry.Empty(a.SpatialRef()), nil
	}
	oa, ob, err := pair(a, b)
	if err != nil {
		return geometry.Geometry{}, err
	}
	defer oa.Close()
	defer ob.Close()

	out, err := oa.Intersection(ob)
	if err != nil {
		return geometry.Geometry{}, eris.Wrap(err, "gdal: intersection")
	}
	defer out.Close()
	return fromOGR(out, a.SpatialRef())
}

func (GeometryEngine) Difference(a, b geometry.Geometry) (geometry.Geometry, error) {
	if err := geometry.SameRef(a, b); err != nil {
		return geometry.Geometry{}, err
	}
	if a.Empty() || b.Empty() {
		return a, nil
	}
	oa, ob, err := pair(a, b)
	if err != nil {
		return geometry.Geometry{}, err
	}
	defer oa.Close()
	defer ob.Close()

	out, err := oa.Difference(ob)
	if err != nil {
		return geometry.Geometry{}, eris.Wrap(err, "gdal: difference")
	}
	defer out.Close()
	return fromOGR(out, a.SpatialRef())
}

// spatialRef resolves an EPSG code. The caller closes the result.
func spatialRef(sr geometry.SpatialRef) (*godal.SpatialRef, error) {
	if !sr.Valid() {
		return nil, &geometry.CRSError{EPSG: sr.EPSG}
	}
	ref, err := godal.NewSpatialRefFromEPSG(sr.EPSG)
	if err != nil {
		return nil, &geometry.CRSError{EPSG: sr.EPSG, Err: err}
	}
	return ref, nil
}

// toOGR builds an OGR geometry carrying g's reference. The caller closes it.
func toOGR(g geometry.Geometry) (*godal.Geometry, error) {
	ref, err := spatialRef(g.SpatialRef())
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	data, err := wkb.Marshal(g.MultiPolygon(), wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "gdal: encode wkb")
	}
	og, err := godal.NewGeometryFromWKB(data, ref)
	if err != nil {
		return nil, eris.Wrap(err, "gdal: geometry from wkb")
	}
	return og, nil
}

func pair(a, b geometry.Geometry) (*godal.Geometry, *godal.Geometry, error) {
	oa, err := toOGR(a)
	if err != nil {
		return nil, nil, err
	}
	ob, err := toOGR(b)
	if err != nil {
		oa.Close()
		return nil, nil, err
	}
	return oa, ob, nil
}

func fromOGR(og *godal.Geometry, sr geometry.SpatialRef) (geometry.Geometry, error) {
	if og.Empty() {
		return geometry.Empty(sr), nil
	}
	data, err := og.WKB()
	if err != nil {
		return geometry.Geometry{}, eris.Wrap(err, "gdal: export wkb")
	}
	t, err := wkb.Unmarshal(data)
	if err != nil {
		return geometry.Geometry{}, eris.Wrap(err, "gdal: decode wkb")
	}
	return geometry.FromT(t, sr)
}
