package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// FromGeoJSON decodes a GeoJSON geometry object. The spatial reference is
// not part of GeoJSON and must be supplied; STAC footprints are WGS84.
func FromGeoJSON(raw []byte, sr SpatialRef) (Geometry, error) {
	var t geom.T
	if err := geojson.Unmarshal(raw, &t); err != nil {
		return Geometry{}, eris.Wrap(err, "geometry: decode geojson")
	}
	g, err := FromT(t, sr)
	if err != nil {
		return Geometry{}, err
	}
	if g.Empty() {
		return Geometry{}, eris.New("geometry: geojson footprint has no polygonal area")
	}
	return g, nil
}
