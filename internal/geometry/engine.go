package geometry

import (
	"fmt"
)

// Engine performs the operations on geometries that need a real geometry
// library: reprojection and polygon set algebra. Implementations must treat
// an empty result as a value, not an error, and must return new geometries
// rather than modifying their inputs.
type Engine interface {
	// Transform reprojects every vertex of g into to.
	Transform(g Geometry, to SpatialRef) (Geometry, error)

	// Intersects reports whether a and b share any area.
	Intersects(a, b Geometry) (bool, error)

	// Intersection returns a ∩ b.
	Intersection(a, b Geometry) (Geometry, error)

	// Difference returns a \ b.
	Difference(a, b Geometry) (Geometry, error)
}

// CRSError reports a spatial reference that could not be resolved, or two
// operands whose references disagree.
type CRSError struct {
	EPSG  int
	Other int
	Err   error
}

func (e *CRSError) Error() string {
	switch {
	case e.Other != 0:
		return fmt.Sprintf("geometry: spatial reference mismatch EPSG:%d vs EPSG:%d", e.EPSG, e.Other)
	case e.Err != nil:
		return fmt.Sprintf("geometry: resolve EPSG:%d: %v", e.EPSG, e.Err)
	default:
		return fmt.Sprintf("geometry: resolve EPSG:%d", e.EPSG)
	}
}

func (e *CRSError) Unwrap() error {
	return e.Err
}

// SameRef returns a CRSError when a and b are in different references.
func SameRef(a, b Geometry) error {
	if a.sr != b.sr {
		return &CRSError{EPSG: a.sr.EPSG, Other: b.sr.EPSG}
	}
	return nil
}
