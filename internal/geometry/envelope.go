package geometry

import (
	"encoding/json"
	"math"

	"github.com/rotisserie/eris"
)

// Envelope is an axis-aligned bounding box in ground units, min <= max.
// The zero value is the empty envelope.
type Envelope struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewEnvelope builds a normalized envelope from two opposite corners.
func NewEnvelope(x0, y0, x1, y1 float64) Envelope {
	return Envelope{
		MinX: math.Min(x0, x1),
		MinY: math.Min(y0, y1),
		MaxX: math.Max(x0, x1),
		MaxY: math.Max(y0, y1),
	}
}

// Width is MaxX - MinX.
func (e Envelope) Width() float64 { return e.MaxX - e.MinX }

// Height is MaxY - MinY.
func (e Envelope) Height() float64 { return e.MaxY - e.MinY }

// Empty reports whether the envelope encloses no area.
func (e Envelope) Empty() bool {
	return !(e.MaxX > e.MinX && e.MaxY > e.MinY)
}

// Intersects reports whether the two envelopes share a region of positive
// area.
func (e Envelope) Intersects(o Envelope) bool {
	return !e.Intersection(o).Empty()
}

// Intersection returns the overlap of two envelopes, empty when disjoint.
func (e Envelope) Intersection(o Envelope) Envelope {
	out := Envelope{
		MinX: math.Max(e.MinX, o.MinX),
		MinY: math.Max(e.MinY, o.MinY),
		MaxX: math.Min(e.MaxX, o.MaxX),
		MaxY: math.Min(e.MaxY, o.MaxY),
	}
	if out.Empty() {
		return Envelope{}
	}
	return out
}

// Clamp restricts e to bounds on each axis independently. Unlike
// Intersection it keeps degenerate results so callers can see which axis
// collapsed.
func (e Envelope) Clamp(bounds Envelope) Envelope {
	return Envelope{
		MinX: math.Max(e.MinX, bounds.MinX),
		MinY: math.Max(e.MinY, bounds.MinY),
		MaxX: math.Min(e.MaxX, bounds.MaxX),
		MaxY: math.Min(e.MaxY, bounds.MaxY),
	}
}

// Array returns [minx, miny, maxx, maxy].
func (e Envelope) Array() [4]float64 {
	return [4]float64{e.MinX, e.MinY, e.MaxX, e.MaxY}
}

// MarshalJSON encodes the envelope as four floats, the form persisted in
// result documents.
func (e Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Array())
}

// UnmarshalJSON decodes [minx, miny, maxx, maxy].
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return eris.Wrap(err, "geometry: decode envelope")
	}
	if len(v) != 4 {
		return eris.Errorf("geometry: envelope needs 4 values, got %d", len(v))
	}
	*e = NewEnvelope(v[0], v[1], v[2], v[3])
	return nil
}
