// Package rasterize burns footprint polygons into byte masks aligned with a
// raster window.
package rasterize

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/raster"
)

// Mask values.
const (
	Outside uint8 = 0
	Inside  uint8 = 1
)

// GridSpec places a north-up scratch grid on the ground.
type GridSpec struct {
	OriginX    float64 // ground x of the top-left corner
	OriginY    float64 // ground y of the top-left corner
	ResX       float64
	ResY       float64
	Width      int
	Height     int
	SpatialRef geometry.SpatialRef
}

// SpecFor anchors a width x height grid at the top-left corner of aoi.
func SpecFor(aoi geometry.Envelope, resX, resY float64, width, height int, sr geometry.SpatialRef) GridSpec {
	return GridSpec{
		OriginX:    aoi.MinX,
		OriginY:    aoi.MaxY,
		ResX:       resX,
		ResY:       resY,
		Width:      width,
		Height:     height,
		SpatialRef: sr,
	}
}

// GeoTransform returns the grid's transform (negative row pitch).
func (s GridSpec) GeoTransform() raster.GeoTransform {
	return raster.NorthUp(s.OriginX, s.OriginY, s.ResX, s.ResY)
}

// Validate rejects specs no rasterizer can allocate.
func (s GridSpec) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return eris.Errorf("rasterize: negative grid size %dx%d", s.Width, s.Height)
	}
	if !(s.ResX > 0) || !(s.ResY > 0) {
		return eris.Errorf("rasterize: resolution must be positive, got %g x %g", s.ResX, s.ResY)
	}
	return nil
}

// Mask is a row-major byte grid of Inside/Outside values.
type Mask struct {
	Width  int
	Height int
	Data   []uint8
}

// NewMask allocates an all-Outside mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// Full returns an all-Inside mask.
func Full(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.Data {
		m.Data[i] = Inside
	}
	return m
}

// Inside reports whether (col, row) was burned.
func (m *Mask) Inside(col, row int) bool {
	return m.Data[row*m.Width+col] == Inside
}

// Count returns the number of burned pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v == Inside {
			n++
		}
	}
	return n
}

// Rasterizer burns a geometry into a fresh mask described by spec. A
// geometry that burns nothing yields an all-Outside mask, not an error.
type Rasterizer interface {
	Burn(ctx context.Context, g geometry.Geometry, spec GridSpec) (*Mask, error)
}
