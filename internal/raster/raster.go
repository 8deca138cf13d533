// Package raster models single-band grids: the affine geotransform, the
// envelope it implies, pixel windows over it and the Reader abstraction
// used to pull windows out of remote datasets.
package raster

import (
	"context"
	"fmt"

	"github.com/sells-group/urbancover/internal/geometry"
)

// GeoTransform maps pixel (col, row) to ground (x, y):
//
//	x = gt[0] + col*gt[1] + row*gt[2]
//	y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

// Apply evaluates the transform at a pixel corner.
func (gt GeoTransform) Apply(col, row float64) (x, y float64) {
	return gt[0] + col*gt[1] + row*gt[2], gt[3] + col*gt[4] + row*gt[5]
}

// NorthUp returns the transform of an unrotated grid whose top-left corner
// is (originX, originY).
func NorthUp(originX, originY, resX, resY float64) GeoTransform {
	return GeoTransform{originX, resX, 0, originY, 0, -resY}
}

// Info is the metadata of an open single-band dataset.
type Info struct {
	Width        int
	Height       int
	GeoTransform GeoTransform
	NoData       float64
	HasNoData    bool
	SpatialRef   geometry.SpatialRef
}

// Dataset is an open raster. It is owned by the operation that opened it
// and must be closed before that operation returns.
type Dataset interface {
	Info() Info
	// ReadWindow reads band 1 over w at native resolution.
	ReadWindow(w Window) (*Grid, error)
	Close() error
}

// Reader opens datasets by path (local, /vsicurl/, /vsis3/ ...).
type Reader interface {
	Open(ctx context.Context, path string) (Dataset, error)
}

// RasterOpenError reports a raster that could not be opened.
type RasterOpenError struct {
	Path string
	Err  error
}

func (e *RasterOpenError) Error() string {
	return fmt.Sprintf("raster: open %s: %v", e.Path, e.Err)
}

func (e *RasterOpenError) Unwrap() error {
	return e.Err
}
