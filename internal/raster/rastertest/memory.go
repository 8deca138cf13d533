// Package rastertest provides an in-memory raster.Reader that records
// open and close calls, so tests can assert every dataset is released.
package rastertest

import (
	"context"
	"errors"
	"sync"

	"github.com/sells-group/urbancover/internal/raster"
)

// Layer is one in-memory dataset.
type Layer struct {
	Info raster.Info
	Grid *raster.Grid
}

// Reader serves Layers by path.
type Reader struct {
	mu     sync.Mutex
	layers map[string]Layer
	live   int
	opened int
	reads  []raster.Window
}

var _ raster.Reader = (*Reader)(nil)

// NewReader returns an empty Reader.
func NewReader() *Reader {
	return &Reader{layers: make(map[string]Layer)}
}

// Add registers a layer under path. The grid must be Info.Width x
// Info.Height.
func (r *Reader) Add(path string, l Layer) *Reader {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layers[path] = l
	return r
}

// Open implements raster.Reader.
func (r *Reader) Open(_ context.Context, path string) (raster.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.layers[path]
	if !ok {
		return nil, &raster.RasterOpenError{Path: path, Err: errors.New("no such layer")}
	}
	r.live++
	r.opened++
	return &dataset{reader: r, layer: l}, nil
}

// Live returns the number of datasets not yet closed.
func (r *Reader) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// Opened returns the number of Open calls that succeeded.
func (r *Reader) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// Reads returns every window read so far.
func (r *Reader) Reads() []raster.Window {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]raster.Window(nil), r.reads...)
}

type dataset struct {
	reader *Reader
	layer  Layer
	closed bool
}

func (d *dataset) Info() raster.Info { return d.layer.Info }

func (d *dataset) ReadWindow(w raster.Window) (*raster.Grid, error) {
	if d.closed {
		return nil, errors.New("rastertest: read on closed dataset")
	}
	d.reader.mu.Lock()
	d.reader.reads = append(d.reader.reads, w)
	d.reader.mu.Unlock()
	return d.layer.Grid.Sub(w)
}

func (d *dataset) Close() error {
	if d.closed {
		return errors.New("rastertest: double close")
	}
	d.closed = true
	d.reader.mu.Lock()
	d.reader.live--
	d.reader.mu.Unlock()
	return nil
}
