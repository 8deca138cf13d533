package raster

import (
	"github.com/rotisserie/eris"
)

// Grid is a row-major window of band values.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

// NewGrid allocates a zeroed width x height grid.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Grid{Width: width, Height: height, Data: make([]float64, width*height)}
}

// GridFromRows builds a grid from equal-length rows.
func GridFromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return NewGrid(0, 0), nil
	}
	g := NewGrid(len(rows[0]), len(rows))
	for r, row := range rows {
		if len(row) != g.Width {
			return nil, eris.Errorf("raster: row %d has %d values, want %d", r, len(row), g.Width)
		}
		copy(g.Data[r*g.Width:], row)
	}
	return g, nil
}

// At returns the value at (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Data[row*g.Width+col]
}

// Set writes the value at (col, row).
func (g *Grid) Set(col, row int, v float64) {
	g.Data[row*g.Width+col] = v
}

// Len is the number of cells.
func (g *Grid) Len() int {
	return len(g.Data)
}

// Sub copies the w window out of g.
func (g *Grid) Sub(w Window) (*Grid, error) {
	if !w.Within(g.Width, g.Height) {
		return nil, eris.Errorf("raster: window %+v outside %dx%d grid", w, g.Width, g.Height)
	}
	out := NewGrid(w.Width(), w.Height())
	for r := 0; r < out.Height; r++ {
		src := (w.Top+r)*g.Width + w.Left
		copy(out.Data[r*out.Width:(r+1)*out.Width], g.Data[src:src+out.Width])
	}
	return out, nil
}
