package classify

import (
	"fmt"
	"math"
	"slices"

	"github.com/sells-group/urbancover/internal/raster"
	"github.com/sells-group/urbancover/internal/rasterize"
)

// Values of a combined grid.
const (
	NotUrban   = 0
	Urban      = 1
	ValidUrban = 2 // urban and cloud-free
)

// ClassMask is a boolean grid shaped like its source window.
type ClassMask struct {
	Width  int
	Height int
	Data   []bool
}

// Count returns the number of true cells.
func (m ClassMask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// MaskOf marks the cells of g whose value is in codes.
func MaskOf(g *raster.Grid, codes CodeSet) ClassMask {
	m := ClassMask{Width: g.Width, Height: g.Height, Data: make([]bool, len(g.Data))}
	for i, v := range g.Data {
		m.Data[i] = codes.Has(v)
	}
	return m
}

// ValidCloudMask marks cloud-free cells of a scene classification window.
func ValidCloudMask(g *raster.Grid, codes CodeSet) ClassMask {
	return MaskOf(g, codes)
}

// ValidUrbanMask marks urban cells of a land use window.
func ValidUrbanMask(g *raster.Grid, codes CodeSet) ClassMask {
	return MaskOf(g, codes)
}

// ShapeError reports grids that are not co-registered.
type ShapeError struct {
	Name          string
	Width, Height int
	WantW, WantH  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("classify: %s grid is %dx%d, want %dx%d", e.Name, e.Width, e.Height, e.WantW, e.WantH)
}

// Combined is the per-pixel result: NotUrban, Urban or ValidUrban.
type Combined struct {
	Width  int
	Height int
	Data   []uint8
}

// Combine starts from the urban mask as 0/1, raises cells that are also
// cloud-free to ValidUrban, then zeroes every cell outside the footprint.
// All three inputs must have the same shape.
func Combine(cloud, urban ClassMask, footprint *rasterize.Mask) (*Combined, error) {
	if cloud.Width != urban.Width || cloud.Height != urban.Height {
		return nil, &ShapeError{Name: "land use", Width: urban.Width, Height: urban.Height, WantW: cloud.Width, WantH: cloud.Height}
	}
	if footprint.Width != cloud.Width || footprint.Height != cloud.Height {
		return nil, &ShapeError{Name: "footprint", Width: footprint.Width, Height: footprint.Height, WantW: cloud.Width, WantH: cloud.Height}
	}

	out := &Combined{Width: cloud.Width, Height: cloud.Height, Data: make([]uint8, len(cloud.Data))}
	for i := range out.Data {
		switch {
		case footprint.Data[i] != rasterize.Inside:
			out.Data[i] = NotUrban
		case urban.Data[i] && cloud.Data[i]:
			out.Data[i] = ValidUrban
		case urban.Data[i]:
			out.Data[i] = Urban
		}
	}
	return out, nil
}

// Statistics are the counts credited to one tile.
type Statistics struct {
	UrbanPixels      int     `json:"urban_pixels"`
	ValidUrbanPixels int     `json:"valid_urban_pixels"`
	UrbanCover       float64 `json:"urban_cover"`
}

// Summarize counts urban (value > 0) and valid urban (value == 2) cells.
// The cover is 100 * valid / urban, or 0 when there are no urban cells.
func Summarize(c *Combined) Statistics {
	var s Statistics
	for _, v := range c.Data {
		if v > NotUrban {
			s.UrbanPixels++
		}
		if v == ValidUrban {
			s.ValidUrbanPixels++
		}
	}
	s.UrbanCover = Cover(s.ValidUrbanPixels, s.UrbanPixels)
	return s
}

// Cover is 100 * valid / total, guarded against total == 0.
func Cover(valid, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(valid) / float64(total)
}

// Bin is one distinct value of a histogram.
type Bin struct {
	Value   float64
	Count   int
	Percent float64
}

// Histogram lists the distinct values of data with counts and percentages
// of the total, in ascending value order. NaNs are grouped together last.
func Histogram(data []float64) []Bin {
	counts := make(map[float64]int)
	nan := 0
	for _, v := range data {
		if math.IsNaN(v) {
			nan++
			continue
		}
		counts[v]++
	}
	values := make([]float64, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	slices.Sort(values)

	bins := make([]Bin, 0, len(values)+1)
	for _, v := range values {
		bins = append(bins, Bin{Value: v, Count: counts[v], Percent: 100 * float64(counts[v]) / float64(len(data))})
	}
	if nan > 0 {
		bins = append(bins, Bin{Value: math.NaN(), Count: nan, Percent: 100 * float64(nan) / float64(len(data))})
	}
	return bins
}

// Floats widens a combined grid for Histogram.
func (c *Combined) Floats() []float64 {
	out := make([]float64, len(c.Data))
	for i, v := range c.Data {
		out[i] = float64(v)
	}
	return out
}
