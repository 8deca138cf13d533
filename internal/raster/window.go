package raster

import (
	"math"

	"github.com/sells-group/urbancover/internal/geometry"
)

// Window is a pixel rectangle [Left, Right) x [Top, Bottom) of a dataset.
type Window struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width is Right - Left.
func (w Window) Width() int { return w.Right - w.Left }

// Height is Bottom - Top.
func (w Window) Height() int { return w.Bottom - w.Top }

// Empty reports whether the window contains no pixel.
func (w Window) Empty() bool {
	return w.Width() <= 0 || w.Height() <= 0
}

// Within reports whether the window lies inside a width x height grid.
func (w Window) Within(width, height int) bool {
	return w.Left >= 0 && w.Top >= 0 && w.Left <= w.Right && w.Top <= w.Bottom &&
		w.Right <= width && w.Bottom <= height
}

// Clamp restricts the window to [0,width] x [0,height].
func (w Window) Clamp(width, height int) Window {
	c := Window{
		Left:   clampInt(w.Left, 0, width),
		Top:    clampInt(w.Top, 0, height),
		Right:  clampInt(w.Right, 0, width),
		Bottom: clampInt(w.Bottom, 0, height),
	}
	if c.Right < c.Left {
		c.Right = c.Left
	}
	if c.Bottom < c.Top {
		c.Bottom = c.Top
	}
	return c
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// EnvelopeOf evaluates the geotransform at the corners (0,0) and
// (Width,Height), pixel edges rather than centers, and normalizes the
// result so min <= max whatever the sign of the pixel pitch.
func EnvelopeOf(info Info) geometry.Envelope {
	x0, y0 := info.GeoTransform.Apply(0, 0)
	x1, y1 := info.GeoTransform.Apply(float64(info.Width), float64(info.Height))
	return geometry.NewEnvelope(x0, y0, x1, y1)
}

// Resolution returns the per-axis ground size of a pixel, derived from the
// dataset's own envelope.
func Resolution(info Info) (resX, resY float64) {
	env := EnvelopeOf(info)
	return math.Abs(env.Width()) / float64(info.Width), math.Abs(env.Height()) / float64(info.Height)
}

// ReadingWindow computes the pixel window of bbox on the dataset described
// by info, from that dataset's own envelope and resolution. Each edge is
// rounded half away from zero once, here, so the same integers size and
// offset the read. No clamping is performed; bbox must already lie within
// the dataset envelope.
func ReadingWindow(info Info, bbox geometry.Envelope) Window {
	env := EnvelopeOf(info)
	resX, resY := Resolution(info)

	dataLeft, dataTop := env.MinX, env.MaxY
	return Window{
		Top:    int(math.Round((dataTop - bbox.MaxY) / resY)),
		Left:   int(math.Round((bbox.MinX - dataLeft) / resX)),
		Bottom: int(math.Round((dataTop - bbox.MinY) / resY)),
		Right:  int(math.Round((bbox.MaxX - dataLeft) / resX)),
	}
}

// RoundResolution rounds a resolution to 10 decimals for geographic
// references and 5 for projected ones, which absorbs float noise in
// envelope / size divisions.
func RoundResolution(res float64, sr geometry.SpatialRef) float64 {
	decimals := 5
	if sr.Geographic() {
		decimals = 10
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(res*scale) / scale
}
