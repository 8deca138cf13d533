// Package tilegrid lists the grid tiles that mosaic together with an
// incoming tile, either from a configured list or from the Sentinel-2
// tiling grid shapefile.
package tilegrid

import (
	"context"
	"strings"

	"github.com/sells-group/urbancover/internal/geometry"
)

// Source names the grid tiles that may overlap a footprint. The footprint
// is in WGS84.
type Source interface {
	Siblings(ctx context.Context, footprint geometry.Geometry) ([]string, error)
}

// Static is a fixed, ordered list of grid tile names.
type Static []string

func (s Static) Siblings(context.Context, geometry.Geometry) ([]string, error) {
	return append([]string(nil), s...), nil
}

// ParseNames splits a comma separated tile list, as carried by the
// S2L2A_TILES variable. Blank entries are dropped.
func ParseNames(list string) []string {
	var out []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
