// Package gdal binds the geometry, raster and rasterization interfaces to
// GDAL/OGR through godal. Every native handle is created and closed within
// the call that needs it.
package gdal

import (
	"sort"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// DefaultConfigOptions are applied by Init unless overridden.
var DefaultConfigOptions = map[string]string{
	"GDAL_DISABLE_READDIR_ON_OPEN":     "TRUE",
	"CPL_CURL_VERBOSE":                 "NO",
	"CPL_DEBUG":                        "NO",
	"CPL_VSIL_CURL_ALLOWED_EXTENSIONS": ".tif",
}

var initOnce sync.Once

// Init registers the GDAL drivers and sets process-wide configuration
// options. Only the first call has any effect.
func Init(options map[string]string) {
	initOnce.Do(func() {
		godal.RegisterAll()

		merged := make(map[string]string, len(DefaultConfigOptions)+len(options))
		for k, v := range DefaultConfigOptions {
			merged[k] = v
		}
		for k, v := range options {
			merged[strings.ToUpper(k)] = v
		}

		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			godal.SetConfigOption(k, merged[k])
		}
		zap.L().Debug("gdal: initialized", zap.Strings("config_options", keys))
	})
}
