package gdal

import "strings"

// VSIPath maps a URL onto the GDAL virtual file system: s3:// onto /vsis3/
// and http(s):// onto /vsicurl/. Anything else is returned unchanged.
func VSIPath(path string) string {
	switch {
	case strings.HasPrefix(path, "s3://"):
		return "/vsis3/" + strings.TrimPrefix(path, "s3://")
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return "/vsicurl/" + path
	default:
		return path
	}
}
