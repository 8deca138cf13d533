package gdal

import (
	"context"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"

	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/rasterize"
)

// Rasterizer burns geometries with GDALRasterizeGeometries into an
// in-memory byte raster. GDAL's default pixel-center rule decides
// membership.
type Rasterizer struct{}

var _ rasterize.Rasterizer = Rasterizer{}

func (Rasterizer) Burn(_ context.Context, g geometry.Geometry, spec rasterize.GridSpec) (*rasterize.Mask, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if g.SpatialRef() != spec.SpatialRef {
		return nil, &geometry.CRSError{EPSG: g.SpatialRef().EPSG, Other: spec.SpatialRef.EPSG}
	}
	mask := rasterize.NewMask(spec.Width, spec.Height)
	if g.Empty() || spec.Width == 0 || spec.Height == 0 {
		return mask, nil
	}

	ds, err := godal.Create(godal.Memory, "", 1, godal.Byte, spec.Width, spec.Height)
	if err != nil {
		return nil, eris.Wrap(err, "gdal: create scratch raster")
	}
	defer ds.Close()

	if err := ds.SetGeoTransform(spec.GeoTransform()); err != nil {
		return nil, eris.Wrap(err, "gdal: set scratch geotransform")
	}
	ref, err := spatialRef(spec.SpatialRef)
	if err != nil {
		return nil, err
	}
	defer ref.Close()
	if err := ds.SetSpatialRef(ref); err != nil {
		return nil, eris.Wrap(err, "gdal: set scratch spatial ref")
	}
	band := ds.Bands()[0]
	if err := band.SetNoData(float64(rasterize.Outside)); err != nil {
		return nil, eris.Wrap(err, "gdal: set scratch nodata")
	}

	og, err := toOGR(g)
	if err != nil {
		return nil, err
	}
	defer og.Close()

	if err := ds.RasterizeGeometry(og, godal.Values(float64(rasterize.Inside))); err != nil {
		return nil, eris.Wrap(err, "gdal: rasterize")
	}
	if err := band.Read(0, 0, mask.Data, spec.Width, spec.Height); err != nil {
		return nil, eris.Wrap(err, "gdal: read scratch raster")
	}
	return mask, nil
}
