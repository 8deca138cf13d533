package gdal

import (
	"context"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/raster"
)

// RasterReader opens datasets through GDAL. Paths are passed through
// VSIPath, so s3:// and https:// URLs work directly.
type RasterReader struct{}

var _ raster.Reader = RasterReader{}

func (RasterReader) Open(_ context.Context, path string) (raster.Dataset, error) {
	name := VSIPath(path)
	ds, err := godal.Open(name)
	if err != nil {
		return nil, &raster.RasterOpenError{Path: path, Err: err}
	}

	info, err := describe(ds)
	if err != nil {
		if cerr := ds.Close(); cerr != nil {
			zap.L().Warn("gdal: close after describe failure", zap.String("path", path), zap.Error(cerr))
		}
		return nil, &raster.RasterOpenError{Path: path, Err: err}
	}

	zap.L().Debug("gdal: opened dataset",
		zap.String("path", name),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("epsg", info.SpatialRef.EPSG),
	)
	return &dataset{ds: ds, path: path, info: info}, nil
}

func describe(ds *godal.Dataset) (raster.Info, error) {
	st := ds.Structure()
	if st.NBands < 1 {
		return raster.Info{}, eris.New("gdal: dataset has no bands")
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Info{}, eris.Wrap(err, "gdal: geotransform")
	}
	nodata, ok := ds.Bands()[0].NoData()

	return raster.Info{
		Width:        st.SizeX,
		Height:       st.SizeY,
		GeoTransform: raster.GeoTransform(gt),
		NoData:       nodata,
		HasNoData:    ok,
		SpatialRef:   datasetRef(ds),
	}, nil
}

// datasetRef reads the EPSG code of the dataset's projection. A dataset
// without one gets the zero SpatialRef, which every engine rejects.
func datasetRef(ds *godal.Dataset) geometry.SpatialRef {
	sr := ds.SpatialRef()
	if sr == nil {
		return geometry.SpatialRef{}
	}
	defer sr.Close()

	code, err := strconv.Atoi(sr.AuthorityCode(""))
	if err != nil {
		return geometry.SpatialRef{}
	}
	return geometry.SpatialRef{EPSG: code}
}

type dataset struct {
	ds     *godal.Dataset
	path   string
	info   raster.Info
	closed bool
}

func (d *dataset) Info() raster.Info { return d.info }

func (d *dataset) ReadWindow(w raster.Window) (*raster.Grid, error) {
	if d.closed {
		return nil, eris.Errorf("gdal: read from closed dataset %s", d.path)
	}
	if !w.Within(d.info.Width, d.info.Height) {
		return nil, eris.Errorf("gdal: window %+v outside %s (%dx%d)", w, d.path, d.info.Width, d.info.Height)
	}
	g := raster.NewGrid(w.Width(), w.Height())
	if w.Empty() {
		return g, nil
	}
	band := d.ds.Bands()[0]
	if err := band.Read(w.Left, w.Top, g.Data, w.Width(), w.Height()); err != nil {
		return nil, eris.Wrapf(err, "gdal: read window %+v of %s", w, d.path)
	}
	return g, nil
}

func (d *dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return eris.Wrapf(d.ds.Close(), "gdal: close %s", d.path)
}
