package raster

import (
	"context"

	"go.uber.org/zap"
)

// OpenInfo opens path only long enough to read its metadata.
func OpenInfo(ctx context.Context, r Reader, path string) (Info, error) {
	ds, err := r.Open(ctx, path)
	if err != nil {
		return Info{}, err
	}
	defer Release(ds, path)
	return ds.Info(), nil
}

// Release closes ds, logging instead of failing. Safe to call on nil.
func Release(ds Dataset, path string) {
	if ds == nil {
		return
	}
	if err := ds.Close(); err != nil {
		zap.L().Warn("raster: close dataset", zap.String("path", path), zap.Error(err))
	}
}
