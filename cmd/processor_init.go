package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/cover"
	"github.com/sells-group/urbancover/internal/gdal"
	"github.com/sells-group/urbancover/internal/geometry"
	"github.com/sells-group/urbancover/internal/store"
	"github.com/sells-group/urbancover/internal/tilegrid"
)

// processorEnv holds the store and the processor needed by the process and
// serve commands.
type processorEnv struct {
	Store     store.ObjectStore
	Processor *cover.Processor
}

// Close releases resources held by the processor environment.
func (pe *processorEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initProcessor validates config and sets up the tile source, the store and the Processor.
// Callers should defer env.Close().
func initProcessor(ctx context.Context, mode string) (*processorEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	codes, err := cfg.Codes()
	if err != nil {
		return nil, err
	}

	tiles, err := initTiles()
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := migrateStore(ctx, st); err != nil {
		_ = st.Close()
		return nil, err
	}

	proc := &cover.Processor{
		Geometry:   gdal.GeometryEngine{},
		Raster:     gdal.RasterReader{},
		Rasterizer: gdal.Rasterizer{},
		Tiles:      tiles,
		Store:      st,
		Options: cover.Options{
			LandUsePath:  cfg.LandUse.Path,
			OutputFolder: cfg.Output.Folder,
			GridRef:      geometry.SpatialRef{EPSG: cfg.Grid.EPSG},
			Codes:        codes,
			Concurrency:  cfg.Reconcile.Concurrency,
		},
	}

	return &processorEnv{Store: st, Processor: proc}, nil
}

// initTiles picks the sibling tile source: the configured list, else the
// tiling grid shapefile.
func initTiles() (tilegrid.Source, error) {
	if len(cfg.Tiles.Names) > 0 {
		zap.L().Debug("using configured tile list", zap.Strings("tiles", cfg.Tiles.Names))
		return tilegrid.Static(cfg.Tiles.Names), nil
	}
	if cfg.Tiles.GridShapefile != "" {
		grid, err := tilegrid.LoadShapefile(cfg.Tiles.GridShapefile, cfg.Tiles.NameField)
		if err != nil {
			return nil, eris.Wrap(err, "load tiling grid")
		}
		zap.L().Info("loaded tiling grid",
			zap.String("path", cfg.Tiles.GridShapefile),
			zap.Int("tiles", len(grid.Tiles)),
		)
		return grid, nil
	}
	zap.L().Warn("no tile list or tiling grid configured, neighbours will not be reconciled")
	return tilegrid.Static(nil), nil
}
