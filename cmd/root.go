package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/urbancover/internal/config"
	"github.com/sells-group/urbancover/internal/gdal"
)

var cfg *config.Config

var (
	logLevel  string
	logFormat string
)

// annotationGDAL marks commands that open rasters or run OGR geometry.
const annotationGDAL = "urbancover/gdal"

var rootCmd = &cobra.Command{
	Use:   "urbancover",
	Short: "Urban cover statistics for Sentinel-2 tiles",
	Long:  "Reconciles each Sentinel-2 tile against its processed neighbours, masks the land-use raster with the cloud-free footprint and stores the urban cover document.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return setup(cmd, c)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// setup applies flag overrides, starts logging and, for commands that need
// it, registers the GDAL drivers with the configured options.
func setup(cmd *cobra.Command, c *config.Config) error {
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if cmd.Annotations[annotationGDAL] == "true" {
		gdal.Init(cfg.GDAL.ConfigOptions)
	}

	zap.L().Debug("urbancover: starting",
		zap.String("command", cmd.Name()),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("grid_epsg", cfg.Grid.EPSG),
		zap.String("landuse", cfg.LandUse.Path),
		zap.String("output", cfg.Output.Folder),
		zap.Int("tiles", len(cfg.Tiles.Names)),
	)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json or console)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
