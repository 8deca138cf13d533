package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/urbancover/internal/classify"
	"github.com/sells-group/urbancover/internal/tilegrid"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	LandUse   LandUseConfig   `yaml:"landuse" mapstructure:"landuse"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Tiles     TilesConfig     `yaml:"tiles" mapstructure:"tiles"`
	Grid      GridConfig      `yaml:"grid" mapstructure:"grid"`
	Classes   ClassesConfig   `yaml:"classes" mapstructure:"classes"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	GDAL      GDALConfig      `yaml:"gdal" mapstructure:"gdal"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
}

// LandUseConfig locates the land-use raster.
type LandUseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig locates the folder result documents are written to.
type OutputConfig struct {
	Folder string `yaml:"folder" mapstructure:"folder"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Root        string     `yaml:"root" mapstructure:"root"`
	S3          S3Config   `yaml:"s3" mapstructure:"s3"`
	HTTP        HTTPConfig `yaml:"http" mapstructure:"http"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// S3Config configures the S3 client.
type S3Config struct {
	Region   string `yaml:"region" mapstructure:"region"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// HTTPConfig configures the HTTP document store.
type HTTPConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Rate        float64 `yaml:"rate" mapstructure:"rate"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PoolConfig tunes the Postgres connection pool.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// TilesConfig configures sibling tile discovery. Names wins over
// GridShapefile when both are set.
type TilesConfig struct {
	Names         []string `yaml:"names" mapstructure:"names"`
	GridShapefile string   `yaml:"grid_shapefile" mapstructure:"grid_shapefile"`
	NameField     string   `yaml:"name_field" mapstructure:"name_field"`
}

// GridConfig is the CRS every tile is processed in.
type GridConfig struct {
	EPSG int `yaml:"epsg" mapstructure:"epsg"`
}

// ClassesConfig overrides the class enumerations.
type ClassesConfig struct {
	CloudCodes []int  `yaml:"cloud_codes" mapstructure:"cloud_codes"`
	UrbanCodes []int  `yaml:"urban_codes" mapstructure:"urban_codes"`
	CodesFile  string `yaml:"codes_file" mapstructure:"codes_file"`
}

// ReconcileConfig tunes neighbour record lookups.
type ReconcileConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// GDALConfig carries extra GDAL config options.
type GDALConfig struct {
	ConfigOptions map[string]string `yaml:"config_options" mapstructure:"config_options"`
}

// ServerConfig configures the notification server.
type ServerConfig struct {
	Port  int     `yaml:"port" mapstructure:"port"`
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`

	// AllowedTopics restricts which SNS topic ARNs are accepted.
	AllowedTopics []string `yaml:"allowed_topics" mapstructure:"allowed_topics"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps the variables of the Lambda deployment onto
// config keys.
var legacyEnv = map[string]string{
	"landuse.path":  "LANDUSE_DATASET_S3_PATH",
	"output.folder": "OUTPUT_S3_FOLDER",
	"tiles.names":   "S2L2A_TILES",
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("URBANCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "URBANCOVER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", env)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "s3")
	v.SetDefault("store.http.timeout_secs", 30)
	v.SetDefault("store.pool.max_conns", 4)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("tiles.name_field", "Name")
	v.SetDefault("grid.epsg", 32630)
	v.SetDefault("reconcile.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate", 0)
	v.SetDefault("server.burst", 1)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	// A comma separated env value may arrive as a single entry.
	cfg.Tiles.Names = tilegrid.ParseNames(strings.Join(cfg.Tiles.Names, ","))

	return &cfg, nil
}

// Validate checks the settings every invocation needs. mode selects extra
// checks: "process", "serve" or "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "process", "serve":
		if c.LandUse.Path == "" {
			errs = append(errs, "landuse.path is required (LANDUSE_DATASET_S3_PATH)")
		}
		if c.Output.Folder == "" {
			errs = append(errs, "output.folder is required (OUTPUT_S3_FOLDER)")
		}
		if c.Grid.EPSG <= 0 {
			errs = append(errs, "grid.epsg must be > 0")
		}
		if c.Reconcile.Concurrency < 1 {
			errs = append(errs, "reconcile.concurrency must be >= 1")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "migrate":
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			errs = append(errs, "store.driver must be postgres or sqlite to migrate")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Codes resolves the class enumerations: defaults, then the codes file,
// then explicit lists.
func (c *Config) Codes() (classify.Codes, error) {
	codes := classify.DefaultCodes()
	if c.Classes.CodesFile != "" {
		var err error
		if codes, err = classify.LoadCodes(c.Classes.CodesFile); err != nil {
			return classify.Codes{}, eris.Wrap(err, "config: load codes")
		}
	}
	if len(c.Classes.CloudCodes) > 0 {
		codes.Cloud = classify.NewCodeSet(c.Classes.CloudCodes...)
	}
	if len(c.Classes.UrbanCodes) > 0 {
		codes.Urban = classify.NewCodeSet(c.Classes.UrbanCodes...)
	}
	return codes, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
