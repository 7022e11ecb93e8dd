package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/rate-tiering/internal/tiering"
)

// Config holds the full application configuration.
type Config struct {
	Tiering TieringConfig `yaml:"tiering" mapstructure:"tiering"`
	Loader  LoaderConfig  `yaml:"loader" mapstructure:"loader"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// TieringConfig configures column detection and ranking.
type TieringConfig struct {
	TruckTypes          []string        `yaml:"truck_types" mapstructure:"truck_types"`
	IDColumns           IDColumnsConfig `yaml:"id_columns" mapstructure:"id_columns"`
	Incumbents          []string        `yaml:"incumbents" mapstructure:"incumbents"`
	RankByDistinctPrice bool            `yaml:"rank_by_distinct_price" mapstructure:"rank_by_distinct_price"`
	Sheets              []string        `yaml:"sheets" mapstructure:"sheets"`
	HeaderRow           int             `yaml:"header_row" mapstructure:"header_row"`
	Extension           string          `yaml:"extension" mapstructure:"extension"`
}

// IDColumnsConfig names the identifying columns of a rate-bid sheet.
type IDColumnsConfig struct {
	Vendor      string `yaml:"vendor" mapstructure:"vendor"`
	Origin      string `yaml:"origin" mapstructure:"origin"`
	Destination string `yaml:"destination" mapstructure:"destination"`
}

// LoaderConfig configures archive extraction and workbook parsing.
type LoaderConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FetchConfig configures remote archive downloads.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ExportConfig toggles the optional export columns.
type ExportConfig struct {
	IncludeStatus bool `yaml:"include_status" mapstructure:"include_status"`
	IncludeSource bool `yaml:"include_source" mapstructure:"include_source"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, eris.Wrap(err, "config: load .env")
		}
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TIERING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("tiering.truck_types", tiering.DefaultTruckTypes)
	v.SetDefault("tiering.id_columns.vendor", tiering.DefaultVendorColumn)
	v.SetDefault("tiering.id_columns.origin", tiering.DefaultOriginColumn)
	v.SetDefault("tiering.id_columns.destination", tiering.DefaultDestinationColumn)
	v.SetDefault("tiering.incumbents", tiering.DefaultIncumbents)
	v.SetDefault("tiering.rank_by_distinct_price", true)
	v.SetDefault("tiering.sheets", []string{})
	v.SetDefault("tiering.header_row", 1)
	v.SetDefault("tiering.extension", ".xlsx")
	v.SetDefault("loader.concurrency", 1)
	v.SetDefault("loader.temp_dir", "")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "rate-tiering/1.0")
	v.SetDefault("fetch.requests_per_second", 5)
	v.SetDefault("export.include_status", false)
	v.SetDefault("export.include_source", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "catalog", "tier" and "serve". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "catalog", "tier", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Loader.Concurrency < 1 || c.Loader.Concurrency > 32 {
		errs = append(errs, "loader.concurrency must be between 1 and 32")
	}
	if !strings.HasPrefix(c.Tiering.Extension, ".") {
		errs = append(errs, "tiering.extension must start with a dot")
	}
	if c.Tiering.HeaderRow < 0 {
		errs = append(errs, "tiering.header_row must be >= 0")
	}

	if mode != "catalog" {
		if len(c.Tiering.TruckTypes) == 0 {
			errs = append(errs, "tiering.truck_types must not be empty")
		}
		if c.Tiering.IDColumns.Vendor == "" || c.Tiering.IDColumns.Origin == "" || c.Tiering.IDColumns.Destination == "" {
			errs = append(errs, "tiering.id_columns vendor, origin and destination are required")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
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
