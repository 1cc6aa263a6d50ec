// Package config loads bloodbuddy settings from config.yaml, a .env file and
// BLOODBUDDY_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/ingest"
	"github.com/bloodbuddy/donor-cli/internal/monitoring"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode  GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Fallback geo.Region    `yaml:"fallback" mapstructure:"fallback"`
	Ingest   IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Server   ServerConfig  `yaml:"server" mapstructure:"server"`
	Log      LogConfig     `yaml:"log" mapstructure:"log"`

	Monitoring monitoring.Config `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the donor store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Database and Collection apply to the mongo driver only.
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	MaxConns   int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns   int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeocodeConfig configures address resolution against Nominatim.
type GeocodeConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	Qualifier        string  `yaml:"qualifier" mapstructure:"qualifier"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PostDelayMs      int     `yaml:"post_delay_ms" mapstructure:"post_delay_ms"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheTTLMins     int     `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	// Disabled skips the network entirely; every donor gets a fallback location.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
}

// Timeout returns the per-request timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// PostDelay returns the pause after each network resolution.
func (g GeocodeConfig) PostDelay() time.Duration {
	return time.Duration(g.PostDelayMs) * time.Millisecond
}

// CacheTTL returns how long resolved addresses are remembered.
func (g GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(g.CacheTTLMins) * time.Minute
}

// BreakerReset returns how long the breaker stays open.
func (g GeocodeConfig) BreakerReset() time.Duration {
	return time.Duration(g.BreakerResetSecs) * time.Second
}

// IngestConfig configures spreadsheet ingestion.
type IngestConfig struct {
	Sheet               string         `yaml:"sheet" mapstructure:"sheet"`
	Columns             ingest.Columns `yaml:"columns" mapstructure:"columns"`
	DownloadTimeoutSecs int            `yaml:"download_timeout_secs" mapstructure:"download_timeout_secs"`
}

// DownloadTimeout returns the timeout for remote spreadsheet downloads.
func (i IngestConfig) DownloadTimeout() time.Duration {
	return time.Duration(i.DownloadTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// .env is optional; existing environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BLOODBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	cols := ingest.DefaultColumns()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.database", "bloodbuddy")
	v.SetDefault("store.collection", "donors")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "BloodBuddyBulkImport/1.0")
	v.SetDefault("geocode.qualifier", "Maharashtra, India")
	v.SetDefault("geocode.timeout_secs", 8)
	v.SetDefault("geocode.post_delay_ms", 1000)
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("geocode.cache_ttl_mins", 60)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.breaker_reset_secs", 30)
	v.SetDefault("geocode.disabled", false)
	v.SetDefault("fallback.name", geo.Amravati.Name)
	v.SetDefault("fallback.min_lat", geo.Amravati.MinLat)
	v.SetDefault("fallback.max_lat", geo.Amravati.MaxLat)
	v.SetDefault("fallback.min_lon", geo.Amravati.MinLon)
	v.SetDefault("fallback.max_lon", geo.Amravati.MaxLon)
	v.SetDefault("ingest.sheet", "")
	v.SetDefault("ingest.columns.name", cols.Name)
	v.SetDefault("ingest.columns.mobile", cols.Mobile)
	v.SetDefault("ingest.columns.address", cols.Address)
	v.SetDefault("ingest.columns.blood_group", cols.BloodGroup)
	v.SetDefault("ingest.download_timeout_secs", 60)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.fallback_rate_threshold", 0.5)
	v.SetDefault("monitoring.reject_rate_threshold", 0.5)
	v.SetDefault("monitoring.pushgateway_url", "")

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

	// Existing deployments keep the connection string in MONGO_URI.
	if cfg.Store.Driver == "mongo" && cfg.Store.DatabaseURL == "" {
		cfg.Store.DatabaseURL = os.Getenv("MONGO_URI")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is one of "ingest",
// "serve", "query" or "migrate". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres", "mongo":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, fmt.Sprintf("store.database_url is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, mongo, memory", c.Store.Driver))
	}
	if c.Store.MinConns > c.Store.MaxConns {
		errs = append(errs, "store.min_conns must not exceed store.max_conns")
	}

	switch mode {
	case "ingest":
		if err := c.Fallback.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if !c.Geocode.Disabled {
			if c.Geocode.BaseURL == "" {
				errs = append(errs, "geocode.base_url is required")
			}
			if c.Geocode.RatePerSec <= 0 {
				errs = append(errs, "geocode.rate_per_sec must be positive")
			}
			if c.Geocode.TimeoutSecs <= 0 {
				errs = append(errs, "geocode.timeout_secs must be positive")
			}
		}
		if c.Ingest.Columns.Mobile == "" || c.Ingest.Columns.Name == "" {
			errs = append(errs, "ingest.columns.name and ingest.columns.mobile are required")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	case "query", "migrate":
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
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
