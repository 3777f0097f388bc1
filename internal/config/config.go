// Package config loads application configuration and initializes logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Google GoogleConfig `yaml:"google" mapstructure:"google"`
	Yelp   YelpConfig   `yaml:"yelp" mapstructure:"yelp"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// YelpConfig holds Yelp Fusion API settings.
type YelpConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// EnrichConfig configures the reconciliation engine.
type EnrichConfig struct {
	// Provider is the default provider when --provider is not given.
	Provider string `yaml:"provider" mapstructure:"provider"`
	// Region is the state/region appended to search queries.
	Region string `yaml:"region" mapstructure:"region"`
	// RateLimit paces adapter calls, requests per second. Independent of
	// the daily quota.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	// StaleDays is the default age before a venue counts as stale.
	StaleDays int `yaml:"stale_days" mapstructure:"stale_days"`
	// DiscoverLimit is the default number of venues discovered per
	// city/type pair.
	DiscoverLimit int `yaml:"discover_limit" mapstructure:"discover_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ABOUTHR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "abouthr.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("google.key", "")
	v.SetDefault("yelp.key", "")
	v.SetDefault("enrich.provider", "google")
	v.SetDefault("enrich.region", "VA")
	v.SetDefault("enrich.rate_limit", 10)
	v.SetDefault("enrich.stale_days", 7)
	v.SetDefault("enrich.discover_limit", 20)
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
