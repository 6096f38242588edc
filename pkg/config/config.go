// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Index, Predict, Search, Redis, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Predict PredictConfig `yaml:"predict"`
	Search  SearchConfig  `yaml:"search"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexConfig holds the on-disk index location.
type IndexConfig struct {
	Dir string `yaml:"dir"`
}

// PredictConfig holds connection parameters for the topic-prediction API.
type PredictConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	SSL         bool          `yaml:"ssl"`
	APIKey      string        `yaml:"apiKey"`
	TopicsCount int           `yaml:"topicsCount"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

// BaseURL returns the prediction endpoint root, honouring the SSL flag and
// the optional port.
func (p PredictConfig) BaseURL() string {
	scheme := "http"
	if p.SSL {
		scheme = "https"
	}
	host := p.Host
	if p.Port > 0 {
		host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s", scheme, host)
}

// SearchConfig controls query execution limits.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
}

// RedisConfig holds query-cache connection parameters. An empty Addr
// disables the cache entirely.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// Enabled reports whether a cache backend is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server exposed during long
// indexing runs.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads the YAML file at path (if non-empty) on top of the defaults,
// then applies TS_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config matching the original program's defaults.
func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Dir: "/tmp/topicsearch_index",
		},
		Predict: PredictConfig{
			TopicsCount: 5,
			Concurrency: 4,
			Timeout:     30 * time.Second,
			MaxRetries:  3,
		},
		Search: SearchConfig{
			MaxResults:   0,
			DefaultLimit: 0,
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TS_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("TS_PREDICT_HOST"); v != "" {
		cfg.Predict.Host = v
	}
	if v := os.Getenv("TS_PREDICT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Predict.Port = port
		}
	}
	if v := os.Getenv("TS_PREDICT_SSL"); v != "" {
		if ssl, err := strconv.ParseBool(v); err == nil {
			cfg.Predict.SSL = ssl
		}
	}
	if v := os.Getenv("TS_PREDICT_API_KEY"); v != "" {
		cfg.Predict.APIKey = v
	}
	if v := os.Getenv("TS_PREDICT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Predict.Concurrency = n
		}
	}
	if v := os.Getenv("TS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
