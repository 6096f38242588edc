package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Dir != "/tmp/topicsearch_index" {
		t.Errorf("Index.Dir = %q", cfg.Index.Dir)
	}
	if cfg.Predict.TopicsCount != 5 {
		t.Errorf("Predict.TopicsCount = %d, want 5", cfg.Predict.TopicsCount)
	}
	if cfg.Predict.Concurrency != 4 {
		t.Errorf("Predict.Concurrency = %d, want 4", cfg.Predict.Concurrency)
	}
	if cfg.Predict.Timeout != 30*time.Second {
		t.Errorf("Predict.Timeout = %v", cfg.Predict.Timeout)
	}
	if cfg.Redis.Enabled() {
		t.Error("cache should be disabled by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
index:
  dir: /var/lib/topicsearch
predict:
  host: api.xplr.example.com
  ssl: true
  apiKey: file-key
  timeout: 10s
redis:
  addr: localhost:6379
  cacheTTL: 2m
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Dir != "/var/lib/topicsearch" {
		t.Errorf("Index.Dir = %q", cfg.Index.Dir)
	}
	if cfg.Predict.Host != "api.xplr.example.com" || !cfg.Predict.SSL {
		t.Errorf("Predict = %+v", cfg.Predict)
	}
	if cfg.Predict.Timeout != 10*time.Second {
		t.Errorf("Predict.Timeout = %v", cfg.Predict.Timeout)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	// Fields the file omits keep their defaults.
	if cfg.Predict.Concurrency != 4 {
		t.Errorf("Predict.Concurrency = %d, want default 4", cfg.Predict.Concurrency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TS_INDEX_DIR", "/env/index")
	t.Setenv("TS_PREDICT_HOST", "env-host")
	t.Setenv("TS_PREDICT_PORT", "8443")
	t.Setenv("TS_PREDICT_SSL", "true")
	t.Setenv("TS_PREDICT_API_KEY", "env-key")
	t.Setenv("TS_REDIS_ADDR", "env-redis:6379")
	t.Setenv("TS_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.Dir != "/env/index" {
		t.Errorf("Index.Dir = %q", cfg.Index.Dir)
	}
	if cfg.Predict.Host != "env-host" || cfg.Predict.Port != 8443 || !cfg.Predict.SSL {
		t.Errorf("Predict = %+v", cfg.Predict)
	}
	if cfg.Predict.APIKey != "env-key" {
		t.Errorf("Predict.APIKey = %q", cfg.Predict.APIKey)
	}
	if cfg.Redis.Addr != "env-redis:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestPredictBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  PredictConfig
		want string
	}{
		{"plain host", PredictConfig{Host: "api.example.com"}, "http://api.example.com"},
		{"with port", PredictConfig{Host: "api.example.com", Port: 8080}, "http://api.example.com:8080"},
		{"ssl", PredictConfig{Host: "api.example.com", SSL: true}, "https://api.example.com"},
		{"ssl with port", PredictConfig{Host: "api.example.com", Port: 443, SSL: true}, "https://api.example.com:443"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
