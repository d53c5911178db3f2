package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.RatesFreshFor != 5*time.Minute || cfg.RatesMaxStaleness != 24*time.Hour {
		t.Fatalf("unexpected rate cache policy: fresh=%s stale=%s", cfg.RatesFreshFor, cfg.RatesMaxStaleness)
	}

	if cfg.HasStaticRate() {
		t.Fatalf("expected no static rate by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("RATES_STATIC_BUY", "980.5")
	t.Setenv("RATES_STATIC_SELL", "1020")
	t.Setenv("EVENT_SINK", "redis")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("expected two CORS origins, got %v", cfg.CORSOrigins)
	}

	if !cfg.HasStaticRate() || !cfg.RatesStaticBuy.Equal(decimal.RequireFromString("980.5")) {
		t.Fatalf("expected static rate, got buy=%s sell=%s", cfg.RatesStaticBuy, cfg.RatesStaticSell)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"duration", map[string]string{"HTTP_READ_TIMEOUT": "not-a-duration"}},
		{"half a static rate", map[string]string{"RATES_STATIC_BUY": "900"}},
		{"negative static rate", map[string]string{"RATES_STATIC_BUY": "-1", "RATES_STATIC_SELL": "900"}},
		{"no rate source", map[string]string{"RATES_URL": " "}},
		{"staleness below freshness", map[string]string{"RATES_FRESH_FOR": "1h", "RATES_MAX_STALENESS": "1m"}},
		{"event sink", map[string]string{"EVENT_SINK": "kafka"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("OUTBOX_BATCH_SIZE=7\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = os.Unsetenv("OUTBOX_BATCH_SIZE") })

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.OutboxBatchSize != 7 {
		t.Fatalf("expected batch size from env file, got %d", cfg.OutboxBatchSize)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("process environment must win over the env file, got %s", cfg.LogLevel)
	}
}
