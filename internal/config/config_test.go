package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Cache.TTL.Std() != 10*time.Minute {
		t.Fatalf("default cache TTL = %v, want 10m", cfg.Cache.TTL)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("default redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("default server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxirides.yaml")
	data := `
postgres:
  url: postgres://db.internal:5432/rides
redis:
  addr: redis.internal:6379
  db: 2
cache:
  ttl: 5m
server:
  addr: ":9000"
  log_format: json
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Postgres.URL != "postgres://db.internal:5432/rides" {
		t.Fatalf("postgres url = %q", cfg.Postgres.URL)
	}
	if cfg.Redis.DB != 2 {
		t.Fatalf("redis db = %d", cfg.Redis.DB)
	}
	if cfg.Cache.TTL.Std() != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
	// Unset fields keep their defaults.
	if cfg.Server.LogLevel != "info" {
		t.Fatalf("log level = %q, want default info", cfg.Server.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TAXIRIDES_REDIS_ADDR", "override:6379")
	t.Setenv("TAXIRIDES_CACHE_TTL", "30s")
	t.Setenv("TAXIRIDES_REDIS_DB", "5")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	if cfg.Redis.Addr != "override:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if cfg.Cache.TTL.Std() != 30*time.Second {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Redis.DB != 5 {
		t.Fatalf("redis db = %d", cfg.Redis.DB)
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
