package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
redis:
  addr: "localhost:6379"
  ttl: "2h"
postgres:
  url: "postgres://quiz@localhost/quizdb"
quiz:
  revealMode: true
  bankTTL: "30m"
  clockSync: "5s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Quiz.RevealMode {
		t.Fatalf("expected reveal mode on")
	}
	if cfg.SessionTTL() != 2*time.Hour || cfg.BankTTL() != 30*time.Minute || cfg.ClockSyncInterval() != 5*time.Second {
		t.Fatalf("unexpected durations: %v %v %v", cfg.SessionTTL(), cfg.BankTTL(), cfg.ClockSyncInterval())
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `server:
  port: "8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL() != DefaultSessionTTL || cfg.BankTTL() != DefaultBankTTL || cfg.ClockSyncInterval() != DefaultClockSync {
		t.Fatalf("expected fallback durations, got %v %v %v", cfg.SessionTTL(), cfg.BankTTL(), cfg.ClockSyncInterval())
	}
	if cfg.Quiz.RevealMode {
		t.Fatalf("reveal mode must default to off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `redis:
  addr: "file:6379"
postgres:
  url: "postgres://file"
`)
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("POSTGRES_URL", "postgres://env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "env:6379" || cfg.Postgres.URL != "postgres://env" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "env:6379")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Fatalf("env override must apply without a file: %+v", cfg)
	}
	if cfg.SessionTTL() != DefaultSessionTTL {
		t.Fatalf("expected default session TTL, got %v", cfg.SessionTTL())
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}

func TestDurationFallbackOnGarbage(t *testing.T) {
	if got := duration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for unparseable duration, got %v", got)
	}
}
