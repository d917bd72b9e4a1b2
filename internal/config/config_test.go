package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  http_addr: ":9999"
persist:
  batch_size: 7
  flush_timeout: 250ms
  channel_size: 16
assets:
  - symbol: SCX
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Errorf("http addr = %q, want :9999", cfg.Server.HTTPAddr)
	}
	if cfg.Persist.BatchSize != 7 {
		t.Errorf("batch size = %d, want 7", cfg.Persist.BatchSize)
	}
	if cfg.Persist.FlushTimeout != 250*time.Millisecond {
		t.Errorf("flush timeout = %s, want 250ms", cfg.Persist.FlushTimeout)
	}
	if len(cfg.Assets) != 1 || cfg.Assets[0].Symbol != "SCX" {
		t.Errorf("assets = %+v, want one SCX entry", cfg.Assets)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.MetricsAddr != ":9090" {
		t.Errorf("metrics addr = %q, want :9090", cfg.Server.MetricsAddr)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("YSR_HTTP_ADDR", ":7777")
	t.Setenv("YSR_POSTGRES_ENABLED", "false")
	t.Setenv("YSR_SNAPSHOT_INTERVAL", "30s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":7777" {
		t.Errorf("http addr = %q, want :7777", cfg.Server.HTTPAddr)
	}
	if cfg.Postgres.Enabled {
		t.Error("postgres should be disabled")
	}
	if cfg.Snapshot.Interval != 30*time.Second {
		t.Errorf("snapshot interval = %s, want 30s", cfg.Snapshot.Interval)
	}
}

func TestValidationRejectsEmptyAssets(t *testing.T) {
	cfg := Default()
	cfg.Assets = nil
	if err := cfg.validate(); err == nil {
		t.Fatal("expected validation error for empty assets")
	}
}

func TestValidationRejectsUnknownAssetSymbol(t *testing.T) {
	cfg := Default()
	cfg.Assets = append(cfg.Assets, AssetConfig{Symbol: "SHIB"})
	if err := cfg.validate(); err == nil {
		t.Fatal("expected validation error for unregistered asset")
	}
}
