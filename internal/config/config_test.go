package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg.Cache != def.Cache || cfg.UI != def.UI || cfg.Log != def.Log {
		t.Errorf("missing file did not yield defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[cache]
capacity = 128
ttl_seconds = 5
stats = true

[ui]
show_hidden = true
tick_ms = 100

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Capacity != 128 {
		t.Errorf("capacity = %d, want 128", cfg.Cache.Capacity)
	}
	if cfg.Cache.TTLSeconds != 5 {
		t.Errorf("ttl_seconds = %d, want 5", cfg.Cache.TTLSeconds)
	}
	if !cfg.Cache.Stats {
		t.Error("stats not enabled")
	}
	if !cfg.UI.ShowHidden {
		t.Error("show_hidden not set")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	// Unset fields keep their defaults.
	if cfg.Cache.Shards != Default().Cache.Shards {
		t.Errorf("shards = %d, want default %d", cfg.Cache.Shards, Default().Cache.Shards)
	}
}

func TestLoadBadTOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cache\ncapacity="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestCacheSettings(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.TTLSeconds = 7
	s := cfg.CacheSettings()
	if s.TTL != 7*time.Second {
		t.Errorf("TTL = %v, want 7s", s.TTL)
	}
	if s.MaxCapacity != cfg.Cache.Capacity {
		t.Errorf("capacity = %d, want %d", s.MaxCapacity, cfg.Cache.Capacity)
	}
}
