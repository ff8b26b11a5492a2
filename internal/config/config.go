// Package config loads burrow's TOML configuration. A missing file is not
// an error; every field has a default so a bare install works untouched.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/burrow-sh/burrow/internal/metacache"
)

// Config is the root of the configuration file.
type Config struct {
	Cache CacheConfig `toml:"cache"`
	UI    UIConfig    `toml:"ui"`
	Log   LogConfig   `toml:"log"`
}

// CacheConfig tunes the metadata cache. Durations are whole seconds.
type CacheConfig struct {
	Capacity    int  `toml:"capacity"`
	TTLSeconds  int  `toml:"ttl_seconds"`
	TTISeconds  int  `toml:"tti_seconds"`
	MaxMemoryMB int  `toml:"max_memory_mb"`
	Shards      int  `toml:"shards"`
	Stats       bool `toml:"stats"`
}

// UIConfig tunes interactive behavior.
type UIConfig struct {
	ShowHidden       bool `toml:"show_hidden"`
	TickMillis       int  `toml:"tick_ms"`
	DebounceMillis   int  `toml:"debounce_ms"`
	NotifySeconds    int  `toml:"notify_seconds"`
	EnrichWorkers    int  `toml:"enrich_workers"`
	SlowActionMillis int  `toml:"slow_action_ms"`
}

// LogConfig controls the log file sink.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Capacity:    4096,
			TTLSeconds:  30,
			TTISeconds:  15,
			MaxMemoryMB: 64,
			Shards:      16,
		},
		UI: UIConfig{
			TickMillis:       250,
			DebounceMillis:   250,
			NotifySeconds:    4,
			EnrichWorkers:    8,
			SlowActionMillis: 100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config at path, or the default location when path is
// empty. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = defaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// CacheSettings converts the cache section into metacache terms.
func (c Config) CacheSettings() metacache.Config {
	return metacache.Config{
		MaxCapacity: c.Cache.Capacity,
		TTL:         time.Duration(c.Cache.TTLSeconds) * time.Second,
		TTI:         time.Duration(c.Cache.TTISeconds) * time.Second,
		MaxMemoryMB: c.Cache.MaxMemoryMB,
		NumShards:   c.Cache.Shards,
		EnableStats: c.Cache.Stats,
	}
}

// Tick returns the UI tick interval.
func (c Config) Tick() time.Duration {
	return time.Duration(c.UI.TickMillis) * time.Millisecond
}

// Debounce returns the watcher debounce window.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.UI.DebounceMillis) * time.Millisecond
}

// NotifyTTL returns how long notifications stay on screen.
func (c Config) NotifyTTL() time.Duration {
	return time.Duration(c.UI.NotifySeconds) * time.Second
}

// SlowThreshold returns the dispatch duration worth logging.
func (c Config) SlowThreshold() time.Duration {
	return time.Duration(c.UI.SlowActionMillis) * time.Millisecond
}

func defaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "burrow", "config.toml")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "burrow", "config.toml")
}
