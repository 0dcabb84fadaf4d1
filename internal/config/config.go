// Package config loads arenalog settings from defaults, an optional YAML
// file and ARENALOG_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/arenalog/arenalog-go/internal/logging"
	"github.com/arenalog/arenalog-go/internal/scryfall"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ARENALOG_"

// EnvConfigPath names the YAML file to load when no path is given.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Config is the complete arenalog configuration.
type Config struct {
	LogDir       string        `koanf:"log_dir"`
	MainLog      string        `koanf:"main_log"`
	PlayerLog    string        `koanf:"player_log"`
	Pattern      string        `koanf:"pattern"`
	PollInterval time.Duration `koanf:"poll_interval"`
	ChunkSize    int           `koanf:"chunk_size"`
	FromStart    bool          `koanf:"from_start"`

	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Cache      CacheConfig      `koanf:"cache"`
	Resolve    ResolveConfig    `koanf:"resolve"`
	Scryfall   ScryfallConfig   `koanf:"scryfall"`
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// CheckpointConfig locates the badger checkpoint database. An empty Dir
// disables persistent checkpoints.
type CheckpointConfig struct {
	Dir string `koanf:"dir"`
}

// CacheConfig configures the card caches.
type CacheConfig struct {
	Path          string `koanf:"path"`
	MemoryEntries int    `koanf:"memory_entries"`
}

// ResolveConfig sizes the resolution queue.
type ResolveConfig struct {
	QueueSize  int           `koanf:"queue_size"`
	Workers    int           `koanf:"workers"`
	Timeout    time.Duration `koanf:"timeout"`
	// RetryAfter delays another lookup of a card whose lookup failed.
	RetryAfter time.Duration `koanf:"retry_after"`
}

type ScryfallConfig struct {
	BaseURL       string  `koanf:"base_url"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig enables the /metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	data := dataDir()
	return &Config{
		Pattern:      "UTC_Log*.log",
		PollInterval: time.Second,
		ChunkSize:    64 * 1024,
		Checkpoint: CheckpointConfig{
			Dir: filepath.Join(data, "checkpoints"),
		},
		Cache: CacheConfig{
			Path:          filepath.Join(data, "cards.db"),
			MemoryEntries: 4096,
		},
		Resolve: ResolveConfig{
			QueueSize:  256,
			Workers:    2,
			Timeout:    10 * time.Second,
			RetryAfter: time.Minute,
		},
		Scryfall: ScryfallConfig{
			BaseURL:       scryfall.DefaultBaseURL,
			RatePerSecond: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// dataDir is where arenalog keeps its state by default.
func dataDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "arenalog")
	}
	return ".arenalog"
}

// Load builds a Config from defaults, the YAML file at path (or
// $ARENALOG_CONFIG when path is empty) and the environment. A named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envKeys maps environment variable suffixes to config paths. Underscores
// appear both inside key names and between sections, so the mapping is
// explicit.
var envKeys = map[string]string{
	"log_dir":                  "log_dir",
	"main_log":                 "main_log",
	"player_log":               "player_log",
	"pattern":                  "pattern",
	"poll_interval":            "poll_interval",
	"chunk_size":               "chunk_size",
	"from_start":               "from_start",
	"checkpoint_dir":           "checkpoint.dir",
	"cache_path":               "cache.path",
	"cache_memory_entries":     "cache.memory_entries",
	"resolve_queue_size":       "resolve.queue_size",
	"resolve_workers":          "resolve.workers",
	"resolve_timeout":          "resolve.timeout",
	"scryfall_base_url":        "scryfall.base_url",
	"scryfall_rate_per_second": "scryfall.rate_per_second",
	"log_level":                "log.level",
	"log_format":               "log.format",
	"metrics_addr":             "metrics.addr",
}

// envTransformFunc turns ARENALOG_RESOLVE_WORKERS into resolve.workers.
// Unknown variables (including ARENALOG_CONFIG) are skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if path, ok := envKeys[key]; ok {
		return path
	}
	return ""
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Cache.MemoryEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.memory_entries must be positive, got %d", c.Cache.MemoryEntries))
	}
	if c.Resolve.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("resolve.queue_size must be positive, got %d", c.Resolve.QueueSize))
	}
	if c.Resolve.Workers <= 0 {
		errs = append(errs, fmt.Errorf("resolve.workers must be positive, got %d", c.Resolve.Workers))
	}
	if c.Resolve.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("resolve.timeout must be positive, got %v", c.Resolve.Timeout))
	}
	if c.Scryfall.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("scryfall.rate_per_second must be positive, got %v", c.Scryfall.RatePerSecond))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
