// Package config loads the server and CLI configuration from YAML.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/physics-compliance/compliance"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Refresher  RefresherConfig  `yaml:"refresher"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	CORSOrigins     []string `yaml:"cors_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ComplianceConfig holds engine tunables.
type ComplianceConfig struct {
	UpcomingWindowDays int `yaml:"upcoming_window_days"`
	ScheduleBufferDays int `yaml:"schedule_buffer_days"`
}

// RefresherConfig controls the background summary refresher.
type RefresherConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	Interval        time.Duration `yaml:"-"`
	CacheTTL        time.Duration `yaml:"-"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Refresher: RefresherConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path. Fields missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Config{Refresher: RefresherConfig{Enabled: true}}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = DefaultCORSOrigins()
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 20
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 40
	}

	if c.Database.Path == "" {
		c.Database.Path = "compliance.db"
	}

	c.Compliance.UpcomingWindowDays = compliance.NormalizeWindow(c.Compliance.UpcomingWindowDays)
	if c.Compliance.ScheduleBufferDays <= 0 {
		c.Compliance.ScheduleBufferDays = compliance.DefaultScheduleBufferDays
	}

	if c.Refresher.IntervalSeconds <= 0 {
		c.Refresher.IntervalSeconds = 300
	}
	c.Refresher.Interval = time.Duration(c.Refresher.IntervalSeconds) * time.Second
	if c.Refresher.CacheTTLSeconds <= 0 {
		c.Refresher.CacheTTLSeconds = 600
	}
	c.Refresher.CacheTTL = time.Duration(c.Refresher.CacheTTLSeconds) * time.Second

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// NewLogger builds the process logger from the log section.
func NewLogger(lc LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// DefaultCORSOrigins are the local dashboard dev servers.
func DefaultCORSOrigins() []string {
	return []string{"http://localhost:5173", "http://localhost:8080"}
}
