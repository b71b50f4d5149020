// Package config resolves runtime configuration: defaults, then an optional
// YAML file, then CHOICETREE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// UserConfigDir is the directory holding the database and config file.
	UserConfigDir = ".choicetree"
	// ConfigFile is the name of the config file inside UserConfigDir.
	ConfigFile = "config.yaml"
)

// Config holds all runtime settings.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// AssumeYes answers every confirmation prompt with yes.
	AssumeYes bool `yaml:"assume_yes"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
	Path string `yaml:"path" validate:"required,startswith=/"`
}

var validate = validator.New()

// DefaultConfig returns a Config with the database under the user's home
// directory, text logging at info level and metrics disabled.
func DefaultConfig() *Config {
	dbPath := "choicetree.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, UserConfigDir, "choicetree.db")
	}
	return &Config{
		Database: DatabaseConfig{Path: dbPath},
		Log:      LogConfig{Level: "info", Format: "text"},
		Metrics:  MetricsConfig{Path: "/metrics"},
	}
}

// LoadFromFile reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the configuration. An empty path means the default user
// config file, which may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, UserConfigDir, ConfigFile)
		}
	}
	if path != "" {
		fromFile, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fromFile
		case explicit || !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CHOICETREE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CHOICETREE_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CHOICETREE_LOG_FORMAT"); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("CHOICETREE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("CHOICETREE_ASSUME_YES"); v != "" {
		c.AssumeYes = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SaveToFile writes the config as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// NewLogger builds the slog logger described by c.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c *Config) level() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
