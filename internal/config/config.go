package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// List modes.
const (
	ModeLocal  = "local"
	ModeSynced = "synced"
)

// Config holds all todolist configuration.
type Config struct {
	// Server settings
	Port string `yaml:"port"`

	// Mode selects the in-memory list or the store-backed projection.
	Mode string `yaml:"mode"`

	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the document store used in synced mode.
type StoreConfig struct {
	Path           string `yaml:"path"`
	Collection     string `yaml:"collection"`
	RequestTimeout string `yaml:"request_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port: "8080",
		Mode: ModeSynced,
		Store: StoreConfig{
			Path:           "./data/todolist.db",
			Collection:     "todos",
			RequestTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Mode = getEnv("TODO_MODE", c.Mode)
	c.Store.Path = getEnv("DB_PATH", c.Store.Path)
	c.Store.Collection = getEnv("TODO_COLLECTION", c.Store.Collection)
	c.Store.RequestTimeout = getEnv("REQUEST_TIMEOUT", c.Store.RequestTimeout)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.Mode != ModeLocal && c.Mode != ModeSynced {
		return fmt.Errorf("mode must be '%s' or '%s', got %q", ModeLocal, ModeSynced, c.Mode)
	}

	if c.Mode == ModeSynced {
		if c.Store.Path == "" {
			return errors.New("store.path is required in synced mode")
		}
		if c.Store.Collection == "" {
			return errors.New("store.collection is required in synced mode")
		}
		if _, err := c.RequestTimeout(); err != nil {
			return err
		}
	}

	return nil
}

// RequestTimeout parses Store.RequestTimeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Store.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid store.request_timeout %q: %w", c.Store.RequestTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("store.request_timeout must be positive, got %s", d)
	}
	return d, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
