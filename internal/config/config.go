// Package config loads the formflow runtime configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds all formflow configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Theme    ThemeConfig    `yaml:"theme"`
	Progress ProgressConfig `yaml:"progress"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	BaseURL string            `yaml:"baseURL"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// StoreConfig selects where sessions and completion data persist.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // memory, file, sqlite, redis
	Path   string      `yaml:"path"`   // directory for file, database for sqlite
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ThemeConfig configures theme caching.
type ThemeConfig struct {
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ProgressConfig configures draft autosave.
type ProgressConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
			Headers: map[string]string{},
		},
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   ".formflow",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "formflow",
			},
		},
		Theme: ThemeConfig{
			CacheTTL: 10 * time.Minute,
		},
		Progress: ProgressConfig{
			Interval: 2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.baseURL is required")
	}
	if c.API.Timeout < 0 {
		return errors.New("config: api.timeout must not be negative")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("config: store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverRedis:
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return errors.New("config: store.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Theme.CacheTTL < 0 {
		return errors.New("config: theme.cacheTTL must not be negative")
	}
	if c.Progress.Interval < 0 {
		return errors.New("config: progress.interval must not be negative")
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("FORMFLOW_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := getenv("FORMFLOW_API_TOKEN"); v != "" {
		if c.API.Headers == nil {
			c.API.Headers = map[string]string{}
		}
		c.API.Headers["Authorization"] = "Bearer " + v
	}
	if v := getenv("FORMFLOW_STORE_DRIVER"); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := getenv("FORMFLOW_REDIS_ADDR"); v != "" {
		c.Store.Redis.Addr = v
	}
	if v := getenv("FORMFLOW_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: FORMFLOW_REDIS_DB: %w", err)
		}
		c.Store.Redis.DB = db
	}
	if v := getenv("FORMFLOW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}
