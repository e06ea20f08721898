package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/subsidy/pkg/domain/entities"
)

// Config is the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Scope     ScopeConfig     `yaml:"scope"`
}

type DatabaseConfig struct {
	// Driver is "postgres", "sqlite" or "memory"
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type ReconcileConfig struct {
	ChunkSize        int   `yaml:"chunk_size"`
	DefaultRequested int64 `yaml:"default_requested"`
}

type ScopeConfig struct {
	LookbackDays int      `yaml:"lookback_days"`
	Statuses     []string `yaml:"statuses"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Database:  DatabaseConfig{Driver: "memory"},
		Log:       LogConfig{Mode: "dev"},
		Reconcile: ReconcileConfig{ChunkSize: 1000},
		Scope:     ScopeConfig{LookbackDays: 30, Statuses: []string{string(entities.StatusOutstanding)}},
	}
}

// Load reads an optional .env file, an optional YAML file and SUBSIDY_*
// environment overrides, in that order of precedence (env wins).
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SUBSIDY_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("SUBSIDY_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("SUBSIDY_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := getenv("SUBSIDY_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUBSIDY_CHUNK_SIZE: %w", err)
		}
		c.Reconcile.ChunkSize = n
	}
	if v := getenv("SUBSIDY_LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SUBSIDY_LOOKBACK_DAYS: %w", err)
		}
		c.Scope.LookbackDays = n
	}
	if v := getenv("SUBSIDY_STATUSES"); v != "" {
		c.Scope.Statuses = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the configuration
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Reconcile.ChunkSize <= 0 {
		return fmt.Errorf("reconcile chunk size must be positive, got %d", c.Reconcile.ChunkSize)
	}
	if c.Reconcile.DefaultRequested < 0 {
		return fmt.Errorf("default requested cannot be negative, got %d", c.Reconcile.DefaultRequested)
	}
	if c.Scope.LookbackDays < 0 {
		return fmt.Errorf("lookback days cannot be negative, got %d", c.Scope.LookbackDays)
	}
	return nil
}

// OpenStatuses returns the configured open contract statuses
func (c ScopeConfig) OpenStatuses() []entities.ContractStatus {
	out := make([]entities.ContractStatus, 0, len(c.Statuses))
	for _, s := range c.Statuses {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, entities.ContractStatus(s))
		}
	}
	if len(out) == 0 {
		return entities.DefaultOpenStatuses
	}
	return out
}

// Window returns the issue-date window ending at now
func (c ScopeConfig) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -c.LookbackDays), now
}
