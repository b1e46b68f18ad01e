package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/collabspace/assetkit/internal/archive"
	"github.com/collabspace/assetkit/internal/progress"
	"github.com/collabspace/assetkit/internal/retry"
)

// EnvPrefix is the prefix of every environment variable read by LoadFromEnv.
const EnvPrefix = "COLLABSPACE_"

// Config defines configuration for the collabspace CLI.
type Config struct {
	Catalog      string        `yaml:"catalog"`
	Bucket       string        `yaml:"bucket"`
	Object       string        `yaml:"object"`
	BatchSize    int           `yaml:"batch_size"`
	BatchPause   time.Duration `yaml:"batch_pause"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAssetSize int64         `yaml:"max_asset_size"` // bytes; "MiB" is binary, "MB" decimal
	Progress     bool          `yaml:"progress"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	Timezone     string        `yaml:"timezone"`
	Duplicates   string        `yaml:"duplicates"`
	Retry        RetryConfig   `yaml:"retry"`
}

// RetryConfig defines per-asset retry behavior.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// Policy converts the config to a retry.Policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{Attempts: r.Attempts, BaseDelay: r.BaseDelay}
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BatchSize:    2,
		BatchPause:   time.Second,
		Timeout:      60 * time.Second,
		MaxAssetSize: 512 * 1024 * 1024, // 512MiB
		LogLevel:     "info",
		LogFormat:    "text",
		Timezone:     "Local",
		Duplicates:   "overwrite",
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	Catalog      string          `yaml:"catalog"`
	Bucket       string          `yaml:"bucket"`
	Object       string          `yaml:"object"`
	BatchSize    int             `yaml:"batch_size"`
	BatchPause   string          `yaml:"batch_pause"`
	Timeout      string          `yaml:"timeout"`
	MaxAssetSize string          `yaml:"max_asset_size"`
	Progress     bool            `yaml:"progress"`
	LogLevel     string          `yaml:"log_level"`
	LogFormat    string          `yaml:"log_format"`
	Timezone     string          `yaml:"timezone"`
	Duplicates   string          `yaml:"duplicates"`
	Retry        yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts  int    `yaml:"attempts"`
	BaseDelay string `yaml:"base_delay"`
}

// LoadFromFile loads configuration from a YAML file on top of Default().
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Catalog != "" {
		cfg.Catalog = yc.Catalog
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.Object != "" {
		cfg.Object = yc.Object
	}
	if yc.BatchSize != 0 {
		cfg.BatchSize = yc.BatchSize
	}
	if yc.BatchPause != "" {
		d, err := time.ParseDuration(yc.BatchPause)
		if err != nil {
			return Config{}, fmt.Errorf("parse batch_pause: %w", err)
		}
		cfg.BatchPause = d
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MaxAssetSize != "" {
		size, err := progress.ParseBytes(yc.MaxAssetSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_asset_size: %w", err)
		}
		cfg.MaxAssetSize = size
	}
	cfg.Progress = yc.Progress
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogFormat != "" {
		cfg.LogFormat = yc.LogFormat
	}
	if yc.Timezone != "" {
		cfg.Timezone = yc.Timezone
	}
	if yc.Duplicates != "" {
		cfg.Duplicates = yc.Duplicates
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.BaseDelay != "" {
		d, err := time.ParseDuration(yc.Retry.BaseDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.base_delay: %w", err)
		}
		cfg.Retry.BaseDelay = d
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the COLLABSPACE_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := getenv("CATALOG"); v != "" {
		c.Catalog = v
	}
	if v := getenv("BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := getenv("OBJECT"); v != "" {
		c.Object = v
	}
	if v := getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sBATCH_SIZE: %w", EnvPrefix, err)
		}
		c.BatchSize = n
	}
	if v := getenv("BATCH_PAUSE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sBATCH_PAUSE: %w", EnvPrefix, err)
		}
		c.BatchPause = d
	}
	if v := getenv("TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v := getenv("MAX_ASSET_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse %sMAX_ASSET_SIZE: %w", EnvPrefix, err)
		}
		c.MaxAssetSize = size
	}
	if v := getenv("PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := getenv("DUPLICATES"); v != "" {
		c.Duplicates = v
	}
	if v := getenv("RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.Retry.Attempts = n
	}
	if v := getenv("RETRY_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sRETRY_BASE_DELAY: %w", EnvPrefix, err)
		}
		c.Retry.BaseDelay = d
	}

	return nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// Validate validates the configuration for an export run.
func (c *Config) Validate() error {
	if c.Catalog == "" {
		return errors.New("config: catalog is required")
	}
	if c.Bucket == "" {
		return errors.New("config: bucket is required")
	}
	if c.Object == "" {
		return errors.New("config: object is required")
	}
	if c.BatchSize <= 0 {
		return errors.New("config: batch_size must be positive")
	}
	if c.BatchPause < 0 {
		return errors.New("config: batch_pause must not be negative")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	if c.MaxAssetSize < 0 {
		return errors.New("config: max_asset_size must not be negative")
	}
	if _, err := archive.ParseDuplicatePolicy(c.Duplicates); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	return nil
}

// Location resolves Timezone. "Local" or empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone: %w", err)
	}
	return loc, nil
}

// DuplicatePolicy returns the parsed duplicate policy, defaulting to overwrite.
func (c *Config) DuplicatePolicy() archive.DuplicatePolicy {
	p, _ := archive.ParseDuplicatePolicy(c.Duplicates)
	return p
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Catalog != "" {
		c.Catalog = override.Catalog
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.Object != "" {
		c.Object = override.Object
	}
	if override.BatchSize != 0 {
		c.BatchSize = override.BatchSize
	}
	if override.BatchPause != 0 {
		c.BatchPause = override.BatchPause
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.MaxAssetSize != 0 {
		c.MaxAssetSize = override.MaxAssetSize
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		c.LogFormat = override.LogFormat
	}
	if override.Timezone != "" {
		c.Timezone = override.Timezone
	}
	if override.Duplicates != "" {
		c.Duplicates = override.Duplicates
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.BaseDelay != 0 {
		c.Retry.BaseDelay = override.Retry.BaseDelay
	}
	return c
}
