package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds storefront settings. It is read once at process start.
type Config struct {
	Port   string `yaml:"port"`
	APIURL string `yaml:"api_url"`

	// Redis cache for upstream listings
	RedisURL string `yaml:"redis_url"`
	RedisDB  int    `yaml:"redis_db"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds

	// StateDir holds the Pebble store for session, cart and wishlist.
	// Empty keeps state in memory.
	StateDir string `yaml:"state_dir"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	RateLimit float64 `yaml:"rate_limit"` // requests per second per client IP
	RateBurst int     `yaml:"rate_burst"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         "8085",
		APIURL:       "http://localhost:5000",
		RedisURL:     "redis://localhost:6379",
		CacheTTL:     600,
		FetchTimeout: 15 * time.Second,
		RateLimit:    10,
		RateBurst:    20,
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. A .env file in the working directory is loaded
// into the environment first if present.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("STOREFRONT_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = db
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.CacheTTL = ttl
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.RateLimit = limit
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_BURST: %w", err)
		}
		c.RateBurst = burst
	}
	return nil
}

// Validate rejects settings the storefront cannot run with.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout cannot be negative")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	return nil
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}
