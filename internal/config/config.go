// Package config loads server settings from an optional YAML file with
// environment variable overrides. All the retry counts and timeout budgets
// live here; their defaults are the values observed to work against the
// supported targets, not invariants.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry values like "45s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type RedisConfig struct {
	Host     string   `yaml:"host"`
	Port     string   `yaml:"port"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

type EngineConfig struct {
	Attempts        int      `yaml:"attempts"`
	StrategyTimeout Duration `yaml:"strategy_timeout"`
}

type BrowserConfig struct {
	NavigateTimeout Duration `yaml:"navigate_timeout"`
	CaptureTimeout  Duration `yaml:"capture_timeout"`
}

type SessionConfig struct {
	Path          string   `yaml:"path"`
	PruneInterval Duration `yaml:"prune_interval"`
	PruneMaxAge   Duration `yaml:"prune_max_age"`
}

type Config struct {
	Port         string        `yaml:"port"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	AlertWebhook string        `yaml:"alert_webhook"`
	Redis        RedisConfig   `yaml:"redis"`
	Engine       EngineConfig  `yaml:"engine"`
	Browser      BrowserConfig `yaml:"browser"`
	Session      SessionConfig `yaml:"session"`
}

func Default() Config {
	return Config{
		Port:         "8080",
		CacheEnabled: true,
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
			TTL:  Duration(5 * time.Minute),
		},
		Engine: EngineConfig{
			Attempts:        5,
			StrategyTimeout: Duration(200 * time.Second),
		},
		Browser: BrowserConfig{
			NavigateTimeout: Duration(60 * time.Second),
			CaptureTimeout:  Duration(30 * time.Second),
		},
		Session: SessionConfig{
			Path:          "sessions.db",
			PruneInterval: Duration(time.Hour),
			PruneMaxAge:   Duration(7 * 24 * time.Hour),
		},
	}
}

// Load reads the YAML file at path when it exists, then applies env
// overrides on top. A missing file is not an error; env-only deployments
// are common.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		} else if !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.CacheEnabled = getEnvBool("CACHE_ENABLED", cfg.CacheEnabled)
	cfg.AlertWebhook = getEnv("ALERT_WEBHOOK", cfg.AlertWebhook)
	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnv("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.TTL = getEnvDuration("REDIS_TTL", cfg.Redis.TTL)
	cfg.Engine.Attempts = getEnvInt("ENGINE_ATTEMPTS", cfg.Engine.Attempts)
	cfg.Engine.StrategyTimeout = getEnvDuration("ENGINE_STRATEGY_TIMEOUT", cfg.Engine.StrategyTimeout)
	cfg.Browser.NavigateTimeout = getEnvDuration("BROWSER_NAVIGATE_TIMEOUT", cfg.Browser.NavigateTimeout)
	cfg.Browser.CaptureTimeout = getEnvDuration("BROWSER_CAPTURE_TIMEOUT", cfg.Browser.CaptureTimeout)
	cfg.Session.Path = getEnv("SESSION_DB", cfg.Session.Path)
	cfg.Session.PruneInterval = getEnvDuration("SESSION_PRUNE_INTERVAL", cfg.Session.PruneInterval)
	cfg.Session.PruneMaxAge = getEnvDuration("SESSION_PRUNE_MAX_AGE", cfg.Session.PruneMaxAge)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return Duration(duration)
}
