package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/deechtejoao/tuifeed/logger"
)

const baseCfgPath = "tuifeed/config.toml"

// Config holds application settings. The feed list itself lives in a
// separate JSON document, see feeds.go.
type Config struct {
	FeedsPath             string `toml:"feeds_path"`
	CachePath             string `toml:"cache_path"`
	Workers               int    `toml:"workers"`                 // bounded fetch concurrency
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // per-feed network timeout
	RunTimeoutSeconds     int    `toml:"run_timeout_seconds"`     // soft bound on the whole run
	CacheTTLMinutes       int    `toml:"cache_ttl_minutes"`       // entry freshness window
	MaxAgeHours           int    `toml:"max_age_hours"`           // items older than this are dropped
	Retries               int    `toml:"retries"`                 // transient fetch retries
	UserAgent             string `toml:"user_agent"`
	Log                   Log    `toml:"log"`
}

// Log configures the logger package.
type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	logger.Infof("config written at %s", cfgPath)
	return nil
}

func Default() Config {
	return Config{
		FeedsPath:             path.Join(configHome(), "tuifeed/feeds.json"),
		CachePath:             path.Join(cacheHome(), "tuifeed/cache.db"),
		Workers:               8,
		RequestTimeoutSeconds: 10,
		RunTimeoutSeconds:     60,
		CacheTTLMinutes:       15,
		MaxAgeHours:           24,
		Retries:               2,
		UserAgent:             "tuifeed/1.0",
	}
}

func DefaultPath() string {
	return path.Join(configHome(), baseCfgPath)
}

func configHome() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return xdgHome
	}
	if home := os.Getenv("HOME"); home != "" {
		return path.Join(home, ".config")
	}
	panic("unclear where to search for the config file")
}

func cacheHome() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return xdgCache
	}
	if home := os.Getenv("HOME"); home != "" {
		return path.Join(home, ".cache")
	}
	return "."
}
