// Package config loads the server configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string      `yaml:"port"`
	Database    string      `yaml:"database"`
	LogLevel    string      `yaml:"log_level"`
	AdminKeyOut string      `yaml:"admin_key_out"`
	Cache       CacheConfig `yaml:"cache"`
}

type CacheConfig struct {
	RenderSize int         `yaml:"render_size"`
	EntitySize int         `yaml:"entity_size"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig backs the render and entity bins with Redis when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

func Default() Config {
	return Config{
		Port:     "8080",
		Database: "./paradel.db",
		LogLevel: "info",
		Cache: CacheConfig{
			RenderSize: 256,
			EntitySize: 1024,
			Redis: RedisConfig{
				Prefix: "paradel:cache:",
				TTL:    time.Hour,
			},
		},
	}
}

// Load reads path over the defaults. A missing path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required")
	}
	if strings.TrimSpace(cfg.Database) == "" {
		return errors.New("config: database is required")
	}
	if cfg.Cache.RenderSize < 0 || cfg.Cache.EntitySize < 0 {
		return errors.New("config: cache sizes must not be negative")
	}
	return nil
}
