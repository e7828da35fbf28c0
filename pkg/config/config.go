// Package config loads the ecsgraph server configuration from TOML.
//
// A complete file with the defaults:
//
//	[log]
//	level = "info"
//
//	[server]
//	addr = ":8080"
//
//	[metrics]
//	enabled = true
//
//	[redis]
//	addr = ""               # empty disables the event stream and artifact cache
//	stream = "ecsgraph:events"
//	cache_ttl = "24h"
//
//	[mongo]
//	uri = ""                # empty disables the batch archive
//	database = "ecsgraph"
//	collection = "batches"
//
// Every section and key is optional. Unknown keys are rejected so typos do
// not silently fall back to defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/ecsgraph/pkg/errors"
)

// Config is the root of the configuration file.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Metrics MetricsConfig `toml:"metrics"`
	Redis   RedisConfig   `toml:"redis"`
	Mongo   MongoConfig   `toml:"mongo"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// MetricsConfig toggles the Prometheus hooks and the /metrics route.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// RedisConfig enables the event stream sink and the shared artifact cache.
type RedisConfig struct {
	Addr     string        `toml:"addr"`
	Stream   string        `toml:"stream"`
	CacheTTL time.Duration `toml:"cache_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// MongoConfig enables the batch archive sink.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Enabled reports whether a MongoDB URI is configured.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Enabled: true},
		Redis: RedisConfig{
			Stream:   "ecsgraph:events",
			CacheTTL: 24 * time.Hour,
		},
		Mongo: MongoConfig{
			Database:   "ecsgraph",
			Collection: "batches",
		},
	}
}

// Load reads path on top of [Default] and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes TOML text on top of [Default] and validates the result.
func Parse(data string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "decode config")
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func checkUndecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return errs.New(errs.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(names, ", "))
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Log.ParseLevel(); err != nil {
		return err
	}
	if c.Server.Addr == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "server.addr must not be empty")
	}
	if c.Redis.Enabled() {
		if strings.Contains(c.Redis.Addr, "://") {
			return errs.New(errs.ErrCodeInvalidConfig, "redis.addr must be host:port, got %q", c.Redis.Addr)
		}
		if c.Redis.Stream == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "redis.stream must not be empty")
		}
		if c.Redis.CacheTTL < 0 {
			return errs.New(errs.ErrCodeInvalidConfig, "redis.cache_ttl must not be negative")
		}
	}
	if c.Mongo.Enabled() {
		if err := errs.ValidateURL(c.Mongo.URI, "mongodb", "mongodb+srv"); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "mongo.uri")
		}
		if c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "mongo.database and mongo.collection must not be empty")
		}
	}
	return nil
}

// ParseLevel converts the configured level name.
func (c LogConfig) ParseLevel() (log.Level, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidConfig, err, "log.level")
	}
	return level, nil
}

func (c Config) String() string {
	return fmt.Sprintf("server=%s metrics=%t redis=%t mongo=%t",
		c.Server.Addr, c.Metrics.Enabled, c.Redis.Enabled(), c.Mongo.Enabled())
}
