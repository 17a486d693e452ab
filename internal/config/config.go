// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package config provides centralized configuration management for zag.
// It supports deterministic precedence (flags > env > config file > defaults)
// using Viper, and fail-fast validation to prevent silent misconfiguration.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Client ClientConfig `mapstructure:"client" yaml:"client"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	Heartbeat         time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`             // SSE keep-alive interval
	CacheSize         int           `mapstructure:"cache_size" yaml:"cache_size"`           // Historical range responses kept
	TypeCacheTTL      time.Duration `mapstructure:"type_cache_ttl" yaml:"type_cache_ttl"`   // Key type lookups
	IngestRate        float64       `mapstructure:"ingest_rate" yaml:"ingest_rate"`         // Ingest requests per second
	IngestBurst       int           `mapstructure:"ingest_burst" yaml:"ingest_burst"`       // Ingest burst size
	ChannelBuffer     int           `mapstructure:"channel_buffer" yaml:"channel_buffer"`   // Live points queued per channel
	DashboardsFile    string        `mapstructure:"dashboards_file" yaml:"dashboards_file"` // Optional YAML file, reloaded on change
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"` // memory, redis or elasticsearch
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
	ES      ESConfig    `mapstructure:"es" yaml:"es"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// ESConfig holds Elasticsearch connection settings.
type ESConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`         // Elasticsearch URL
	Index   string        `mapstructure:"index" yaml:"index"`     // Index pattern
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"` // Query timeout
}

// ClientConfig holds settings for commands talking to a zag server.
type ClientConfig struct {
	URL              string        `mapstructure:"url" yaml:"url"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Delta            int64         `mapstructure:"delta" yaml:"delta"`   // Bucket width in ms
	Window           time.Duration `mapstructure:"window" yaml:"window"` // Default visible range
	PanAmplification float64       `mapstructure:"pan_amplification" yaml:"pan_amplification"`
	LoadConcurrency  int           `mapstructure:"load_concurrency" yaml:"load_concurrency"`
	Refresh          time.Duration `mapstructure:"refresh" yaml:"refresh"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level        string `mapstructure:"level" yaml:"level"`
	Format       string `mapstructure:"format" yaml:"format"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
}

// Default configuration values.
const (
	DefaultAddr              = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultHeartbeat         = 15 * time.Second
	DefaultCacheSize         = 1024
	DefaultTypeCacheTTL      = time.Minute
	DefaultIngestRate        = 100.0
	DefaultIngestBurst       = 200
	DefaultChannelBuffer     = 256
	DefaultBackend           = "memory"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPrefix       = "zag:"
	DefaultESURL             = "http://localhost:9200"
	DefaultIndex             = "metrics-*"
	DefaultTimeout           = 30 * time.Second
	DefaultClientURL         = "http://localhost:8080"
	DefaultClientTimeout     = 30 * time.Second
	DefaultDelta             = 60_000
	DefaultWindow            = 6 * time.Hour
	DefaultPanAmplification  = 1.0
	DefaultLoadConcurrency   = 8
	DefaultRefresh           = 10 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ContextKey is used to store config in context.
type ContextKey struct{}

// FromContext retrieves Config from context.
func FromContext(ctx context.Context) (Config, bool) {
	cfg, ok := ctx.Value(ContextKey{}).(Config)
	return cfg, ok
}

// WithContext stores Config in context.
func WithContext(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, ContextKey{}, cfg)
}

// Load builds a Config using Viper with precedence: flags > env > file > defaults.
// A --config flag on the command (or ZAG_CONFIG) names an optional YAML file.
// It binds flags from the command (and its parents) and fails fast on invalid values.
func Load(cmd *cobra.Command) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ZAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindFlagsRecursive(v, cmd); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers default values with Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.read_header_timeout", DefaultReadHeaderTimeout)
	v.SetDefault("server.heartbeat", DefaultHeartbeat)
	v.SetDefault("server.cache_size", DefaultCacheSize)
	v.SetDefault("server.type_cache_ttl", DefaultTypeCacheTTL)
	v.SetDefault("server.ingest_rate", DefaultIngestRate)
	v.SetDefault("server.ingest_burst", DefaultIngestBurst)
	v.SetDefault("server.channel_buffer", DefaultChannelBuffer)
	v.SetDefault("server.dashboards_file", "")

	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.redis.addr", DefaultRedisAddr)
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", DefaultRedisPrefix)
	v.SetDefault("store.es.url", DefaultESURL)
	v.SetDefault("store.es.index", DefaultIndex)
	v.SetDefault("store.es.timeout", DefaultTimeout)

	v.SetDefault("client.url", DefaultClientURL)
	v.SetDefault("client.timeout", DefaultClientTimeout)
	v.SetDefault("client.delta", DefaultDelta)
	v.SetDefault("client.window", DefaultWindow)
	v.SetDefault("client.pan_amplification", DefaultPanAmplification)
	v.SetDefault("client.load_concurrency", DefaultLoadConcurrency)
	v.SetDefault("client.refresh", DefaultRefresh)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.otlp_endpoint", "")
	v.SetDefault("log.otlp_insecure", true)
}

// bindFlagsRecursive binds flags from cmd and all parents so Viper sees them.
func bindFlagsRecursive(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}
	if err := bindFlagSet(v, cmd.Flags()); err != nil {
		return err
	}
	if err := bindFlagSet(v, cmd.PersistentFlags()); err != nil {
		return err
	}
	return bindFlagsRecursive(v, cmd.Parent())
}

// bindFlagSet binds flags to Viper keys using explicit mappings to nested keys.
func bindFlagSet(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	flagToKey := map[string]string{
		"config":          "config",
		"addr":            "server.addr",
		"heartbeat":       "server.heartbeat",
		"cache-size":      "server.cache_size",
		"ingest-rate":     "server.ingest_rate",
		"ingest-burst":    "server.ingest_burst",
		"dashboards-file": "server.dashboards_file",
		"backend":         "store.backend",
		"redis-addr":      "store.redis.addr",
		"redis-prefix":    "store.redis.prefix",
		"es-url":          "store.es.url",
		"index":           "store.es.index",
		"url":             "client.url",
		"delta":           "client.delta",
		"window":          "client.window",
		"refresh":         "client.refresh",
		"log-level":       "log.level",
		"log-format":      "log.format",
		"otlp":            "log.otlp_endpoint",
	}

	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagToKey[f.Name]
		if !ok {
			// Fallback: replace "-" with "." to allow nested binding if names align
			key = strings.ReplaceAll(f.Name, "-", ".")
		}
		_ = v.BindPFlag(key, f)
	})
	return nil
}

// Validate enforces correctness and fails fast on invalid configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.Heartbeat <= 0 {
		return fmt.Errorf("server.heartbeat must be > 0")
	}
	if c.Server.CacheSize <= 0 {
		return fmt.Errorf("server.cache_size must be > 0")
	}
	if c.Server.TypeCacheTTL <= 0 {
		return fmt.Errorf("server.type_cache_ttl must be > 0")
	}
	if c.Server.IngestRate <= 0 {
		return fmt.Errorf("server.ingest_rate must be > 0")
	}
	if c.Server.IngestBurst <= 0 {
		return fmt.Errorf("server.ingest_burst must be > 0")
	}
	if c.Server.ChannelBuffer <= 0 {
		return fmt.Errorf("server.channel_buffer must be > 0")
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Store.Redis.Addr) == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case "elasticsearch":
		if strings.TrimSpace(c.Store.ES.URL) == "" {
			return fmt.Errorf("store.es.url is required for the elasticsearch backend")
		}
		if strings.TrimSpace(c.Store.ES.Index) == "" {
			return fmt.Errorf("store.es.index is required for the elasticsearch backend")
		}
		if c.Store.ES.Timeout <= 0 {
			return fmt.Errorf("store.es.timeout must be > 0")
		}
	default:
		return fmt.Errorf("store.backend must be memory, redis or elasticsearch, got %q", c.Store.Backend)
	}

	if strings.TrimSpace(c.Client.URL) == "" {
		return fmt.Errorf("client.url is required")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be > 0")
	}
	if c.Client.Delta <= 0 {
		return fmt.Errorf("client.delta must be > 0")
	}
	if c.Client.Window <= 0 {
		return fmt.Errorf("client.window must be > 0")
	}
	if c.Client.PanAmplification <= 0 {
		return fmt.Errorf("client.pan_amplification must be > 0")
	}
	if c.Client.LoadConcurrency <= 0 {
		return fmt.Errorf("client.load_concurrency must be > 0")
	}
	if c.Client.Refresh <= 0 {
		return fmt.Errorf("client.refresh must be > 0")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
