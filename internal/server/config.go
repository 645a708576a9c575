// Package server provides configuration helpers that define runtime defaults,
// validation, environment overrides and YAML loading for the relay.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Tyrowin/gochat-relay/internal/eventlog"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// Config holds the server configuration settings including security controls
// and the event log store.
type Config struct {
	Port            string          `yaml:"port"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	MaxMessageSize  int64           `yaml:"max_message_size"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	LogLevel        string          `yaml:"log_level"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	Store           eventlog.Config `yaml:"store"`
}

const (
	defaultPort            = ":5000"
	defaultMaxMessageSize  = 4096
	defaultBurst           = 5
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// DefaultConfig returns the configuration used when nothing is overridden.
// Every origin is accepted and history is kept in memory.
func DefaultConfig() Config {
	return Config{
		Port:           defaultPort,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultBurst,
			RefillInterval: defaultRefillInterval,
		},
		LogLevel:        "info",
		ShutdownTimeout: defaultShutdownTimeout,
		Store:           eventlog.DefaultConfig(),
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := DefaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()
	cfg.ApplyEnv()
	return cfg
}

// LoadConfigFile reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func (cfg *Config) ApplyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseDuration(interval, cfg.RateLimit.RefillInterval)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	store := &cfg.Store
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		store.Backend = backend
	}
	if timeout := os.Getenv("STORE_TIMEOUT"); timeout != "" {
		store.Timeout = parseDuration(timeout, store.Timeout)
	}
	setString(&store.Redis.Addr, "REDIS_ADDR")
	setString(&store.Redis.Password, "REDIS_PASSWORD")
	setString(&store.Redis.Key, "REDIS_KEY")
	setString(&store.SQLite.Path, "SQLITE_PATH")
	setString(&store.Appwrite.Endpoint, "APPWRITE_ENDPOINT")
	setString(&store.Appwrite.ProjectID, "APPWRITE_PROJECT_ID")
	setString(&store.Appwrite.APIKey, "APPWRITE_API_KEY")
	setString(&store.Appwrite.DatabaseID, "APPWRITE_DATABASE_ID")
	setString(&store.Appwrite.CollectionID, "APPWRITE_COLLECTION_ID")
}

// Sanitize replaces invalid or missing values with defaults.
func (cfg Config) Sanitize() Config {
	cfg.Port = normalizePort(cfg.Port)

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultBurst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Store.Timeout <= 0 {
		cfg.Store.Timeout = eventlog.DefaultTimeout
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = eventlog.BackendMemory
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// normalizePort accepts "5000", ":5000" or "host:5000".
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return defaultPort
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseDuration accepts a whole number of seconds or a Go duration string.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
