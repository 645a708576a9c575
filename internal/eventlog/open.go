package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendAppwrite = "appwrite"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown event log backend")

// Config selects and configures the store behind the event log.
type Config struct {
	Backend  string         `yaml:"backend"`
	Timeout  time.Duration  `yaml:"timeout"`
	Redis    RedisConfig    `yaml:"redis"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Appwrite AppwriteConfig `yaml:"appwrite"`
}

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// SQLiteConfig configures SQLiteStore.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig keeps history in memory.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Timeout: DefaultTimeout,
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  DefaultRedisKey,
		},
		SQLite: SQLiteConfig{
			Path: "gochat.db",
		},
	}
}

// Open builds the configured store. The returned closer releases its
// resources and is never nil.
func Open(ctx context.Context, cfg Config) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), io.NopCloser(nil), nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis not available at %s: %w", cfg.Redis.Addr, err)
		}
		store := NewRedisStore(client, cfg.Redis.Key)
		return store, store, nil

	case BackendSQLite:
		store, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case BackendAppwrite:
		store, err := NewAppwriteStore(cfg.Appwrite, nil)
		if err != nil {
			return nil, nil, err
		}
		return store, io.NopCloser(nil), nil
	}

	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
