package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the list that holds the event log.
const DefaultRedisKey = "gochat:events"

// RedisStore keeps the event log as JSON documents in a single Redis list.
// RPUSH gives append-only semantics and LRANGE returns insertion order.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore uses client and the list at key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	rec.ID = uuid.New().String()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis append marshal error: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("redis append error: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list error: %w", err)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("redis list unmarshal error: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
