package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

type cmdable interface {
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Close() error
}

// RedisStore keeps one JSON document per key under a namespace prefix.
type RedisStore struct {
	client    cmdable
	namespace string
}

// NewRedisStore connects to redisURL and verifies connectivity.
func NewRedisStore(ctx context.Context, redisURL, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: raw, namespace: strings.Trim(namespace, ":")}, nil
}

// Put overwrites the document at key. Documents never expire.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Get loads the document at key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Keys scans the namespace and returns the sorted, unprefixed keys.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
		seen   = map[string]struct{}{}
	)
	match := s.redisKey("*")
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, raw := range batch {
			key := strings.TrimPrefix(raw, s.redisKey(""))
			// SCAN may return a key more than once.
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() {
	if s.client != nil {
		_ = s.client.Close()
	}
}

func (s *RedisStore) redisKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}
