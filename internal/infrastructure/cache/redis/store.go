// Package redis stores built demand matrices in Redis so several server
// replicas can share one cache per view.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/demand/internal/application/demand"
)

// DefaultTTL bounds how long an entry survives without an invalidation.
const DefaultTTL = 10 * time.Minute

const scanBatch = 100

// Store is a demand.CacheStore namespaced per view.
// Keys have the form demand:{namespace}:{view}:matrix:{cache key}.
type Store struct {
	rdb       redis.UniversalClient
	namespace string
	view      string
	ttl       time.Duration
}

var _ demand.CacheStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the entry TTL. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore creates a store for one view. namespace and view must not be empty.
func NewStore(rdb redis.UniversalClient, namespace, view string, opts ...Option) (*Store, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if view == "" {
		return nil, fmt.Errorf("view cannot be empty")
	}

	s := &Store{rdb: rdb, namespace: namespace, view: view, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewClient parses a redis:// URL and returns a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// MatrixKey returns the Redis key for a cache key.
func MatrixKey(namespace, view, key string) string {
	return fmt.Sprintf("demand:%s:%s:matrix:%s", namespace, view, key)
}

func (s *Store) pattern() string {
	return MatrixKey(s.namespace, s.view, "*")
}

// Get implements demand.CacheStore. A missing key is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) (*demand.BuildResult, bool, error) {
	data, err := s.rdb.Get(ctx, MatrixKey(s.namespace, s.view, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read matrix from Redis: %w", err)
	}

	var result demand.BuildResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached matrix: %w", err)
	}
	return &result, true, nil
}

// Put implements demand.CacheStore.
func (s *Store) Put(ctx context.Context, key string, result *demand.BuildResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode matrix: %w", err)
	}
	if err := s.rdb.Set(ctx, MatrixKey(s.namespace, s.view, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write matrix to Redis: %w", err)
	}
	return nil
}

// Clear implements demand.CacheStore. It removes only this view's keys.
func (s *Store) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, s.pattern(), scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan matrix keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete matrix keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping verifies Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
