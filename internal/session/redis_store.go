// Package session keeps the opaque logged-in user blob and derives the
// posting identity from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no blob is stored for a session id.
var ErrNotFound = errors.New("session not found")

// RedisStore keeps session blobs in Redis, one key per session id.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save stores the blob as-is. The store never looks inside it.
func (s *RedisStore) Save(ctx context.Context, sessionID string, blob []byte) error {
	if err := s.client.Set(ctx, s.key(sessionID), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Raw returns the stored blob and slides its expiry.
func (s *RedisStore) Raw(ctx context.Context, sessionID string) ([]byte, error) {
	blob, err := s.client.GetEx(ctx, s.key(sessionID), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return blob, nil
}

// Identity loads the blob and resolves it. Missing sessions are anonymous.
func (s *RedisStore) Identity(ctx context.Context, sessionID string) (Identity, error) {
	blob, err := s.Raw(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}
	return Resolve(blob), nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
