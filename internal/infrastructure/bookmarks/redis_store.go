package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps bookmarks in Redis. This is suitable for distributed
// deployments where multiple pipeline workers need to share extraction
// state.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore creates a new Redis-backed bookmark store
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: "etl:bookmark:",
	}, nil
}

// NewRedisStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "etl:bookmark:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cursor for a source, or "" when no bookmark exists
func (s *RedisStore) Get(ctx context.Context, source string) (string, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+source).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read bookmark: %w", err)
	}
	return val, nil
}

// Set records the cursor for a source. Bookmarks never expire; a re-run
// of the same window must see the same cursor.
func (s *RedisStore) Set(ctx context.Context, source, cursor string) error {
	if err := s.client.Set(ctx, s.keyPrefix+source, cursor, 0).Err(); err != nil {
		return fmt.Errorf("failed to write bookmark: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
