package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "viewer:session:"

// RedisConfig holds the session store connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore is a SessionStore shared by every viewer process using the same session id.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(sessionID, key string) string {
	return redisKeyPrefix + sessionID + ":" + key
}

// GetOrCreate stores create() with SETNX so racing processes agree on one value.
func (s *RedisStore) GetOrCreate(ctx context.Context, sessionID, key string, create func() string) (string, error) {
	k := s.key(sessionID, key)

	if _, err := s.client.SetNX(ctx, k, create(), s.ttl).Result(); err != nil {
		return "", fmt.Errorf("failed to store session value: %w", err)
	}

	v, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("session value %s expired while reading", k)
		}
		return "", fmt.Errorf("failed to get session value from redis: %w", err)
	}

	return v, nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements SessionStore interface
var _ SessionStore = (*RedisStore)(nil)
