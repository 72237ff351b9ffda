package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// DefaultSessionTTL is used when no TTL is configured
const DefaultSessionTTL = 24 * time.Hour

// RedisSessionStore implements port.SessionStore using Redis.
// Each token is one key holding the session record, expiring after the TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ port.SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore connects to redisURL and verifies the connection
func NewRedisSessionStore(redisURL string, ttl time.Duration) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisSessionStoreWithClient(client, ttl), nil
}

// NewRedisSessionStoreWithClient creates a store from an existing Redis client
func NewRedisSessionStoreWithClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (s *RedisSessionStore) key(token string) string {
	return s.prefix + token
}

// Create issues a new random token for principal
func (s *RedisSessionStore) Create(ctx context.Context, principal entity.Principal) (*port.SessionRecord, error) {
	now := time.Now().UTC()
	record := &port.SessionRecord{
		Token:     uuid.NewString(),
		Principal: principal,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(record.Token), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return record, nil
}

// Lookup returns the record for token, or port.ErrSessionNotFound
func (s *RedisSessionStore) Lookup(ctx context.Context, token string) (*port.SessionRecord, error) {
	key := s.key(token)

	pipe := s.client.Pipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, port.ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	var record port.SessionRecord
	if err := json.Unmarshal([]byte(get.Val()), &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if remaining := pttl.Val(); remaining > 0 {
		record.ExpiresAt = time.Now().UTC().Add(remaining)
	}
	return &record, nil
}

// Touch restarts the token's TTL
func (s *RedisSessionStore) Touch(ctx context.Context, token string) error {
	ok, err := s.client.Expire(ctx, s.key(token), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if !ok {
		return port.ErrSessionNotFound
	}
	return nil
}

// Revoke deletes the token
func (s *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
