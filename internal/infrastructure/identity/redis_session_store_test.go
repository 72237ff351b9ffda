package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisSessionStore("redis://"+s.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisSessionStore(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	assert.NoError(t, store.Ping(context.Background()))

	_, err := NewRedisSessionStore("not a url", time.Hour)
	assert.Error(t, err)
}

func TestRedisSessionStore_CreateLookup(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	principal := entity.Principal{ID: "u1", Email: "u1@example.edu", Name: "Una"}

	record, err := store.Create(ctx, principal)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Token)
	assert.True(t, s.Exists("session:"+record.Token))
	assert.Equal(t, time.Hour, s.TTL("session:"+record.Token))

	got, err := store.Lookup(ctx, record.Token)
	require.NoError(t, err)
	assert.Equal(t, principal, got.Principal)
	assert.Equal(t, record.Token, got.Token)
	assert.WithinDuration(t, record.ExpiresAt, got.ExpiresAt, 5*time.Second)

	other, err := store.Create(ctx, principal)
	require.NoError(t, err)
	assert.NotEqual(t, record.Token, other.Token)
}

func TestRedisSessionStore_LookupUnknown(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)

	_, err := store.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestRedisSessionStore_Expiry(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	record, err := store.Create(ctx, entity.Principal{ID: "u1"})
	require.NoError(t, err)

	s.FastForward(59 * time.Minute)
	require.NoError(t, store.Touch(ctx, record.Token))
	assert.Equal(t, time.Hour, s.TTL("session:"+record.Token))

	s.FastForward(61 * time.Minute)
	_, err = store.Lookup(ctx, record.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
	assert.ErrorIs(t, store.Touch(ctx, record.Token), port.ErrSessionNotFound)
}

func TestRedisSessionStore_Revoke(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	record, err := store.Create(ctx, entity.Principal{ID: "u1"})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, record.Token))
	assert.False(t, s.Exists("session:"+record.Token))
	_, err = store.Lookup(ctx, record.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)

	// Revoking twice is fine
	assert.NoError(t, store.Revoke(ctx, record.Token))
}

func TestRedisSessionStore_DefaultTTL(t *testing.T) {
	store, s := setupTestRedis(t, 0)

	record, err := store.Create(context.Background(), entity.Principal{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, s.TTL("session:"+record.Token))
}
