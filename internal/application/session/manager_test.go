package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/prioritization"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/workflow"
)

type mockVerifier struct {
	verifyFunc func(ctx context.Context, credential string) (entity.Principal, error)
}

func (m *mockVerifier) Verify(ctx context.Context, credential string) (entity.Principal, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, credential)
	}
	if credential == "" {
		return entity.Principal{}, port.ErrInvalidCredential
	}
	return entity.Principal{ID: credential, Email: credential + "@example.edu"}, nil
}

// memoryTokens is an in-memory port.SessionStore
type memoryTokens struct {
	mu      sync.Mutex
	next    int
	records map[string]*port.SessionRecord
	touched int
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{records: make(map[string]*port.SessionRecord)}
}

func (m *memoryTokens) Create(ctx context.Context, principal entity.Principal) (*port.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	now := time.Now()
	r := &port.SessionRecord{
		Token:     fmt.Sprintf("token-%d", m.next),
		Principal: principal,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	m.records[r.Token] = r
	return r, nil
}

func (m *memoryTokens) Lookup(ctx context.Context, token string) (*port.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[token]
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	return r, nil
}

func (m *memoryTokens) Touch(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[token]; !ok {
		return port.ErrSessionNotFound
	}
	m.touched++
	return nil
}

func (m *memoryTokens) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, token)
	return nil
}

func (m *memoryTokens) expire(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, token)
}

type stubRanker struct{}

func (stubRanker) Rank(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
	return nil, nil
}

func newTestManager() (*Manager, *memoryTokens, *fakeStore) {
	tokens := newMemoryTokens()
	store := newFakeStore()
	gateway := prioritization.NewGateway(stubRanker{}, nopLogger{})
	return NewManager(&mockVerifier{}, tokens, store, gateway, nil), tokens, store
}

func TestManager_SignIn(t *testing.T) {
	m, tokens, store := newTestManager()

	sess, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "u1", sess.Principal.ID)
	assert.Equal(t, workflow.SessionLoading, sess.Model().State)
	assert.NotNil(t, sess.Review)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 4, store.activeCount())

	_, err = tokens.Lookup(context.Background(), sess.Token)
	assert.NoError(t, err)
}

func TestManager_SignInInvalidCredential(t *testing.T) {
	m, _, _ := newTestManager()

	_, err := m.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, port.ErrInvalidCredential)
	assert.Equal(t, 0, m.Count())
}

func TestManager_Lookup(t *testing.T) {
	m, tokens, _ := newTestManager()
	sess, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	got, err := m.Lookup(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, tokens.touched)

	_, err = m.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, port.ErrSessionNotFound)

	_, err = m.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
}

func TestManager_LookupResumesKnownToken(t *testing.T) {
	tokens := newMemoryTokens()
	record, err := tokens.Create(context.Background(), entity.Principal{ID: "u7"})
	require.NoError(t, err)

	store := newFakeStore()
	m := NewManager(&mockVerifier{}, tokens, store, prioritization.NewGateway(stubRanker{}, nopLogger{}), nil)

	sess, err := m.Lookup(context.Background(), record.Token)
	require.NoError(t, err)
	assert.Equal(t, "u7", sess.Principal.ID)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 4, store.activeCount())
}

func TestManager_LookupExpiredToken(t *testing.T) {
	m, tokens, store := newTestManager()
	sess, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	tokens.expire(sess.Token)

	_, err = m.Lookup(context.Background(), sess.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, store.activeCount())
}

func TestManager_SignOut(t *testing.T) {
	m, tokens, store := newTestManager()
	sess, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(context.Background(), sess.Token))
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, store.activeCount())
	assert.Equal(t, workflow.SessionSignedOut, sess.Model().State)

	_, err = tokens.Lookup(context.Background(), sess.Token)
	assert.ErrorIs(t, err, port.ErrSessionNotFound)

	require.NoError(t, m.SignOut(context.Background(), sess.Token))
}

func TestManager_SweepExpired(t *testing.T) {
	m, tokens, _ := newTestManager()
	s1, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)
	s2, err := m.SignIn(context.Background(), "u2")
	require.NoError(t, err)

	tokens.expire(s1.Token)

	swept, err := m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, m.Count())

	got, err := m.Lookup(context.Background(), s2.Token)
	require.NoError(t, err)
	assert.Same(t, s2, got)
}

type failingTokens struct {
	*memoryTokens
	lookupErr error
}

func (f *failingTokens) Lookup(ctx context.Context, token string) (*port.SessionRecord, error) {
	return nil, f.lookupErr
}

func TestManager_SweepStoreFailure(t *testing.T) {
	tokens := &failingTokens{memoryTokens: newMemoryTokens(), lookupErr: errors.New("redis down")}
	m := NewManager(&mockVerifier{}, tokens, newFakeStore(), prioritization.NewGateway(stubRanker{}, nopLogger{}), nil)

	_, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	swept, err := m.SweepExpired(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, swept)
	assert.Equal(t, 1, m.Count())
}

func TestManager_Close(t *testing.T) {
	m, _, store := newTestManager()
	_, err := m.SignIn(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, store.activeCount())

	_, err = m.SignIn(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrClosed)
}
