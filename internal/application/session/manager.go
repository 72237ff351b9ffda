package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/application/prioritization"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// Session is one signed-in client: its token, live read model and
// prioritization review state.
type Session struct {
	Token      string
	Principal  entity.Principal
	Aggregator *Aggregator
	Review     *prioritization.Review
}

// Model returns the session's current read model
func (s *Session) Model() ReadModel {
	return s.Aggregator.Snapshot()
}

// Manager owns every live session of the process, keyed by session token
type Manager struct {
	verifier port.IdentityVerifier
	tokens   port.SessionStore
	store    port.DocumentStore
	gateway  *prioritization.Gateway
	logger   Logger

	mu     sync.Mutex
	active map[string]*Session
	closed bool
}

// NewManager creates a session manager
func NewManager(
	verifier port.IdentityVerifier,
	tokens port.SessionStore,
	store port.DocumentStore,
	gateway *prioritization.Gateway,
	logger Logger,
) *Manager {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Manager{
		verifier: verifier,
		tokens:   tokens,
		store:    store,
		gateway:  gateway,
		logger:   logger,
		active:   make(map[string]*Session),
	}
}

// SignIn verifies an identity provider credential, issues a session token
// and starts the session's subscriptions.
func (m *Manager) SignIn(ctx context.Context, credential string) (*Session, error) {
	principal, err := m.verifier.Verify(ctx, credential)
	if err != nil {
		m.logger.Error("Credential verification failed", "error", err)
		return nil, err
	}

	record, err := m.tokens.Create(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess, err := m.start(ctx, record)
	if err != nil {
		_ = m.tokens.Revoke(ctx, record.Token)
		return nil, err
	}

	m.logger.Info("Signed in", "principal_id", principal.ID)
	return sess, nil
}

// Lookup resolves a token to its live session. A token that is still valid
// in the session store but unknown to this process is resumed.
func (m *Manager) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, port.ErrSessionNotFound
	}

	record, err := m.tokens.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, port.ErrSessionNotFound) {
			m.drop(token)
		}
		return nil, err
	}

	m.mu.Lock()
	sess, ok := m.active[token]
	m.mu.Unlock()
	if ok {
		if err := m.tokens.Touch(ctx, token); err != nil && !errors.Is(err, port.ErrSessionNotFound) {
			m.logger.Error("Failed to extend session", "error", err)
		}
		return sess, nil
	}

	m.logger.Info("Resuming session", "principal_id", record.Principal.ID)
	return m.start(ctx, record)
}

// SignOut revokes the token and tears its session down
func (m *Manager) SignOut(ctx context.Context, token string) error {
	if err := m.tokens.Revoke(ctx, token); err != nil && !errors.Is(err, port.ErrSessionNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	m.drop(token)
	return nil
}

// SweepExpired closes sessions whose tokens expired in the session store
// and returns how many were closed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	m.mu.Lock()
	tokens := make([]string, 0, len(m.active))
	for token := range m.active {
		tokens = append(tokens, token)
	}
	m.mu.Unlock()

	swept := 0
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		_, err := m.tokens.Lookup(ctx, token)
		switch {
		case err == nil:
		case errors.Is(err, port.ErrSessionNotFound):
			if m.drop(token) {
				swept++
			}
		default:
			return swept, fmt.Errorf("lookup session: %w", err)
		}
	}
	return swept, nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Close tears down every live session without revoking tokens
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	sessions := m.active
	m.active = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Aggregator.Close()
	}
	return nil
}

func (m *Manager) start(ctx context.Context, record *port.SessionRecord) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if existing, ok := m.active[record.Token]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	sess := &Session{
		Token:      record.Token,
		Principal:  record.Principal,
		Aggregator: NewAggregator(m.store, WithLogger(m.logger)),
		Review:     prioritization.NewReview(m.gateway),
	}
	m.active[record.Token] = sess
	m.mu.Unlock()

	if err := sess.Aggregator.SignIn(ctx, record.Principal); err != nil {
		m.drop(record.Token)
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

func (m *Manager) drop(token string) bool {
	m.mu.Lock()
	sess, ok := m.active[token]
	delete(m.active, token)
	m.mu.Unlock()

	if ok {
		_ = sess.Aggregator.Close()
	}
	return ok
}
