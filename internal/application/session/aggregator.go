// Package session maintains the live per-session read model over the
// document store and the registry of signed-in sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/role"
	"github.com/garyjia/club-expenses/internal/domain/workflow"
)

// ErrClosed is returned by operations on a closed aggregator
var ErrClosed = errors.New("session aggregator is closed")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// slice tracks whether a subscribed collection has settled at least once
type slice struct {
	seen   bool
	failed bool
}

// Aggregator combines the users, clubs, expenses and representativeRequests
// subscriptions into one ReadModel for a single principal.
//
// Every subscription callback carries the generation it was registered
// under; callbacks from an older generation are discarded, so a sign-out
// or re-sign-in never sees late data from the previous session.
type Aggregator struct {
	store  port.DocumentStore
	logger Logger

	mu         sync.Mutex
	machine    workflow.StateMachine[workflow.SessionState]
	generation uint64
	cancel     context.CancelFunc
	unsubs     []port.Unsubscribe
	closed     bool

	principal *entity.Principal
	profile   *entity.User
	getDone   bool
	slices    map[string]*slice

	clubs    []entity.Club
	expenses []entity.Expense
	users    []entity.User
	requests []entity.RepresentativeRequest

	model     ReadModel
	watchers  map[uint64]chan ReadModel
	nextWatch uint64
	done      chan struct{}
}

// Option configures the aggregator
type Option func(*Aggregator)

// WithLogger sets a logger for the aggregator
func WithLogger(logger Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// NewAggregator creates a signed-out aggregator over store
func NewAggregator(store port.DocumentStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:    store,
		logger:   nopLogger{},
		machine:  workflow.NewSessionMachine(),
		model:    signedOutModel(),
		watchers: make(map[uint64]chan ReadModel),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.resetLocked()
	return a
}

// Snapshot returns a copy of the current read model
func (a *Aggregator) Snapshot() ReadModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model.clone()
}

// State returns the lifecycle state
func (a *Aggregator) State() workflow.SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.machine.State()
}

// Watch returns a channel that receives the read model after every change.
// Only the newest undelivered model is kept. The channel is closed when ctx
// ends or the aggregator is closed.
func (a *Aggregator) Watch(ctx context.Context) <-chan ReadModel {
	ch := make(chan ReadModel, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		close(ch)
		return ch
	}
	a.nextWatch++
	id := a.nextWatch
	a.watchers[id] = ch
	ch <- a.model.clone()
	a.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-a.done:
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if w, ok := a.watchers[id]; ok {
			delete(a.watchers, id)
			close(w)
		}
	}()

	return ch
}

// SignIn starts a session for principal. Signing in the principal that is
// already signed in is a no-op; a different principal replaces the current one.
func (a *Aggregator) SignIn(ctx context.Context, principal entity.Principal) error {
	if principal.ID == "" {
		return fmt.Errorf("sign in: empty principal id")
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	var stale []port.Unsubscribe
	if a.machine.State() != workflow.SessionSignedOut {
		if a.principal != nil && a.principal.ID == principal.ID {
			a.mu.Unlock()
			return nil
		}
		stale = a.teardownLocked()
	}

	if err := a.machine.Fire(ctx, workflow.TriggerSignIn); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("sign in: %w", err)
	}

	a.generation++
	gen := a.generation
	p := principal
	a.principal = &p
	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.publishLocked()
	a.mu.Unlock()

	for _, u := range stale {
		u()
	}

	a.logger.Info("Session signing in", "principal_id", principal.ID, "generation", gen)

	// Subscriptions are registered without the lock held so a store that
	// delivers synchronously cannot deadlock against the callbacks.
	var unsubs []port.Unsubscribe
	for _, collection := range entity.Collections {
		collection := collection
		unsub, err := a.store.Subscribe(sessionCtx, collection,
			func(snap entity.Snapshot) { a.applySnapshot(gen, snap) },
			func(err error) { a.applyError(gen, collection, err) },
		)
		if err != nil {
			a.applyError(gen, collection, err)
			continue
		}
		unsubs = append(unsubs, unsub)
	}

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		for _, u := range unsubs {
			u()
		}
		return nil
	}
	a.unsubs = append(a.unsubs, unsubs...)
	a.mu.Unlock()

	doc, found, err := a.store.Get(sessionCtx, entity.CollectionUsers, principal.ID)
	a.applyProfile(gen, doc, found, err)

	return nil
}

// SignOut tears the session down and resets the read model. It is a no-op
// when already signed out.
func (a *Aggregator) SignOut(ctx context.Context) error {
	a.mu.Lock()
	if a.machine.State() == workflow.SessionSignedOut {
		a.mu.Unlock()
		return nil
	}
	unsubs := a.teardownLocked()
	a.publishLocked()
	a.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	a.logger.Info("Session signed out")
	return nil
}

// Close signs out and closes every watcher channel
func (a *Aggregator) Close() error {
	_ = a.SignOut(context.Background())

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	close(a.done)
	for id, ch := range a.watchers {
		delete(a.watchers, id)
		close(ch)
	}
	return nil
}

// teardownLocked invalidates the current generation and returns the
// unsubscribe funcs for the caller to run outside the lock.
func (a *Aggregator) teardownLocked() []port.Unsubscribe {
	if a.machine.State() != workflow.SessionSignedOut {
		_ = a.machine.Fire(context.Background(), workflow.TriggerSignOut)
	}
	a.generation++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	unsubs := a.unsubs
	a.unsubs = nil
	a.resetLocked()
	return unsubs
}

func (a *Aggregator) resetLocked() {
	a.principal = nil
	a.profile = nil
	a.getDone = false
	a.slices = map[string]*slice{
		entity.CollectionUsers:                  {},
		entity.CollectionClubs:                  {},
		entity.CollectionExpenses:               {},
		entity.CollectionRepresentativeRequests: {},
	}
	a.clubs = []entity.Club{}
	a.expenses = []entity.Expense{}
	a.users = []entity.User{}
	a.requests = []entity.RepresentativeRequest{}
}

func (a *Aggregator) applySnapshot(gen uint64, snap entity.Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		return
	}
	sl, ok := a.slices[snap.Collection]
	if !ok || sl.failed {
		return
	}

	var decodeErr error
	switch snap.Collection {
	case entity.CollectionUsers:
		a.users, decodeErr = entity.DecodeDocuments[entity.User](snap.Documents)
		a.profile = a.findPrincipalLocked()
	case entity.CollectionClubs:
		a.clubs, decodeErr = entity.DecodeDocuments[entity.Club](snap.Documents)
	case entity.CollectionExpenses:
		a.expenses, decodeErr = entity.DecodeDocuments[entity.Expense](snap.Documents)
	case entity.CollectionRepresentativeRequests:
		a.requests, decodeErr = entity.DecodeDocuments[entity.RepresentativeRequest](snap.Documents)
	}
	if decodeErr != nil {
		a.logger.Error("Skipped undecodable documents",
			"collection", snap.Collection,
			"error", decodeErr,
		)
	}

	sl.seen = true
	a.advanceLocked()
}

// applyError freezes a slice. A slice that never delivered is treated as
// settled and empty so the session can still become Ready.
func (a *Aggregator) applyError(gen uint64, collection string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		return
	}

	a.logger.Error("Subscription failed",
		"collection", collection,
		"error", err,
	)

	sl, ok := a.slices[collection]
	if !ok {
		return
	}
	sl.failed = true
	sl.seen = true
	a.advanceLocked()
}

// applyProfile records the one-shot profile lookup. A users snapshot that
// already arrived is newer than the lookup and wins.
func (a *Aggregator) applyProfile(gen uint64, doc entity.Document, found bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		return
	}
	a.getDone = true

	switch {
	case err != nil:
		a.logger.Error("Profile lookup failed",
			"principal_id", a.principal.ID,
			"error", err,
		)
	case a.slices[entity.CollectionUsers].seen && !a.slices[entity.CollectionUsers].failed:
		// Snapshot already authoritative
	case found:
		var u entity.User
		if decodeErr := doc.Decode(&u); decodeErr != nil {
			a.logger.Error("Profile decode failed",
				"principal_id", a.principal.ID,
				"error", decodeErr,
			)
			break
		}
		u.ID = doc.ID
		a.profile = &u
	default:
		a.profile = nil
	}

	a.advanceLocked()
}

func (a *Aggregator) findPrincipalLocked() *entity.User {
	if a.principal == nil {
		return nil
	}
	for i := range a.users {
		if a.users[i].ID == a.principal.ID {
			u := a.users[i]
			return &u
		}
	}
	return nil
}

// profileResolvedLocked is true once either the lookup returned or a users
// snapshot settled the principal's record.
func (a *Aggregator) profileResolvedLocked() bool {
	users := a.slices[entity.CollectionUsers]
	return a.getDone || (users.seen && !users.failed)
}

// advanceLocked moves Loading to Ready when every input has settled and
// republishes the read model if anything changed.
func (a *Aggregator) advanceLocked() {
	if a.machine.State() == workflow.SessionLoading &&
		a.profileResolvedLocked() &&
		a.slices[entity.CollectionClubs].seen &&
		a.slices[entity.CollectionExpenses].seen &&
		a.slices[entity.CollectionRepresentativeRequests].seen {
		if err := a.machine.Fire(context.Background(), workflow.TriggerLoaded); err != nil {
			a.logger.Error("Session transition failed", "error", err)
		} else {
			a.logger.Info("Session ready",
				"principal_id", a.principal.ID,
				"generation", a.generation,
			)
		}
	}
	a.publishLocked()
}

// publishLocked rebuilds the read model and notifies watchers if it changed
func (a *Aggregator) publishLocked() {
	next := a.buildLocked()
	if reflect.DeepEqual(next, a.model) {
		return
	}
	a.model = next

	for _, ch := range a.watchers {
		m := next.clone()
		select {
		case ch <- m:
		default:
			// Replace the stale undelivered model
			select {
			case <-ch:
			default:
			}
			ch <- m
		}
	}
}

func (a *Aggregator) buildLocked() ReadModel {
	state := a.machine.State()
	if state == workflow.SessionSignedOut {
		return signedOutModel()
	}

	m := ReadModel{
		State:                  state,
		Ready:                  state == workflow.SessionReady,
		Principal:              a.principal,
		Clubs:                  a.clubs,
		Expenses:               a.expenses,
		Users:                  a.users,
		RepresentativeRequests: a.requests,
	}

	// Role is derived only once both the profile and clubs have settled
	if m.Ready {
		m.User = a.profile
		m.Role = role.Resolve(a.profile, a.clubs)
	}
	return m
}
