package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired sessions are dropped
const DefaultSweepInterval = time.Minute

// ExpiredSessionSweeper drops live sessions whose tokens have expired
type ExpiredSessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SessionSweeper periodically tears down sessions whose tokens expired
// in the session store
type SessionSweeper struct {
	sessions ExpiredSessionSweeper
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	swept   int
	lastErr error
}

// NewSessionSweeper creates a sweeper running every interval
func NewSessionSweeper(sessions ExpiredSessionSweeper, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the sweep loop
func (s *SessionSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("session sweeper already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("SessionSweeper started", zap.Duration("interval", s.interval))
	go s.loop(loopCtx, s.done)
	return nil
}

// Stop ends the sweep loop and waits for it to exit
func (s *SessionSweeper) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	s.logger.Info("SessionSweeper stopped", zap.Int("swept", s.Swept()))
	return nil
}

// Name returns the worker name for identification
func (s *SessionSweeper) Name() string {
	return "SessionSweeper"
}

// Swept returns how many sessions have been dropped so far
func (s *SessionSweeper) Swept() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swept
}

// LastError returns the error of the most recent failed sweep
func (s *SessionSweeper) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *SessionSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	n, err := s.sessions.SweepExpired(ctx)

	s.mu.Lock()
	s.swept += n
	s.lastErr = err
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.logger.Error("Failed to sweep expired sessions", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Expired sessions swept", zap.Int("count", n))
	}
}
