package sqlite

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

type listFunc func(ctx context.Context, collection string) ([]entity.Document, error)

// hub owns the subscribers of one collection
type hub struct {
	collection string
	list       listFunc
	logger     *zap.Logger

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64

	dirty chan struct{}
}

func newHub(collection string, list listFunc, logger *zap.Logger) *hub {
	return &hub{
		collection: collection,
		list:       list,
		logger:     logger,
		subs:       make(map[uint64]*subscriber),
		dirty:      make(chan struct{}, 1),
	}
}

func (h *hub) add(sub *subscriber) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[h.nextID] = sub
	return h.nextID
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

func (h *hub) stopAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}

// markDirty schedules a re-read; multiple marks before the read collapse into one
func (h *hub) markDirty() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

// run re-reads the collection whenever it is marked dirty. Reads are
// sequential, so subscribers see snapshots in commit order.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.dirty:
		}

		h.mu.Lock()
		empty := len(h.subs) == 0
		h.mu.Unlock()
		if empty {
			continue
		}

		docs, err := h.list(ctx, h.collection)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error("Subscription query failed",
				zap.String("collection", h.collection),
				zap.Error(err))
			h.fail(err)
			continue
		}

		snap := entity.Snapshot{Collection: h.collection, Documents: docs}

		h.mu.Lock()
		for _, sub := range h.subs {
			sub.offer(snap)
		}
		h.mu.Unlock()
	}
}

// fail terminates every current subscriber with err
func (h *hub) fail(err error) {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[uint64]*subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.fail(err)
	}
}

// subscriber delivers snapshots on its own goroutine. It keeps only the
// newest undelivered snapshot, so a slow consumer skips intermediate states
// but never sees them out of order.
type subscriber struct {
	onSnapshot port.SnapshotFunc
	onError    port.ErrorFunc

	mu      sync.Mutex
	pending *entity.Snapshot
	err     error

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSubscriber(onSnapshot port.SnapshotFunc, onError port.ErrorFunc) *subscriber {
	return &subscriber{
		onSnapshot: onSnapshot,
		onError:    onError,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func (s *subscriber) offer(snap entity.Snapshot) {
	s.mu.Lock()
	s.pending = &snap
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) fail(err error) {
	s.mu.Lock()
	s.pending = nil
	s.err = err
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *subscriber) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		snap, err := s.pending, s.err
		s.pending = nil
		s.mu.Unlock()

		// Stop may race with wake; stop wins
		select {
		case <-s.done:
			return
		default:
		}

		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			return
		}
		if snap != nil && s.onSnapshot != nil {
			s.onSnapshot(*snap)
		}
	}
}
