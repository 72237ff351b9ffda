package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

type subscription struct {
	onSnapshot port.SnapshotFunc
	onError    port.ErrorFunc
	active     bool
}

// fakeStore records subscriptions so tests can deliver snapshots in any order
type fakeStore struct {
	mu   sync.Mutex
	subs map[string][]*subscription
	gets int

	GetFunc       func(ctx context.Context, collection, id string) (entity.Document, bool, error)
	SubscribeFunc func(collection string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{subs: make(map[string][]*subscription)}
}

func (f *fakeStore) Subscribe(ctx context.Context, collection string, onSnapshot port.SnapshotFunc, onError port.ErrorFunc) (port.Unsubscribe, error) {
	if f.SubscribeFunc != nil {
		if err := f.SubscribeFunc(collection); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &subscription{onSnapshot: onSnapshot, onError: onError, active: true}
	f.subs[collection] = append(f.subs[collection], s)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		s.active = false
	}, nil
}

func (f *fakeStore) Get(ctx context.Context, collection, id string) (entity.Document, bool, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()
	if f.GetFunc != nil {
		return f.GetFunc(ctx, collection, id)
	}
	return entity.Document{}, false, nil
}

func (f *fakeStore) List(ctx context.Context, collection string) ([]entity.Document, error) {
	return nil, nil
}

func (f *fakeStore) Create(ctx context.Context, collection string, fields any) (string, error) {
	return "", nil
}

func (f *fakeStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return nil
}

// latest returns the newest subscription for collection, including inactive ones
func (f *fakeStore) latest(collection string) *subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.subs[collection]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (f *fakeStore) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, list := range f.subs {
		for _, s := range list {
			if s.active {
				n++
			}
		}
	}
	return n
}

func (f *fakeStore) deliver(t *testing.T, collection string, docs ...entity.Document) {
	t.Helper()
	s := f.latest(collection)
	if s == nil {
		t.Fatalf("no subscription for %s", collection)
	}
	s.onSnapshot(entity.Snapshot{Collection: collection, Documents: docs})
}

func (f *fakeStore) fail(t *testing.T, collection string, err error) {
	t.Helper()
	s := f.latest(collection)
	if s == nil {
		t.Fatalf("no subscription for %s", collection)
	}
	s.onError(err)
}

func doc(t *testing.T, id string, fields map[string]any) entity.Document {
	t.Helper()
	data := map[string]any{"id": id}
	for k, v := range fields {
		data[k] = v
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return entity.Document{ID: id, Data: raw}
}

func userDoc(t *testing.T, id, name string, r entity.Role) entity.Document {
	return doc(t, id, map[string]any{"name": name, "email": id + "@example.edu", "role": string(r)})
}

func clubDoc(t *testing.T, id, name, repID string) entity.Document {
	return doc(t, id, map[string]any{"name": name, "description": "A club for testing", "representativeId": repID})
}

func expenseDoc(t *testing.T, id, clubID, status string) entity.Document {
	return doc(t, id, map[string]any{
		"clubId":        clubID,
		"description":   "Expense " + id,
		"amount":        12.5,
		"status":        status,
		"submittedDate": "2024-03-01T10:00:00Z",
		"submitterId":   "u1",
	})
}

func requestDoc(t *testing.T, id, userID, clubID string) entity.Document {
	return doc(t, id, map[string]any{
		"userId":      userID,
		"userName":    "Student",
		"clubId":      clubID,
		"clubName":    "Chess",
		"status":      "pending",
		"requestDate": "2024-03-02T10:00:00Z",
	})
}
