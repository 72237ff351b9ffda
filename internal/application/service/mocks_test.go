package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/event"
)

type update struct {
	collection string
	id         string
	fields     map[string]any
}

// mockStore keeps documents in memory; func fields override individual calls
type mockStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]map[string]any
	updates []update
	nextID  int

	getFunc    func(ctx context.Context, collection, id string) (entity.Document, bool, error)
	listFunc   func(ctx context.Context, collection string) ([]entity.Document, error)
	createFunc func(ctx context.Context, collection string, fields any) (string, error)
	updateFunc func(ctx context.Context, collection, id string, fields map[string]any) error
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]map[string]map[string]any)}
}

func (m *mockStore) put(collection, id string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		panic(err)
	}
	obj["id"] = id
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]map[string]any)
	}
	m.docs[collection][id] = obj
}

func (m *mockStore) field(collection, id, key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[collection][id][key]
}

func (m *mockStore) Subscribe(ctx context.Context, collection string, onSnapshot port.SnapshotFunc, onError port.ErrorFunc) (port.Unsubscribe, error) {
	return func() {}, nil
}

func (m *mockStore) Get(ctx context.Context, collection, id string) (entity.Document, bool, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, collection, id)
	}
	return m.read(collection, id)
}

// read is the default Get, usable from getFunc overrides
func (m *mockStore) read(collection, id string) (entity.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.docs[collection][id]
	if !ok {
		return entity.Document{}, false, nil
	}
	data, _ := json.Marshal(obj)
	return entity.Document{ID: id, Data: data}, true, nil
}

func (m *mockStore) List(ctx context.Context, collection string) ([]entity.Document, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, collection)
	}
	return m.list(collection)
}

// list is the default List, usable from listFunc overrides
func (m *mockStore) list(collection string) ([]entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Document
	for id, obj := range m.docs[collection] {
		data, _ := json.Marshal(obj)
		out = append(out, entity.Document{ID: id, Data: data})
	}
	return out, nil
}

func (m *mockStore) Create(ctx context.Context, collection string, fields any) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, collection, fields)
	}
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("%s-%d", collection, m.nextID)
	m.mu.Unlock()
	m.put(collection, id, fields)
	return id, nil
}

func (m *mockStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	m.updates = append(m.updates, update{collection: collection, id: id, fields: fields})
	m.mu.Unlock()
	if m.updateFunc != nil {
		return m.updateFunc(ctx, collection, id, fields)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.docs[collection][id]
	if !ok {
		return port.ErrNotFound
	}
	data, _ := json.Marshal(fields)
	var patch map[string]any
	_ = json.Unmarshal(data, &patch)
	for k, v := range patch {
		obj[k] = v
	}
	return nil
}

// mockTxManager serializes transactions the way a store that locks at
// BEGIN does
type mockTxManager struct {
	mu    sync.Mutex
	count int

	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return fn(ctx)
}

// mockPublisher records dispatched events
type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

var (
	admin   = Actor{ID: "admin-1", Name: "Ada Admin", Role: entity.RoleAdmin}
	rep     = Actor{ID: "rep-1", Name: "Rita Rep", Role: entity.RoleRepresentative}
	student = Actor{ID: "stu-1", Name: "Sam Student", Role: entity.RoleStudent}
)

func seedClubs(store *mockStore) {
	store.put(entity.CollectionClubs, "chess", entity.Club{Name: "Chess Club", Description: "Weekly chess meetups", RepresentativeID: rep.ID})
	store.put(entity.CollectionClubs, "rowing", entity.Club{Name: "Rowing", Description: "Early morning rowing", RepresentativeID: "someone-else"})
}
