package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// ErrStoreClosed is returned by operations on a closed store
var ErrStoreClosed = errors.New("document store is closed")

// DocumentStore implements port.DocumentStore on the documents table.
// Each collection has one publisher goroutine that re-reads the collection
// after every committed write and fans the snapshot out to subscribers.
type DocumentStore struct {
	db     *DB
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	hubs   map[string]*hub
	closed bool
	wg     sync.WaitGroup
}

// NewDocumentStore creates a document store over db
func NewDocumentStore(db *DB, logger *zap.Logger) *DocumentStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &DocumentStore{
		db:     db,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		hubs:   make(map[string]*hub),
	}
}

// Get returns one document by id
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (entity.Document, bool, error) {
	query := `SELECT data FROM documents WHERE collection = ? AND id = ?`

	var data string
	err := s.db.getExecutor(ctx).QueryRowContext(ctx, query, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Document{}, false, nil
	}
	if err != nil {
		s.logger.Error("Failed to get document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err))
		return entity.Document{}, false, fmt.Errorf("failed to get document: %w", err)
	}

	return entity.Document{ID: id, Data: json.RawMessage(data)}, true, nil
}

// List returns every document of a collection in insertion order
func (s *DocumentStore) List(ctx context.Context, collection string) ([]entity.Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = ? ORDER BY rowid ASC`

	rows, err := s.db.getExecutor(ctx).QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]entity.Document, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, entity.Document{ID: id, Data: json.RawMessage(data)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}

	return docs, nil
}

// Create stores fields as a new document with a generated id.
// Any "id" in fields is replaced.
func (s *DocumentStore) Create(ctx context.Context, collection string, fields any) (string, error) {
	if s.isClosed() {
		return "", ErrStoreClosed
	}

	obj, err := toObject(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	obj["id"] = id

	data, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`
	if _, err := s.db.getExecutor(ctx).ExecContext(ctx, query, collection, id, string(data)); err != nil {
		s.logger.Error("Failed to create document",
			zap.String("collection", collection),
			zap.Error(err))
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	s.db.AfterCommit(ctx, func() { s.notify(collection) })

	s.logger.Debug("Document created",
		zap.String("collection", collection),
		zap.String("id", id))

	return id, nil
}

// Set writes fields as the document with the given id, replacing any
// existing document. Used to provision profiles keyed by identity id.
func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields any) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	if id == "" {
		return fmt.Errorf("document id is required")
	}

	obj, err := toObject(fields)
	if err != nil {
		return err
	}
	obj["id"] = id

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = excluded.data, version = version + 1, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.getExecutor(ctx).ExecContext(ctx, query, collection, id, string(data)); err != nil {
		s.logger.Error("Failed to set document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to set document: %w", err)
	}

	s.db.AfterCommit(ctx, func() { s.notify(collection) })
	return nil
}

// Update merges fields into an existing document.
// A nil value removes the field; "id" cannot be changed.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if s.isClosed() {
		return ErrStoreClosed
	}

	patch, err := toObject(fields)
	if err != nil {
		return err
	}

	return s.db.WithTransaction(ctx, func(ctx context.Context) error {
		doc, found, err := s.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s/%s: %w", collection, id, port.ErrNotFound)
		}

		current := make(map[string]any)
		if err := json.Unmarshal(doc.Data, &current); err != nil {
			return fmt.Errorf("failed to decode stored document: %w", err)
		}

		for k, v := range patch {
			if k == "id" {
				continue
			}
			if v == nil {
				delete(current, k)
				continue
			}
			current[k] = v
		}
		current["id"] = id

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		query := `
			UPDATE documents
			SET data = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE collection = ? AND id = ?
		`
		if _, err := s.db.getExecutor(ctx).ExecContext(ctx, query, string(data), collection, id); err != nil {
			s.logger.Error("Failed to update document",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err))
			return fmt.Errorf("failed to update document: %w", err)
		}

		s.db.AfterCommit(ctx, func() { s.notify(collection) })
		return nil
	})
}

// Subscribe registers snapshot callbacks for a collection.
// The subscriber receives the current contents first. Cancelling ctx
// has the same effect as calling the returned Unsubscribe.
func (s *DocumentStore) Subscribe(ctx context.Context, collection string, onSnapshot port.SnapshotFunc, onError port.ErrorFunc) (port.Unsubscribe, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrStoreClosed
	}
	h := s.hubLocked(collection)
	sub := newSubscriber(onSnapshot, onError)
	id := h.add(sub)
	s.wg.Add(1)
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.remove(id)
			sub.stop()
		})
	}

	go func() {
		defer s.wg.Done()
		sub.run(ctx)
		unsubscribe()
	}()

	h.markDirty()
	return unsubscribe, nil
}

// Close stops every publisher and subscriber goroutine
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	hubs := s.hubs
	s.hubs = map[string]*hub{}
	s.mu.Unlock()

	s.cancel()
	for _, h := range hubs {
		h.stopAll()
	}
	s.wg.Wait()
	return nil
}

func (s *DocumentStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// hubLocked returns the hub for collection, starting it if needed. s.mu must be held.
func (s *DocumentStore) hubLocked(collection string) *hub {
	h, ok := s.hubs[collection]
	if !ok {
		h = newHub(collection, s.List, s.logger)
		s.hubs[collection] = h
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			h.run(s.ctx)
		}()
	}
	return h
}

func (s *DocumentStore) notify(collection string) {
	s.mu.Lock()
	h, ok := s.hubs[collection]
	s.mu.Unlock()
	if ok {
		h.markDirty()
	}
}

// toObject converts fields to a generic JSON object
func toObject(fields any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	obj := make(map[string]any)
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("document fields must be a JSON object: %w", err)
	}
	return obj, nil
}

var _ port.DocumentStore = (*DocumentStore)(nil)
