package port

import (
	"context"
	"errors"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// SnapshotFunc receives the full contents of a collection each time it changes
type SnapshotFunc func(snap entity.Snapshot)

// ErrorFunc receives a subscription failure. The subscription delivers nothing after it.
type ErrorFunc func(err error)

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// DocumentStore is a real-time collection-of-documents store.
// Subscribe delivers an initial snapshot and then one per change, in order.
type DocumentStore interface {
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (Unsubscribe, error)
	Get(ctx context.Context, collection, id string) (entity.Document, bool, error)
	List(ctx context.Context, collection string) ([]entity.Document, error)
	Create(ctx context.Context, collection string, fields any) (string, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
}

// TransactionManager runs fn with a transaction carried in its context.
// Store calls made with that context join the transaction, and concurrent
// transactions are serialized, so a read inside fn stays valid for the writes
// that follow it.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
