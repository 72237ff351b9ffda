package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/event"
)

func newRequestService(store *mockStore, pub *mockPublisher, logger *mockLogger) *requestServiceImpl {
	svc := NewRequestService(store, &mockTxManager{}, pub, logger).(*requestServiceImpl)
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	return svc
}

func seedRequest(store *mockStore, id string, status entity.RequestStatus) {
	store.put(entity.CollectionRepresentativeRequests, id, entity.RepresentativeRequest{
		UserID:      student.ID,
		UserName:    student.Name,
		ClubID:      "rowing",
		ClubName:    "Rowing",
		Status:      status,
		RequestDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestRequestService_Submit(t *testing.T) {
	t.Run("creates a pending request", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		pub := &mockPublisher{}
		svc := newRequestService(store, pub, &mockLogger{})

		req, err := svc.Submit(context.Background(), student, "rowing")
		require.NoError(t, err)
		assert.Equal(t, entity.RequestStatusPending, req.Status)
		assert.Equal(t, "Rowing", req.ClubName)
		assert.Equal(t, student.Name, req.UserName)
		assert.Equal(t, "pending", store.field(entity.CollectionRepresentativeRequests, req.ID, "status"))
		assert.Equal(t, []event.Type{event.TypeRequestSubmitted}, pub.types())
	})

	t.Run("rejects duplicate pending request", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		seedRequest(store, "r1", entity.RequestStatusPending)
		svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

		_, err := svc.Submit(context.Background(), student, "rowing")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("allows a new request after rejection", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		seedRequest(store, "r1", entity.RequestStatusRejected)
		svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

		_, err := svc.Submit(context.Background(), student, "rowing")
		assert.NoError(t, err)
	})

	t.Run("unknown club", func(t *testing.T) {
		store := newMockStore()
		svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

		_, err := svc.Submit(context.Background(), student, "ghost")
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.Submit(context.Background(), student, " ")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("only students may request", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

		_, err := svc.Submit(context.Background(), rep, "rowing")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = svc.Submit(context.Background(), admin, "rowing")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRequestService_Approve(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	seedRequest(store, "r1", entity.RequestStatusPending)
	pub := &mockPublisher{}
	svc := newRequestService(store, pub, &mockLogger{})

	require.NoError(t, svc.Decide(context.Background(), admin, "r1", true))

	assert.Equal(t, student.ID, store.field(entity.CollectionClubs, "rowing", "representativeId"))
	assert.Equal(t, "approved", store.field(entity.CollectionRepresentativeRequests, "r1", "status"))

	// Club first, then request
	require.Len(t, store.updates, 2)
	assert.Equal(t, entity.CollectionClubs, store.updates[0].collection)
	assert.Equal(t, entity.CollectionRepresentativeRequests, store.updates[1].collection)

	require.Len(t, pub.events, 1)
	assert.Equal(t, event.TypeRequestDecided, pub.events[0].Type)
	assert.Equal(t, "approved", pub.events[0].GetPayloadString("status"))
}

func TestRequestService_Reject(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	seedRequest(store, "r1", entity.RequestStatusPending)
	svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

	require.NoError(t, svc.Decide(context.Background(), admin, "r1", false))

	assert.Equal(t, "someone-else", store.field(entity.CollectionClubs, "rowing", "representativeId"))
	assert.Equal(t, "rejected", store.field(entity.CollectionRepresentativeRequests, "r1", "status"))
	assert.Len(t, store.updates, 1)
}

func TestRequestService_DecideIsMonotonic(t *testing.T) {
	for _, status := range []entity.RequestStatus{entity.RequestStatusApproved, entity.RequestStatusRejected} {
		for _, approve := range []bool{true, false} {
			store := newMockStore()
			seedClubs(store)
			seedRequest(store, "r1", status)
			svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

			err := svc.Decide(context.Background(), admin, "r1", approve)
			assert.ErrorIs(t, err, ErrConflict, "status %s approve %v", status, approve)
			assert.Empty(t, store.updates)
			assert.Equal(t, string(status), store.field(entity.CollectionRepresentativeRequests, "r1", "status"))
		}
	}
}

func TestRequestService_DecideErrors(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	seedRequest(store, "r1", entity.RequestStatusPending)
	store.put(entity.CollectionRepresentativeRequests, "r2", map[string]any{"status": "maybe", "clubId": "rowing"})
	svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

	assert.ErrorIs(t, svc.Decide(context.Background(), student, "r1", true), ErrForbidden)
	assert.ErrorIs(t, svc.Decide(context.Background(), admin, "missing", true), port.ErrNotFound)
	assert.ErrorIs(t, svc.Decide(context.Background(), admin, "r2", true), ErrConflict)
}

func TestRequestService_ApprovalCompensation(t *testing.T) {
	t.Run("restores previous representative", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		seedRequest(store, "r1", entity.RequestStatusPending)
		store.updateFunc = func(ctx context.Context, collection, id string, fields map[string]any) error {
			if collection == entity.CollectionRepresentativeRequests {
				return errors.New("write rejected")
			}
			return applyPatch(store, collection, id, fields)
		}
		pub := &mockPublisher{}
		logger := &mockLogger{}
		svc := newRequestService(store, pub, logger)

		err := svc.Decide(context.Background(), admin, "r1", true)
		assert.ErrorContains(t, err, "write rejected")
		assert.Equal(t, "someone-else", store.field(entity.CollectionClubs, "rowing", "representativeId"))
		assert.Equal(t, "pending", store.field(entity.CollectionRepresentativeRequests, "r1", "status"))
		assert.Empty(t, pub.events)

		require.Len(t, store.updates, 3)
		assert.Equal(t, student.ID, store.updates[0].fields["representativeId"])
		assert.Equal(t, "someone-else", store.updates[2].fields["representativeId"])
	})

	t.Run("logs when the restore also fails", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		seedRequest(store, "r1", entity.RequestStatusPending)
		clubWrites := 0
		store.updateFunc = func(ctx context.Context, collection, id string, fields map[string]any) error {
			if collection == entity.CollectionClubs {
				clubWrites++
				if clubWrites == 1 {
					return applyPatch(store, collection, id, fields)
				}
			}
			return errors.New("backend unavailable")
		}
		logger := &mockLogger{}
		svc := newRequestService(store, &mockPublisher{}, logger)

		err := svc.Decide(context.Background(), admin, "r1", true)
		assert.Error(t, err)
		assert.Equal(t, student.ID, store.field(entity.CollectionClubs, "rowing", "representativeId"))
		assert.Contains(t, logger.errors, "Club representative left inconsistent with request")
	})

	t.Run("club write failure leaves everything untouched", func(t *testing.T) {
		store := newMockStore()
		seedClubs(store)
		seedRequest(store, "r1", entity.RequestStatusPending)
		store.updateFunc = func(ctx context.Context, collection, id string, fields map[string]any) error {
			return errors.New("denied")
		}
		svc := newRequestService(store, &mockPublisher{}, &mockLogger{})

		assert.Error(t, svc.Decide(context.Background(), admin, "r1", true))
		assert.Len(t, store.updates, 1)
		assert.Equal(t, "pending", store.field(entity.CollectionRepresentativeRequests, "r1", "status"))
	})
}

// applyPatch writes fields straight into the mock's documents
func applyPatch(store *mockStore, collection, id string, fields map[string]any) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	obj, ok := store.docs[collection][id]
	if !ok {
		return port.ErrNotFound
	}
	for k, v := range fields {
		obj[k] = v
	}
	return nil
}

// runConcurrently starts every fn at the same moment and waits for all of them
func runConcurrently(fns ...func() error) []error {
	errs := make([]error, len(fns))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Add(1)
		go func(i int, fn func() error) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i, fn)
	}
	close(start)
	wg.Wait()
	return errs
}

func TestRequestService_ConcurrentDecisions(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	seedRequest(store, "r1", entity.RequestStatusPending)
	// Hold every reader between reading the request and writing its decision
	store.getFunc = func(ctx context.Context, collection, id string) (entity.Document, bool, error) {
		doc, found, err := store.read(collection, id)
		if collection == entity.CollectionRepresentativeRequests {
			time.Sleep(20 * time.Millisecond)
		}
		return doc, found, err
	}
	pub := &mockPublisher{}
	tx := &mockTxManager{}
	svc := NewRequestService(store, tx, pub, &mockLogger{})
	ctx := context.Background()

	errs := runConcurrently(
		func() error { return svc.Decide(ctx, admin, "r1", true) },
		func() error { return svc.Decide(ctx, admin, "r1", false) },
	)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded, "exactly one decision wins: %v", errs)
	assert.Equal(t, 2, tx.count)

	var statusWrites []string
	for _, u := range store.updates {
		if u.collection == entity.CollectionRepresentativeRequests {
			statusWrites = append(statusWrites, string(u.fields["status"].(entity.RequestStatus)))
		}
	}
	require.Len(t, statusWrites, 1, "the request status is written once")

	final := store.field(entity.CollectionRepresentativeRequests, "r1", "status")
	assert.Equal(t, statusWrites[0], final)

	representative := store.field(entity.CollectionClubs, "rowing", "representativeId")
	if final == string(entity.RequestStatusApproved) {
		assert.Equal(t, student.ID, representative)
	} else {
		assert.Equal(t, "someone-else", representative)
	}
	assert.Len(t, pub.events, 1)
}

func TestRequestService_ConcurrentSubmissions(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	store.listFunc = func(ctx context.Context, collection string) ([]entity.Document, error) {
		docs, err := store.list(collection)
		time.Sleep(20 * time.Millisecond)
		return docs, err
	}
	svc := newRequestService(store, &mockPublisher{}, &mockLogger{})
	ctx := context.Background()

	errs := runConcurrently(
		func() error { _, err := svc.Submit(ctx, student, "rowing"); return err },
		func() error { _, err := svc.Submit(ctx, student, "rowing"); return err },
	)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	docs, err := store.list(entity.CollectionRepresentativeRequests)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "only one pending request is stored")
}

func TestRequestService_TransactionFailure(t *testing.T) {
	store := newMockStore()
	seedClubs(store)
	seedRequest(store, "r1", entity.RequestStatusPending)
	tx := &mockTxManager{
		withTransactionFunc: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return errors.New("database is locked")
		},
	}
	pub := &mockPublisher{}
	svc := NewRequestService(store, tx, pub, &mockLogger{})

	err := svc.Decide(context.Background(), admin, "r1", true)
	assert.ErrorContains(t, err, "database is locked")
	assert.Empty(t, store.updates)
	assert.Empty(t, pub.events)
}
