package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/event"
	"github.com/garyjia/club-expenses/internal/domain/role"
	"github.com/garyjia/club-expenses/internal/domain/workflow"
)

// RequestService manages representative requests
type RequestService interface {
	Submit(ctx context.Context, actor Actor, clubID string) (*entity.RepresentativeRequest, error)
	Decide(ctx context.Context, actor Actor, requestID string, approve bool) error
}

type requestServiceImpl struct {
	store     port.DocumentStore
	tx        port.TransactionManager
	publisher dispatcher.Publisher
	logger    Logger
	now       func() time.Time
}

// NewRequestService creates a new RequestService. Each decision and
// submission runs as one transaction on txManager.
func NewRequestService(store port.DocumentStore, txManager port.TransactionManager, publisher dispatcher.Publisher, logger Logger) RequestService {
	return &requestServiceImpl{
		store:     store,
		tx:        txManager,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit asks to make the actor the representative of a club
func (s *requestServiceImpl) Submit(ctx context.Context, actor Actor, clubID string) (*entity.RepresentativeRequest, error) {
	if err := actor.authorize(role.ActionRequestRepresentative); err != nil {
		return nil, err
	}

	clubID = strings.TrimSpace(clubID)
	if clubID == "" {
		return nil, invalid("clubId", "please select a club")
	}
	club, err := getClub(ctx, s.store, clubID)
	if err != nil {
		return nil, err
	}
	if club == nil {
		return nil, invalid("clubId", "the selected club could not be found")
	}

	req := &entity.RepresentativeRequest{
		UserID:      actor.ID,
		UserName:    actor.Name,
		ClubID:      club.ID,
		ClubName:    club.Name,
		Status:      entity.RequestStatusPending,
		RequestDate: s.now().UTC(),
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		pending, err := s.hasPendingRequest(ctx, actor.ID, clubID)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: a request for %s is already pending", ErrConflict, club.Name)
		}

		id, err := s.store.Create(ctx, entity.CollectionRepresentativeRequests, req)
		if err != nil {
			s.logger.Error("Failed to create representative request", "error", err, "club_id", clubID, "user_id", actor.ID)
			return fmt.Errorf("create request: %w", err)
		}
		req.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Representative request submitted", "id", req.ID, "club_id", clubID, "user_id", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeRequestSubmitted, entity.CollectionRepresentativeRequests, req.ID, actor.ID, map[string]interface{}{
		"user_name": req.UserName,
		"club_name": req.ClubName,
	}))
	return req, nil
}

// Decide approves or rejects a pending request. The read, the pending check
// and the writes share one transaction, so concurrent decisions on the same
// request see each other and only the first succeeds. Approval first makes
// the requester the club's representative and then records the decision; if
// the second write fails the club's previous representative is restored.
func (s *requestServiceImpl) Decide(ctx context.Context, actor Actor, requestID string, approve bool) error {
	if err := actor.authorize(role.ActionDecideRequest); err != nil {
		return err
	}

	var (
		req  *entity.RepresentativeRequest
		next entity.RequestStatus
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.getRequest(ctx, requestID)
		if err != nil {
			return err
		}

		next, err = s.nextStatus(ctx, req, approve)
		if err != nil {
			return err
		}

		if approve {
			return s.approve(ctx, req, next)
		}
		if err := s.store.Update(ctx, entity.CollectionRepresentativeRequests, requestID, map[string]any{"status": next}); err != nil {
			s.logger.Error("Failed to reject request", "error", err, "id", requestID)
			return fmt.Errorf("update request status: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Representative request decided", "id", requestID, "status", next, "by", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeRequestDecided, entity.CollectionRepresentativeRequests, requestID, actor.ID, map[string]interface{}{
		"status":    string(next),
		"user_name": req.UserName,
		"club_name": req.ClubName,
	}))
	return nil
}

// nextStatus fires the decision on the request's state machine. Only a
// pending request can be decided.
func (s *requestServiceImpl) nextStatus(ctx context.Context, req *entity.RepresentativeRequest, approve bool) (entity.RequestStatus, error) {
	if !req.Status.IsValid() {
		return "", fmt.Errorf("%w: request %s has unknown status %q", ErrConflict, req.ID, req.Status)
	}

	trigger := workflow.TriggerReject
	if approve {
		trigger = workflow.TriggerApprove
	}
	machine := workflow.NewRequestMachine(req.Status)
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrInvalidState) {
			return "", fmt.Errorf("%w: request %s is already %s", ErrConflict, req.ID, req.Status)
		}
		return "", err
	}
	return machine.State(), nil
}

func (s *requestServiceImpl) approve(ctx context.Context, req *entity.RepresentativeRequest, next entity.RequestStatus) error {
	club, err := getClub(ctx, s.store, req.ClubID)
	if err != nil {
		return err
	}
	if club == nil {
		return fmt.Errorf("club %s: %w", req.ClubID, port.ErrNotFound)
	}
	previous := club.RepresentativeID

	if err := s.store.Update(ctx, entity.CollectionClubs, club.ID, map[string]any{"representativeId": req.UserID}); err != nil {
		s.logger.Error("Failed to assign representative", "error", err, "club_id", club.ID, "user_id", req.UserID)
		return fmt.Errorf("assign representative: %w", err)
	}

	if err := s.store.Update(ctx, entity.CollectionRepresentativeRequests, req.ID, map[string]any{"status": next}); err != nil {
		s.logger.Error("Failed to record approval, restoring representative",
			"error", err,
			"request_id", req.ID,
			"club_id", club.ID,
		)
		if rbErr := s.store.Update(ctx, entity.CollectionClubs, club.ID, map[string]any{"representativeId": previous}); rbErr != nil {
			s.logger.Error("Club representative left inconsistent with request",
				"error", rbErr,
				"request_id", req.ID,
				"club_id", club.ID,
				"representative_id", req.UserID,
				"previous_representative_id", previous,
			)
		}
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

func (s *requestServiceImpl) getRequest(ctx context.Context, id string) (*entity.RepresentativeRequest, error) {
	doc, found, err := s.store.Get(ctx, entity.CollectionRepresentativeRequests, id)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("request %s: %w", id, port.ErrNotFound)
	}
	var req entity.RepresentativeRequest
	if err := doc.Decode(&req); err != nil {
		return nil, err
	}
	req.ID = doc.ID
	return &req, nil
}

func (s *requestServiceImpl) hasPendingRequest(ctx context.Context, userID, clubID string) (bool, error) {
	docs, err := s.store.List(ctx, entity.CollectionRepresentativeRequests)
	if err != nil {
		return false, fmt.Errorf("list requests: %w", err)
	}
	requests, _ := entity.DecodeDocuments[entity.RepresentativeRequest](docs)
	for _, r := range requests {
		if r.UserID == userID && r.ClubID == clubID && r.Status == entity.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}
