package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/event"
	"github.com/garyjia/club-expenses/internal/domain/role"
	"github.com/garyjia/club-expenses/internal/domain/workflow"
	"github.com/garyjia/club-expenses/pkg/utils"
)

// SubmitExpenseInput is a new expense as entered by the submitter
type SubmitExpenseInput struct {
	ClubID      string  `json:"clubId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ReceiptURL  string  `json:"receiptUrl,omitempty"`
}

// ExpenseService manages expense writes
type ExpenseService interface {
	Submit(ctx context.Context, actor Actor, input SubmitExpenseInput) (*entity.Expense, error)
	SetStatus(ctx context.Context, actor Actor, expenseID string, status entity.ExpenseStatus) error
	Flag(ctx context.Context, actor Actor, expenseID string) error
	Comment(ctx context.Context, actor Actor, expenseID, comment string) error
}

type expenseServiceImpl struct {
	store     port.DocumentStore
	publisher dispatcher.Publisher
	logger    Logger
	now       func() time.Time
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(store port.DocumentStore, publisher dispatcher.Publisher, logger Logger) ExpenseService {
	return &expenseServiceImpl{
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates and stores a new Pending expense
func (s *expenseServiceImpl) Submit(ctx context.Context, actor Actor, input SubmitExpenseInput) (*entity.Expense, error) {
	if err := actor.authorize(role.ActionSubmitExpense); err != nil {
		return nil, err
	}

	description := utils.SanitizeText(input.Description)
	clubID := strings.TrimSpace(input.ClubID)
	switch {
	case clubID == "":
		return nil, invalid("clubId", "please select a club")
	case utf8.RuneCountInString(description) < entity.MinExpenseDescriptionLength:
		return nil, invalid("description", "must be at least %d characters", entity.MinExpenseDescriptionLength)
	case !(input.Amount > 0):
		return nil, invalid("amount", "must be a positive number")
	}

	club, err := getClub(ctx, s.store, clubID)
	if err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleRepresentative && (club == nil || club.RepresentativeID != actor.ID) {
		return nil, fmt.Errorf("%w: representatives may only submit for clubs they represent", ErrForbidden)
	}

	expense := &entity.Expense{
		ClubID:        clubID,
		ClubName:      entity.UnknownClubName,
		Description:   description,
		Amount:        input.Amount,
		Status:        entity.ExpenseStatusPending,
		SubmittedDate: s.now().UTC(),
		ReceiptURL:    strings.TrimSpace(input.ReceiptURL),
		SubmitterID:   actor.ID,
		SubmitterName: actor.Name,
	}
	if club != nil {
		expense.ClubName = club.Name
	}

	id, err := s.store.Create(ctx, entity.CollectionExpenses, expense)
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "club_id", clubID, "submitter_id", actor.ID)
		return nil, fmt.Errorf("create expense: %w", err)
	}
	expense.ID = id

	s.logger.Info("Expense submitted", "id", id, "club_id", clubID, "amount", input.Amount)
	publish(ctx, s.publisher, event.NewEvent(event.TypeExpenseSubmitted, entity.CollectionExpenses, id, actor.ID, map[string]interface{}{
		"club_name":      expense.ClubName,
		"description":    expense.Description,
		"amount":         expense.Amount,
		"submitter_name": expense.SubmitterName,
	}))
	return expense, nil
}

// SetStatus moves an expense to Under Review, Approved or Rejected
func (s *expenseServiceImpl) SetStatus(ctx context.Context, actor Actor, expenseID string, status entity.ExpenseStatus) error {
	if err := actor.authorize(role.ActionSetExpenseStatus); err != nil {
		return err
	}

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	next, err := workflow.ApplyExpenseStatus(ctx, expense.Status, status)
	if err != nil {
		if errors.Is(err, workflow.ErrInvalidTransition) {
			return invalid("status", "cannot set status to %q", status)
		}
		return fmt.Errorf("%w: expense %s has status %q", ErrConflict, expenseID, expense.Status)
	}

	if err := s.store.Update(ctx, entity.CollectionExpenses, expenseID, map[string]any{"status": next}); err != nil {
		s.logger.Error("Failed to update expense status", "error", err, "id", expenseID, "status", next)
		return fmt.Errorf("update expense status: %w", err)
	}

	s.logger.Info("Expense status updated", "id", expenseID, "from", expense.Status, "to", next)
	publish(ctx, s.publisher, event.NewEvent(event.TypeExpenseStatusChanged, entity.CollectionExpenses, expenseID, actor.ID, map[string]interface{}{
		"from":        string(expense.Status),
		"to":          string(next),
		"club_name":   expense.ClubName,
		"description": expense.Description,
		"amount":      expense.Amount,
	}))
	return nil
}

// Flag marks an expense for admin attention. Only the representative of
// the expense's club may flag it.
func (s *expenseServiceImpl) Flag(ctx context.Context, actor Actor, expenseID string) error {
	if err := actor.authorize(role.ActionFlagExpense); err != nil {
		return err
	}

	expense, err := s.getExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	club, err := getClub(ctx, s.store, expense.ClubID)
	if err != nil {
		return err
	}
	if club == nil || club.RepresentativeID != actor.ID {
		return fmt.Errorf("%w: not the representative of this club", ErrForbidden)
	}
	if expense.IsFlagged {
		return nil
	}

	if err := s.store.Update(ctx, entity.CollectionExpenses, expenseID, map[string]any{"isFlagged": true}); err != nil {
		s.logger.Error("Failed to flag expense", "error", err, "id", expenseID)
		return fmt.Errorf("flag expense: %w", err)
	}

	s.logger.Info("Expense flagged", "id", expenseID, "by", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeExpenseFlagged, entity.CollectionExpenses, expenseID, actor.ID, map[string]interface{}{
		"club_name":   club.Name,
		"description": expense.Description,
		"amount":      expense.Amount,
		"flagged_by":  actor.Name,
	}))
	return nil
}

// Comment attaches an admin comment to an expense, replacing any previous one
func (s *expenseServiceImpl) Comment(ctx context.Context, actor Actor, expenseID, comment string) error {
	if err := actor.authorize(role.ActionCommentExpense); err != nil {
		return err
	}

	text := utils.SanitizeText(comment)
	if text == "" {
		return invalid("comment", "must not be empty")
	}

	if _, err := s.getExpense(ctx, expenseID); err != nil {
		return err
	}

	if err := s.store.Update(ctx, entity.CollectionExpenses, expenseID, map[string]any{"adminComment": text}); err != nil {
		s.logger.Error("Failed to comment on expense", "error", err, "id", expenseID)
		return fmt.Errorf("comment on expense: %w", err)
	}

	s.logger.Info("Expense commented", "id", expenseID, "by", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeExpenseCommented, entity.CollectionExpenses, expenseID, actor.ID, map[string]interface{}{
		"comment": text,
	}))
	return nil
}

func (s *expenseServiceImpl) getExpense(ctx context.Context, id string) (*entity.Expense, error) {
	doc, found, err := s.store.Get(ctx, entity.CollectionExpenses, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("expense %s: %w", id, port.ErrNotFound)
	}
	var expense entity.Expense
	if err := doc.Decode(&expense); err != nil {
		return nil, err
	}
	expense.ID = doc.ID
	return &expense, nil
}

// getClub returns nil without error when the club does not exist
func getClub(ctx context.Context, store port.DocumentStore, id string) (*entity.Club, error) {
	doc, found, err := store.Get(ctx, entity.CollectionClubs, id)
	if err != nil {
		return nil, fmt.Errorf("get club: %w", err)
	}
	if !found {
		return nil, nil
	}
	var club entity.Club
	if err := doc.Decode(&club); err != nil {
		return nil, err
	}
	club.ID = doc.ID
	return &club, nil
}

func publish(ctx context.Context, publisher dispatcher.Publisher, evt *event.Event) {
	if publisher == nil {
		return
	}
	publisher.DispatchAsync(ctx, evt)
}
