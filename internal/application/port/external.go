package port

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

var (
	// ErrInvalidCredential is returned when an identity credential fails verification
	ErrInvalidCredential = errors.New("invalid identity credential")

	// ErrSessionNotFound is returned for unknown or expired session tokens
	ErrSessionNotFound = errors.New("session not found or expired")

	// ErrInvalidRanking is matched by errors reporting a model answer that
	// does not have the ranking shape
	ErrInvalidRanking = errors.New("invalid ranking response")
)

// IdentityVerifier turns an identity provider credential into a principal
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (entity.Principal, error)
}

// SessionRecord is what a session token resolves to
type SessionRecord struct {
	Token     string           `json:"token"`
	Principal entity.Principal `json:"principal"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// SessionStore issues and resolves opaque session tokens
type SessionStore interface {
	Create(ctx context.Context, principal entity.Principal) (*SessionRecord, error)
	Lookup(ctx context.Context, token string) (*SessionRecord, error)
	Touch(ctx context.Context, token string) error
	Revoke(ctx context.Context, token string) error
}

// RankingInput is one expense as sent to the ranking model
type RankingInput struct {
	ExpenseID   string  `json:"expenseId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Ranking is one validated element of the ranking model's answer
type Ranking struct {
	ExpenseID     string  `json:"expenseId"`
	PriorityScore float64 `json:"priorityScore"`
	Reason        string  `json:"reason"`
}

// ExpenseRanker asks an external model to score expenses by urgency.
// Implementations return either a fully valid ranking list or an error.
type ExpenseRanker interface {
	Rank(ctx context.Context, items []RankingInput) ([]Ranking, error)
}

// Notifier delivers a short human-readable message to the review channel
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// ReportWriter renders an expense list into a downloadable document
type ReportWriter interface {
	WriteExpenses(ctx context.Context, w io.Writer, expenses []entity.Expense) error
	ContentType() string
}
