package prioritization

import (
	"context"
	"sync"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// ReviewState is what a reviewer sees of the latest prioritization run
type ReviewState struct {
	PrioritizedExpenses []entity.PrioritizedExpense `json:"prioritizedExpenses"`
	Loading             bool                        `json:"loading"`
	Error               string                      `json:"error,omitempty"`
	ErrorKind           ErrorKind                   `json:"errorKind,omitempty"`
}

// Review holds the prioritization state of one session.
// Concurrent runs are allowed; the last one to finish wins.
type Review struct {
	gateway *Gateway

	mu    sync.Mutex
	state ReviewState
	runID uint64
}

// NewReview creates an idle review
func NewReview(gateway *Gateway) *Review {
	return &Review{
		gateway: gateway,
		state:   ReviewState{PrioritizedExpenses: []entity.PrioritizedExpense{}},
	}
}

// State returns a copy of the current review state
func (r *Review) State() ReviewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

// Run clears the previous result, ranks expenses and records the outcome
func (r *Review) Run(ctx context.Context, expenses []entity.Expense) ReviewState {
	r.mu.Lock()
	r.runID++
	id := r.runID
	r.state = ReviewState{
		PrioritizedExpenses: []entity.PrioritizedExpense{},
		Loading:             true,
	}
	r.mu.Unlock()

	result, err := r.gateway.Prioritize(ctx, expenses)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := ReviewState{PrioritizedExpenses: []entity.PrioritizedExpense{}}
	if err != nil {
		c := Classify(err)
		next.Error = c.Message
		next.ErrorKind = c.Kind
	} else {
		next.PrioritizedExpenses = result
	}

	// An older run finishing late must not overwrite a newer one
	if id == r.runID {
		r.state = next
	}
	return next
}

func (r *Review) copyLocked() ReviewState {
	out := r.state
	out.PrioritizedExpenses = append([]entity.PrioritizedExpense{}, r.state.PrioritizedExpenses...)
	return out
}
