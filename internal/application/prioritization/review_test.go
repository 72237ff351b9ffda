package prioritization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

func TestReview_Run(t *testing.T) {
	t.Run("records result", func(t *testing.T) {
		ranker := &mockRanker{
			RankFunc: func(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
				return []port.Ranking{{ExpenseID: "e1", PriorityScore: 4, Reason: "soon"}}, nil
			},
		}
		r := NewReview(NewGateway(ranker, nopLogger{}))

		initial := r.State()
		assert.False(t, initial.Loading)
		assert.Empty(t, initial.PrioritizedExpenses)

		got := r.Run(context.Background(), []entity.Expense{expense("e1", entity.ExpenseStatusPending)})
		assert.False(t, got.Loading)
		assert.Empty(t, got.Error)
		require.Len(t, got.PrioritizedExpenses, 1)

		state := r.State()
		require.Len(t, state.PrioritizedExpenses, 1)
		assert.Equal(t, "soon", state.PrioritizedExpenses[0].Reason)
	})

	t.Run("failure clears previous result", func(t *testing.T) {
		fail := false
		ranker := &mockRanker{
			RankFunc: func(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
				if fail {
					return nil, errors.New("model exploded")
				}
				return []port.Ranking{{ExpenseID: "e1", PriorityScore: 1}}, nil
			},
		}
		r := NewReview(NewGateway(ranker, nopLogger{}))
		expenses := []entity.Expense{expense("e1", entity.ExpenseStatusPending)}

		r.Run(context.Background(), expenses)
		require.Len(t, r.State().PrioritizedExpenses, 1)

		fail = true
		state := r.Run(context.Background(), expenses)
		assert.Empty(t, state.PrioritizedExpenses)
		assert.Equal(t, "model exploded", state.Error)
		assert.Equal(t, KindFailed, state.ErrorKind)
	})

	t.Run("shows loading while the model runs", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		ranker := &mockRanker{
			RankFunc: func(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
				close(started)
				<-release
				return nil, nil
			},
		}
		r := NewReview(NewGateway(ranker, nopLogger{}))

		done := make(chan ReviewState)
		go func() {
			done <- r.Run(context.Background(), []entity.Expense{expense("e1", entity.ExpenseStatusPending)})
		}()

		<-started
		assert.True(t, r.State().Loading)
		close(release)

		final := <-done
		assert.False(t, final.Loading)
		assert.False(t, r.State().Loading)
	})

	t.Run("state copies are independent", func(t *testing.T) {
		ranker := &mockRanker{
			RankFunc: func(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
				return []port.Ranking{{ExpenseID: "e1", PriorityScore: 1, Reason: "original"}}, nil
			},
		}
		r := NewReview(NewGateway(ranker, nopLogger{}))
		r.Run(context.Background(), []entity.Expense{expense("e1", entity.ExpenseStatusPending)})

		s := r.State()
		s.PrioritizedExpenses[0].Reason = "mutated"
		assert.Equal(t, "original", r.State().PrioritizedExpenses[0].Reason)
	})
}
