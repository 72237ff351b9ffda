// Package prioritization ranks outstanding expenses by urgency using an
// external model and joins the answer back onto the expense records.
package prioritization

import (
	"context"
	"sort"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// TopN is the number of ranked expenses kept
const TopN = 3

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Gateway turns an expense list into the top ranked outstanding expenses
type Gateway struct {
	ranker port.ExpenseRanker
	logger Logger
}

// NewGateway creates a gateway over ranker
func NewGateway(ranker port.ExpenseRanker, logger Logger) *Gateway {
	return &Gateway{ranker: ranker, logger: logger}
}

// Outstanding returns the Pending and Under Review expenses in input order
func Outstanding(expenses []entity.Expense) []entity.Expense {
	out := make([]entity.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Status.IsOutstanding() {
			out = append(out, e)
		}
	}
	return out
}

// BuildRequest maps expenses to the ranking request shape, preserving order
func BuildRequest(expenses []entity.Expense) []port.RankingInput {
	items := make([]port.RankingInput, len(expenses))
	for i, e := range expenses {
		items[i] = port.RankingInput{
			ExpenseID:   e.ID,
			Description: e.Description,
			Amount:      e.Amount,
		}
	}
	return items
}

// Join attaches rankings to the matching expenses by exact id. Rankings for
// unknown ids are dropped. The result is stably sorted by score, highest
// first, and truncated to TopN.
func Join(expenses []entity.Expense, rankings []port.Ranking) []entity.PrioritizedExpense {
	byID := make(map[string]entity.Expense, len(expenses))
	for _, e := range expenses {
		if _, dup := byID[e.ID]; !dup {
			byID[e.ID] = e
		}
	}

	joined := make([]entity.PrioritizedExpense, 0, len(rankings))
	for _, r := range rankings {
		e, ok := byID[r.ExpenseID]
		if !ok {
			continue
		}
		joined = append(joined, entity.PrioritizedExpense{
			Expense:       e,
			PriorityScore: r.PriorityScore,
			Reason:        r.Reason,
		})
	}

	sort.SliceStable(joined, func(i, j int) bool {
		return joined[i].PriorityScore > joined[j].PriorityScore
	})

	if len(joined) > TopN {
		joined = joined[:TopN]
	}
	return joined
}

// Prioritize ranks the outstanding expenses among expenses. With nothing
// outstanding it returns an empty result without calling the model.
// Failures are returned as *Error.
func (g *Gateway) Prioritize(ctx context.Context, expenses []entity.Expense) ([]entity.PrioritizedExpense, error) {
	outstanding := Outstanding(expenses)
	if len(outstanding) == 0 {
		return []entity.PrioritizedExpense{}, nil
	}

	g.logger.Info("Requesting expense ranking", "count", len(outstanding))

	rankings, err := g.ranker.Rank(ctx, BuildRequest(outstanding))
	if err != nil {
		classified := Classify(err)
		g.logger.Error("Expense ranking failed",
			"kind", classified.Kind,
			"error", err,
		)
		return nil, classified
	}

	result := Join(expenses, rankings)
	g.logger.Info("Expense ranking completed",
		"returned", len(rankings),
		"kept", len(result),
	)
	return result, nil
}
