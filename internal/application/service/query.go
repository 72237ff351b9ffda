package service

import (
	"strings"
	"time"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// ExpenseFilter narrows an expense list. Zero fields match everything.
// To only applies together with From.
type ExpenseFilter struct {
	Description string
	ClubID      string
	From        *time.Time
	To          *time.Time
}

// Apply returns the expenses matching every set field, in input order
func (f ExpenseFilter) Apply(expenses []entity.Expense) []entity.Expense {
	needle := strings.ToLower(strings.TrimSpace(f.Description))
	out := make([]entity.Expense, 0, len(expenses))
	for _, e := range expenses {
		if needle != "" && !strings.Contains(strings.ToLower(e.Description), needle) {
			continue
		}
		if f.ClubID != "" && e.ClubID != f.ClubID {
			continue
		}
		if f.From != nil {
			if e.SubmittedDate.Before(*f.From) {
				continue
			}
			if f.To != nil && e.SubmittedDate.After(*f.To) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// VisibleExpenses returns the expenses a role works with: admins see all,
// representatives the expenses of clubs they represent, students their own.
func VisibleExpenses(userID string, r entity.Role, clubs []entity.Club, expenses []entity.Expense) []entity.Expense {
	out := make([]entity.Expense, 0, len(expenses))
	switch r {
	case entity.RoleAdmin:
		out = append(out, expenses...)
	case entity.RoleRepresentative:
		owned := make(map[string]bool)
		for _, c := range entity.ClubsRepresentedBy(clubs, userID) {
			owned[c.ID] = true
		}
		for _, e := range expenses {
			if owned[e.ClubID] {
				out = append(out, e)
			}
		}
	case entity.RoleStudent:
		for _, e := range expenses {
			if e.SubmitterID == userID {
				out = append(out, e)
			}
		}
	}
	return out
}

// Summary is the headline numbers of a student's dashboard
type Summary struct {
	TotalCount    int     `json:"totalCount"`
	PendingAmount float64 `json:"pendingAmount"`
}

// Summarize totals a user's own expenses. The pending amount covers
// Pending and Under Review expenses.
func Summarize(userID string, expenses []entity.Expense) Summary {
	var s Summary
	for _, e := range expenses {
		if e.SubmitterID != userID {
			continue
		}
		s.TotalCount++
		if e.Status.IsOutstanding() {
			s.PendingAmount += e.Amount
		}
	}
	return s
}
