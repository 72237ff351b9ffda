package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func ids(expenses []entity.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.ID
	}
	return out
}

var sample = []entity.Expense{
	{ID: "e1", ClubID: "chess", Description: "Chess CLOCKS", Amount: 40, Status: entity.ExpenseStatusPending, SubmittedDate: day(1), SubmitterID: "stu-1"},
	{ID: "e2", ClubID: "rowing", Description: "Oars", Amount: 120, Status: entity.ExpenseStatusUnderReview, SubmittedDate: day(5), SubmitterID: "stu-1"},
	{ID: "e3", ClubID: "chess", Description: "Tournament fee", Amount: 15, Status: entity.ExpenseStatusApproved, SubmittedDate: day(10), SubmitterID: "stu-2"},
	{ID: "e4", ClubID: "rowing", Description: "Boat clock", Amount: 9, Status: entity.ExpenseStatusRejected, SubmittedDate: day(20), SubmitterID: "stu-1"},
}

func TestExpenseFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter ExpenseFilter
		want   []string
	}{
		{"empty filter", ExpenseFilter{}, []string{"e1", "e2", "e3", "e4"}},
		{"description case-insensitive", ExpenseFilter{Description: "clock"}, []string{"e1", "e4"}},
		{"club", ExpenseFilter{ClubID: "chess"}, []string{"e1", "e3"}},
		{"from only", ExpenseFilter{From: ptr(day(5))}, []string{"e2", "e3", "e4"}},
		{"range inclusive", ExpenseFilter{From: ptr(day(5)), To: ptr(day(10))}, []string{"e2", "e3"}},
		{"to without from ignored", ExpenseFilter{To: ptr(day(2))}, []string{"e1", "e2", "e3", "e4"}},
		{"combined", ExpenseFilter{Description: "o", ClubID: "rowing", From: ptr(day(6))}, []string{"e4"}},
		{"no match", ExpenseFilter{Description: "pizza"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(sample)))
		})
	}
}

func TestVisibleExpenses(t *testing.T) {
	clubs := []entity.Club{
		{ID: "chess", RepresentativeID: "rep-1"},
		{ID: "rowing", RepresentativeID: "rep-2"},
	}

	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, ids(VisibleExpenses("admin-1", entity.RoleAdmin, clubs, sample)))
	assert.Equal(t, []string{"e1", "e3"}, ids(VisibleExpenses("rep-1", entity.RoleRepresentative, clubs, sample)))
	assert.Equal(t, []string{"e1", "e2", "e4"}, ids(VisibleExpenses("stu-1", entity.RoleStudent, clubs, sample)))
	assert.Empty(t, VisibleExpenses("stu-1", entity.RoleUnauthenticated, clubs, sample))
}

func TestSummarize(t *testing.T) {
	s := Summarize("stu-1", sample)
	assert.Equal(t, 3, s.TotalCount)
	assert.InDelta(t, 160.0, s.PendingAmount, 0.0001)

	assert.Equal(t, Summary{}, Summarize("nobody", sample))
}
