package entity

import "time"

// ExpenseStatus is the review status of an expense
type ExpenseStatus string

const (
	ExpenseStatusPending     ExpenseStatus = "Pending"
	ExpenseStatusUnderReview ExpenseStatus = "Under Review"
	ExpenseStatusApproved    ExpenseStatus = "Approved"
	ExpenseStatusRejected    ExpenseStatus = "Rejected"
)

var validExpenseStatuses = map[ExpenseStatus]bool{
	ExpenseStatusPending:     true,
	ExpenseStatusUnderReview: true,
	ExpenseStatusApproved:    true,
	ExpenseStatusRejected:    true,
}

// IsValid returns true if the status is one of the four expense statuses
func (s ExpenseStatus) IsValid() bool {
	return validExpenseStatuses[s]
}

// IsOutstanding returns true for statuses still awaiting a decision
func (s ExpenseStatus) IsOutstanding() bool {
	return s == ExpenseStatusPending || s == ExpenseStatusUnderReview
}

// String returns the string representation of the status
func (s ExpenseStatus) String() string {
	return string(s)
}

// Expense is a reimbursement claim submitted against a club
type Expense struct {
	ID            string        `json:"id"`
	ClubID        string        `json:"clubId"`
	ClubName      string        `json:"clubName,omitempty"`
	Description   string        `json:"description"`
	Amount        float64       `json:"amount"`
	Status        ExpenseStatus `json:"status"`
	SubmittedDate time.Time     `json:"submittedDate"`
	ReceiptURL    string        `json:"receiptUrl,omitempty"`
	SubmitterID   string        `json:"submitterId"`
	SubmitterName string        `json:"submitterName,omitempty"`
	AdminComment  string        `json:"adminComment,omitempty"`
	IsFlagged     bool          `json:"isFlagged,omitempty"`
}

// PrioritizedExpense is an expense annotated with a model-assigned urgency.
// It is never persisted.
type PrioritizedExpense struct {
	Expense
	PriorityScore float64 `json:"priorityScore"`
	Reason        string  `json:"reason"`
}

// FindExpense returns the expense with the given id, or nil
func FindExpense(expenses []Expense, id string) *Expense {
	for i := range expenses {
		if expenses[i].ID == id {
			return &expenses[i]
		}
	}
	return nil
}
