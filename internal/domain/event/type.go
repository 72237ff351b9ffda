package event

// Type identifies the type of domain event
type Type string

const (
	TypeExpenseSubmitted     Type = "expense.submitted"
	TypeExpenseStatusChanged Type = "expense.status_changed"
	TypeExpenseFlagged       Type = "expense.flagged"
	TypeExpenseCommented     Type = "expense.commented"
	TypeClubRegistered       Type = "club.registered"
	TypeRequestSubmitted     Type = "request.submitted"
	TypeRequestDecided       Type = "request.decided"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseSubmitted,
		TypeExpenseStatusChanged,
		TypeExpenseFlagged,
		TypeExpenseCommented,
		TypeClubRegistered,
		TypeRequestSubmitted,
		TypeRequestDecided:
		return true
	default:
		return false
	}
}
