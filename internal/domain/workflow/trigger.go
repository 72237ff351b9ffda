package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// Session lifecycle
	TriggerSignIn  Trigger = "SIGN_IN"
	TriggerLoaded  Trigger = "LOADED"
	TriggerSignOut Trigger = "SIGN_OUT"

	// Review decisions
	TriggerMarkUnderReview Trigger = "MARK_UNDER_REVIEW"
	TriggerApprove         Trigger = "APPROVE"
	TriggerReject          Trigger = "REJECT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
