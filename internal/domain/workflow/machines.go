package workflow

import (
	"context"

	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// NewSessionMachine returns the session lifecycle machine starting at SignedOut.
// SignIn is only accepted from SignedOut; callers tear a live session down
// before signing another principal in.
func NewSessionMachine() StateMachine[SessionState] {
	b := NewBuilder[SessionState]()

	b.Configure(SessionSignedOut).
		Permit(TriggerSignIn, SessionLoading)

	b.Configure(SessionLoading).
		Permit(TriggerLoaded, SessionReady).
		Permit(TriggerSignOut, SessionSignedOut)

	b.Configure(SessionReady).
		Permit(TriggerSignOut, SessionSignedOut)

	return b.Build(SessionSignedOut)
}

var requestBuilder = func() StateMachineBuilder[entity.RequestStatus] {
	b := NewBuilder[entity.RequestStatus]()
	b.Configure(entity.RequestStatusPending).
		Permit(TriggerApprove, entity.RequestStatusApproved).
		Permit(TriggerReject, entity.RequestStatusRejected)
	return b
}()

// NewRequestMachine returns a representative request machine at the given status.
// Approved and rejected are terminal.
func NewRequestMachine(status entity.RequestStatus) StateMachine[entity.RequestStatus] {
	return requestBuilder.Build(status)
}

var expenseBuilder = func() StateMachineBuilder[entity.ExpenseStatus] {
	b := NewBuilder[entity.ExpenseStatus]()
	for _, s := range []entity.ExpenseStatus{
		entity.ExpenseStatusPending,
		entity.ExpenseStatusUnderReview,
		entity.ExpenseStatusApproved,
		entity.ExpenseStatusRejected,
	} {
		b.Configure(s).
			Permit(TriggerMarkUnderReview, entity.ExpenseStatusUnderReview).
			Permit(TriggerApprove, entity.ExpenseStatusApproved).
			Permit(TriggerReject, entity.ExpenseStatusRejected)
	}
	return b
}()

// NewExpenseMachine returns an expense review machine at the given status.
// Admins may move an expense to any reviewed status from any status.
func NewExpenseMachine(status entity.ExpenseStatus) StateMachine[entity.ExpenseStatus] {
	return expenseBuilder.Build(status)
}

// ExpenseTrigger returns the trigger that moves an expense to target
func ExpenseTrigger(target entity.ExpenseStatus) (Trigger, bool) {
	switch target {
	case entity.ExpenseStatusUnderReview:
		return TriggerMarkUnderReview, true
	case entity.ExpenseStatusApproved:
		return TriggerApprove, true
	case entity.ExpenseStatusRejected:
		return TriggerReject, true
	}
	return "", false
}

// ApplyExpenseStatus validates a status change and returns the resulting status
func ApplyExpenseStatus(ctx context.Context, current, target entity.ExpenseStatus) (entity.ExpenseStatus, error) {
	if !current.IsValid() {
		return current, ErrInvalidState
	}
	trigger, ok := ExpenseTrigger(target)
	if !ok {
		return current, ErrInvalidTransition
	}
	m := NewExpenseMachine(current)
	if err := m.Fire(ctx, trigger); err != nil {
		return current, err
	}
	return m.State(), nil
}
