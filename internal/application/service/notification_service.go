package service

import (
	"context"
	"fmt"

	"github.com/garyjia/club-expenses/internal/application/dispatcher"
	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/event"
)

// notifiedEvents are the events forwarded to the review channel
var notifiedEvents = []event.Type{
	event.TypeExpenseSubmitted,
	event.TypeExpenseStatusChanged,
	event.TypeExpenseFlagged,
	event.TypeClubRegistered,
	event.TypeRequestSubmitted,
	event.TypeRequestDecided,
}

// NotificationService turns domain events into review channel messages
type NotificationService struct {
	notifier port.Notifier
	logger   Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifier port.Notifier, logger Logger) *NotificationService {
	return &NotificationService{
		notifier: notifier,
		logger:   logger,
	}
}

// Register subscribes the service to every notified event
func (s *NotificationService) Register(d dispatcher.Dispatcher) {
	d.SubscribeAll("review-channel-notifier", s.Handle, notifiedEvents...)
}

// Handle delivers the message for evt. Events without a message are ignored.
func (s *NotificationService) Handle(ctx context.Context, evt *event.Event) error {
	title, body, ok := BuildMessage(evt)
	if !ok {
		return nil
	}

	if err := s.notifier.Notify(ctx, title, body); err != nil {
		s.logger.Error("Failed to send notification", "error", err, "event_type", evt.Type, "document_id", evt.DocumentID)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent", "event_type", evt.Type, "document_id", evt.DocumentID)
	return nil
}

// BuildMessage renders the title and body announcing evt
func BuildMessage(evt *event.Event) (title, body string, ok bool) {
	switch evt.Type {
	case event.TypeExpenseSubmitted:
		return "New expense submitted",
			fmt.Sprintf("%s submitted $%.2f for %s: %s",
				evt.GetPayloadString("submitter_name"),
				evt.GetPayloadFloat("amount"),
				evt.GetPayloadString("club_name"),
				evt.GetPayloadString("description")), true

	case event.TypeExpenseStatusChanged:
		return "Expense status updated",
			fmt.Sprintf("%s expense of $%.2f (%s) moved from %s to %s",
				evt.GetPayloadString("club_name"),
				evt.GetPayloadFloat("amount"),
				evt.GetPayloadString("description"),
				evt.GetPayloadString("from"),
				evt.GetPayloadString("to")), true

	case event.TypeExpenseFlagged:
		return "Expense flagged for review",
			fmt.Sprintf("%s flagged a %s expense of $%.2f: %s",
				evt.GetPayloadString("flagged_by"),
				evt.GetPayloadString("club_name"),
				evt.GetPayloadFloat("amount"),
				evt.GetPayloadString("description")), true

	case event.TypeClubRegistered:
		return "Club registered",
			fmt.Sprintf("%s registered %s",
				evt.GetPayloadString("representative_name"),
				evt.GetPayloadString("club_name")), true

	case event.TypeRequestSubmitted:
		return "Representative request",
			fmt.Sprintf("%s asked to represent %s",
				evt.GetPayloadString("user_name"),
				evt.GetPayloadString("club_name")), true

	case event.TypeRequestDecided:
		return "Representative request decided",
			fmt.Sprintf("Request from %s to represent %s was %s",
				evt.GetPayloadString("user_name"),
				evt.GetPayloadString("club_name"),
				evt.GetPayloadString("status")), true
	}
	return "", "", false
}
