package dispatcher

import (
	"context"

	"github.com/garyjia/club-expenses/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// Publisher is the narrow side of the dispatcher that write paths depend on
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}
