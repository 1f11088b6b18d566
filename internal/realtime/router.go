package realtime

import (
	"context"

	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// EventRouter delivers domain events produced by the API to live connections
type EventRouter struct {
	dispatcher *Dispatcher
	rooms      *Rooms
}

// NewEventRouter creates a router over the lifecycle's dispatcher and rooms
func NewEventRouter(lifecycle *Lifecycle) *EventRouter {
	return &EventRouter{
		dispatcher: lifecycle.Dispatcher(),
		rooms:      lifecycle.Rooms(),
	}
}

// Route delivers one event. Delivery is best-effort; only malformed events are errors.
func (r *EventRouter) Route(_ context.Context, ev *events.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	switch ev.Kind {
	case events.KindNotification:
		r.dispatcher.DispatchNotification(ev.Notification)

	case events.KindChatMessage:
		r.rooms.BroadcastMessage(ev.Message.ConversationID, ev.Message)
		r.rooms.NotifyChatListUpdate(ev.Message.Participants(), ev.Message)

	case events.KindChatSeen:
		r.rooms.BroadcastSeen(ev.Seen.ConversationID, ev.Seen.SeenBy)
	}
	return nil
}

// Run consumes src until ctx is cancelled
func (r *EventRouter) Run(ctx context.Context, src events.Source) error {
	logger.Info("Event router started")
	err := src.Consume(ctx, r.Route)
	logger.Info("Event router stopped")
	return err
}
