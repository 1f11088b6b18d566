package events

import (
	"context"

	"github.com/leandro-lugaresi/hub"

	"github.com/mohamedkhairy/matchline/pkg/logger"
)

const busSubscriberCapacity = 256

func topic(k Kind) string {
	return "matchline." + string(k)
}

// Bus is the in-process transport used when the API and the gateway share a process
type Bus struct {
	hub *hub.Hub
}

// NewBus creates an in-process event bus
func NewBus() *Bus {
	return &Bus{hub: hub.New()}
}

// Publish implements Publisher. Events published before any consumer
// subscribed are dropped, which is acceptable for best-effort delivery.
func (b *Bus) Publish(_ context.Context, ev *Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	b.hub.Publish(hub.Message{
		Name:   topic(ev.Kind),
		Fields: hub.Fields{"event": ev},
	})
	return nil
}

// Consume implements Source
func (b *Bus) Consume(ctx context.Context, handler Handler) error {
	sub := b.hub.Subscribe(busSubscriberCapacity,
		topic(KindNotification),
		topic(KindChatMessage),
		topic(KindChatSeen),
	)
	defer b.hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Receiver:
			if !ok {
				return nil
			}
			ev, ok := msg.Fields["event"].(*Event)
			if !ok {
				logger.Warn("Dropping bus message without event payload",
					logger.String("topic", msg.Topic()),
				)
				continue
			}
			if err := handler(ctx, ev); err != nil {
				logger.Warn("Event handler failed",
					logger.ErrorField(err),
					logger.String("kind", string(ev.Kind)),
				)
			}
		}
	}
}

// Close stops the bus and releases subscribers
func (b *Bus) Close() {
	b.hub.Close()
}
