// Package events carries domain events from the places that persist them
// (the API services) to the realtime gateway that delivers them.
package events

import (
	"context"
	"errors"

	"github.com/mohamedkhairy/matchline/internal/models"
)

// Kind identifies the payload an Event carries
type Kind string

const (
	KindNotification Kind = "notification"
	KindChatMessage  Kind = "chat_message"
	KindChatSeen     Kind = "chat_seen"
)

// ErrMalformedEvent is returned when an event does not carry the payload its kind requires
var ErrMalformedEvent = errors.New("malformed event")

// Event is the envelope shared by every transport
type Event struct {
	Kind         Kind                     `json:"kind"`
	Notification *models.Notification     `json:"notification,omitempty"`
	Message      *models.ChatMessageEvent `json:"message,omitempty"`
	Seen         *models.SeenEvent        `json:"seen,omitempty"`
}

// Validate checks that the payload matching Kind is present
func (e *Event) Validate() error {
	switch e.Kind {
	case KindNotification:
		if e.Notification == nil {
			return ErrMalformedEvent
		}
	case KindChatMessage:
		if e.Message == nil {
			return ErrMalformedEvent
		}
	case KindChatSeen:
		if e.Seen == nil {
			return ErrMalformedEvent
		}
	default:
		return ErrMalformedEvent
	}
	return nil
}

func NotificationCreated(n *models.Notification) *Event {
	return &Event{Kind: KindNotification, Notification: n}
}

func ChatMessageSent(m *models.ChatMessageEvent) *Event {
	return &Event{Kind: KindChatMessage, Message: m}
}

func ChatSeen(conversationID, viewerID string) *Event {
	return &Event{Kind: KindChatSeen, Seen: &models.SeenEvent{ConversationID: conversationID, SeenBy: viewerID}}
}

// Publisher hands an already persisted event to the delivery side
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

// Handler processes one event from a Source
type Handler func(ctx context.Context, ev *Event) error

// Source delivers events to a handler until ctx is cancelled
type Source interface {
	Consume(ctx context.Context, handler Handler) error
}
