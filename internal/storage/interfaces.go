package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/matchline/internal/models"
)

// UserStore holds the user relations the realtime features touch
type UserStore interface {
	// AddToWishlist adds targetID to userID's wishlist and reports whether it was new
	AddToWishlist(ctx context.Context, userID, targetID string) (bool, error)

	// RemoveFromWishlist removes targetID and reports whether it was present
	RemoveFromWishlist(ctx context.Context, userID, targetID string) (bool, error)

	Wishlist(ctx context.Context, userID string) ([]string, error)

	// AddMatch records a one-directional match; callers add both directions
	AddMatch(ctx context.Context, userID, otherID string) error

	Matches(ctx context.Context, userID string) ([]string, error)
}

// RequestFilter selects connection requests. Empty fields match anything.
type RequestFilter struct {
	SenderID   string
	ReceiverID string
	Involving  string // sender or receiver
	Status     models.RequestStatus
	EitherWay  bool // SenderID/ReceiverID also match swapped
}

// ConnectionRequestStore persists connection requests
type ConnectionRequestStore interface {
	CreateRequest(ctx context.Context, req *models.ConnectionRequest) error

	// GetRequest returns models.ErrNotFound when the id is unknown
	GetRequest(ctx context.Context, id string) (*models.ConnectionRequest, error)

	// FindRequest returns the most recent matching request or models.ErrNotFound
	FindRequest(ctx context.Context, filter RequestFilter) (*models.ConnectionRequest, error)

	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.ConnectionRequest, error)
	UpdateRequest(ctx context.Context, req *models.ConnectionRequest) error
	DeleteRequest(ctx context.Context, id string) error
}

// NotificationFilter selects notifications. Empty fields match anything.
type NotificationFilter struct {
	UserID     string
	FromUserID string
	Kind       models.NotificationKind
	RequestID  string
}

// NotificationStore persists notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)

	// ListNotifications returns matches newest first
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.Notification, error)

	UpdateNotification(ctx context.Context, n *models.Notification) error

	// DeleteNotifications removes every match and returns how many were removed.
	// An empty filter is rejected with models.ErrInvalidPayload.
	DeleteNotifications(ctx context.Context, filter NotificationFilter) (int, error)
}

// ChatStore persists conversations
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)

	// FindChatBetween returns the chat both users take part in, or models.ErrNotFound
	FindChatBetween(ctx context.Context, userA, userB string) (*models.Chat, error)

	SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error
	DeleteChat(ctx context.Context, id string) error
}

// MessageStore persists chat messages
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)

	// ListMessages returns a chat's messages oldest first
	ListMessages(ctx context.Context, chatID string) ([]*models.Message, error)

	UpdateMessage(ctx context.Context, msg *models.Message) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteMessages(ctx context.Context, chatID string) (int, error)

	// MarkSeen flags every unseen message in chatID not sent by viewerID
	MarkSeen(ctx context.Context, chatID, viewerID string) (int, error)
}

// Store is the persistence gateway used by the domain services
type Store interface {
	UserStore
	ConnectionRequestStore
	NotificationStore
	ChatStore
	MessageStore

	Close() error
}

// RedisClient defines the Redis operations used for the event stream
type RedisClient interface {
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error
	ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error)
	AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error

	Close() error
}

// StreamMessage represents a message from a Redis stream
type StreamMessage struct {
	ID     string
	Stream string
	Values map[string]interface{}
}
