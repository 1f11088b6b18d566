package models

import (
	"time"
)

// NotificationKind identifies what a notification is about
type NotificationKind string

const (
	KindConnectionRequest      NotificationKind = "connection_request"
	KindConnectionAccept       NotificationKind = "connection_accept"
	KindMessage                NotificationKind = "message"
	KindWishlistAdd            NotificationKind = "wishlist_add"
	KindProfilePictureRequest  NotificationKind = "profile_picture_request"
	KindProfilePictureApproved NotificationKind = "profile_picture_approved"
	KindProfilePictureRejected NotificationKind = "profile_picture_rejected"
)

// Valid reports whether k is one of the known kinds
func (k NotificationKind) Valid() bool {
	switch k {
	case KindConnectionRequest, KindConnectionAccept, KindMessage, KindWishlistAdd,
		KindProfilePictureRequest, KindProfilePictureApproved, KindProfilePictureRejected:
		return true
	}
	return false
}

// Notification is a persisted occurrence addressed to one user
type Notification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user"` // recipient
	Kind       NotificationKind `json:"type"`
	FromUserID string           `json:"fromUser,omitempty"`
	Message    string           `json:"message"`
	RequestID  string           `json:"requestId,omitempty"` // correlation id, e.g. a connection request
	IsRead     bool             `json:"isRead"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Validate validates a Notification
func (n *Notification) Validate() error {
	if n.UserID == "" {
		return ErrInvalidUserID
	}
	if !n.Kind.Valid() {
		return ErrInvalidNotificationKind
	}
	return nil
}

// RequestStatus is the state of a connection request
type RequestStatus string

const (
	StatusPending  RequestStatus = "Pending"
	StatusAccepted RequestStatus = "Accepted"
	StatusRejected RequestStatus = "Rejected"
)

// ConnectionRequest is one user's request to connect with another
type ConnectionRequest struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"sender"`
	ReceiverID string        `json:"receiver"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Involves reports whether userID is the sender or the receiver
func (r *ConnectionRequest) Involves(userID string) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// Partner returns the other side of the request relative to userID
func (r *ConnectionRequest) Partner(userID string) string {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}

// Chat is a two-party conversation. Its ID doubles as the room key.
type Chat struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	LastMessageID string    `json:"lastMessage,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasParticipant reports whether userID takes part in the chat
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Partner returns the first participant that is not userID
func (c *Chat) Partner(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Message is a persisted chat message
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"sender"`
	Content   string    `json:"content"`
	IsSeen    bool      `json:"isSeen"`
	CreatedAt time.Time `json:"createdAt"`
}

// Editable reports whether the message may still be edited or deleted at now
func (m *Message) Editable(now time.Time, window time.Duration) bool {
	return now.Sub(m.CreatedAt) <= window
}

// ChatMessageEvent is the realtime form of a chat message, fanned out to a room
type ChatMessageEvent struct {
	MessageID      string    `json:"messageId,omitempty"`
	ConversationID string    `json:"conversationId" validate:"required"`
	SenderID       string    `json:"senderId" validate:"required"`
	RecipientID    string    `json:"recipientId" validate:"required"`
	Content        string    `json:"content" validate:"required"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Validate validates a ChatMessageEvent
func (e *ChatMessageEvent) Validate() error {
	if e.ConversationID == "" {
		return ErrInvalidConversationID
	}
	if e.SenderID == "" || e.RecipientID == "" {
		return ErrInvalidUserID
	}
	if e.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// Participants returns sender and recipient, in that order
func (e *ChatMessageEvent) Participants() []string {
	return []string{e.SenderID, e.RecipientID}
}

// ToMessage converts the event into its persisted form
func (e *ChatMessageEvent) ToMessage() *Message {
	return &Message{
		ID:        e.MessageID,
		ChatID:    e.ConversationID,
		SenderID:  e.SenderID,
		Content:   e.Content,
		CreatedAt: e.CreatedAt,
	}
}

// NewChatMessageEvent builds the realtime event for a persisted message
func NewChatMessageEvent(msg *Message, recipientID string) *ChatMessageEvent {
	return &ChatMessageEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ChatID,
		SenderID:       msg.SenderID,
		RecipientID:    recipientID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

// LastMessageSummary is the chat-list view of a conversation's latest message,
// with flags computed relative to the viewer
type LastMessageSummary struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    string    `json:"sender"`
	SentByMe  bool      `json:"sentByMe"`
	IsSeen    bool      `json:"isSeen"`
}

// ChatListUpdate is pushed to each participant when a conversation changes
type ChatListUpdate struct {
	ConversationID string             `json:"conversationId"`
	LastMessage    LastMessageSummary `json:"lastMessage"`
}

// ChatListUpdateFor computes viewerID's chat-list entry for ev. The sender's
// own view is provisionally seen; everyone else's is unseen until the
// messages are explicitly marked.
func ChatListUpdateFor(viewerID string, ev *ChatMessageEvent) ChatListUpdate {
	mine := viewerID == ev.SenderID
	return ChatListUpdate{
		ConversationID: ev.ConversationID,
		LastMessage: LastMessageSummary{
			Content:   ev.Content,
			CreatedAt: ev.CreatedAt,
			Sender:    ev.SenderID,
			SentByMe:  mine,
			IsSeen:    mine,
		},
	}
}

// SummaryOf builds viewerID's summary of a persisted message
func SummaryOf(viewerID string, msg *Message) *LastMessageSummary {
	return &LastMessageSummary{
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		Sender:    msg.SenderID,
		SentByMe:  msg.SenderID == viewerID,
		IsSeen:    msg.IsSeen,
	}
}

// SeenEvent tells a room that viewer has read the partner's messages
type SeenEvent struct {
	ConversationID string `json:"conversationId"`
	SeenBy         string `json:"seenBy"`
}

// ConnectionStatus describes the relationship between two users
type ConnectionStatus struct {
	Status    string `json:"status"` // "none" or a RequestStatus
	SentByMe  bool   `json:"sentByMe"`
	RequestID string `json:"requestId,omitempty"`
}

// ConnectedUser is a mutual connection with the latest message between the two
type ConnectedUser struct {
	UserID      string              `json:"userId"`
	ChatID      string              `json:"chatId,omitempty"`
	LastMessage *LastMessageSummary `json:"lastMessage"`
}
