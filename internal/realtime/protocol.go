package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mohamedkhairy/matchline/internal/models"
)

// Inbound events
const (
	EventIdentify    = "identify"
	EventJoinUser    = "joinUser" // legacy alias of identify
	EventJoinRoom    = "joinRoom"
	EventJoinChat    = "joinChat" // legacy alias of joinRoom
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventPing        = "ping"
)

// Outbound events
const (
	EventOnlineUsers     = "onlineUsers"
	EventNewNotification = "newNotification"
	EventReceiveMessage  = "receiveMessage"
	EventUpdateChatList  = "updateChatList"
	EventMessagesSeen    = "messagesSeen"
	EventError           = "error"
	EventPong            = "pong"
)

// Error codes carried by the error event
const (
	CodeInvalidMessage   = "invalid_message"
	CodeInvalidPayload   = "invalid_payload"
	CodeUnknownEvent     = "unknown_event"
	CodeNotIdentified    = "not_identified"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodePersistFailed    = "persist_failed"
	CodeConnectionClosed = "connection_closed"
)

// Envelope is the inbound wire frame
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorPayload is the body of the error event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendMessagePayload is the body of sendMessage. The legacy field names
// chatId, sender and receiverId are accepted as well.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId,omitempty"`
	ChatID         string `json:"chatId,omitempty"`
	SenderID       string `json:"senderId,omitempty"`
	Sender         string `json:"sender,omitempty"`
	RecipientID    string `json:"recipientId,omitempty"`
	ReceiverID     string `json:"receiverId,omitempty"`
	Content        string `json:"content"`
}

var validate = validator.New()

// toEvent normalises aliases, validates and stamps the server time
func (p SendMessagePayload) toEvent(now time.Time) (*models.ChatMessageEvent, error) {
	ev := &models.ChatMessageEvent{
		MessageID:      uuid.New().String(),
		ConversationID: lo.CoalesceOrEmpty(p.ConversationID, p.ChatID),
		SenderID:       lo.CoalesceOrEmpty(p.SenderID, p.Sender),
		RecipientID:    lo.CoalesceOrEmpty(p.RecipientID, p.ReceiverID),
		Content:        p.Content,
		CreatedAt:      now.UTC(),
	}
	if err := validate.Struct(ev); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "ConversationID":
				return nil, models.ErrInvalidConversationID
			case "Content":
				return nil, models.ErrEmptyContent
			default:
				return nil, models.ErrInvalidUserID
			}
		}
		return nil, models.ErrInvalidPayload
	}
	if strings.TrimSpace(ev.Content) == "" {
		return nil, models.ErrEmptyContent
	}
	return ev, nil
}

// decodeID accepts either a bare JSON string or an object carrying one of keys
func decodeID(raw json.RawMessage, keys ...string) (string, error) {
	if len(raw) == 0 {
		return "", models.ErrInvalidPayload
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", models.ErrInvalidPayload
	}
	for _, k := range keys {
		if v, ok := obj[k].(string); ok && v != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", models.ErrInvalidPayload
}
