package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/presence"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// State is the lifecycle state of one connection
type State int

const (
	StateAnonymous State = iota
	StateIdentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateIdentified:
		return "identified"
	default:
		return "closed"
	}
}

var (
	ErrNotIdentified    = errors.New("connection has not identified")
	ErrSenderMismatch   = errors.New("sender does not match the identified user")
	ErrIdentityMismatch = errors.New("user does not match the authenticated token")
	ErrUnknownEvent     = errors.New("unknown event")
)

// Options tunes lifecycle policy
type Options struct {
	// RequireIdentity makes joinRoom and sendMessage require an identified
	// connection, and sendMessage's sender must be that identity. With a
	// sink configured sendMessage always requires it.
	RequireIdentity bool
}

type session struct {
	conn   Conn
	state  State
	userID string
}

// Lifecycle owns per-connection state and is the only writer of the presence
// registry and the room table.
type Lifecycle struct {
	registry   *presence.Registry
	rooms      *Rooms
	dispatcher *Dispatcher
	sink       MessageSink
	opts       Options
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	// serialises onlineUsers broadcasts so the last one sent reflects the latest set
	broadcastMu sync.Mutex
}

// NewLifecycle wires the core. sink may be nil, in which case socket messages
// are only broadcast and the HTTP API stays the sole writer of messages.
func NewLifecycle(registry *presence.Registry, dispatcher *Dispatcher, rooms *Rooms, sink MessageSink, opts Options) *Lifecycle {
	return &Lifecycle{
		registry:   registry,
		rooms:      rooms,
		dispatcher: dispatcher,
		sink:       sink,
		opts:       opts,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}
}

// Connect registers a new anonymous connection
func (l *Lifecycle) Connect(c Conn) {
	l.mu.Lock()
	if _, exists := l.sessions[c.ID()]; !exists {
		l.sessions[c.ID()] = &session{conn: c, state: StateAnonymous}
	}
	n := len(l.sessions)
	l.mu.Unlock()

	connectionsActive.Set(float64(n))
}

// StateOf returns the lifecycle state of the connection with id
func (l *Lifecycle) StateOf(connID string) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.sessions[connID]; ok {
		return s.state
	}
	return StateClosed
}

// Identify binds c to userID and broadcasts the online set
func (l *Lifecycle) Identify(c Conn, userID string) error {
	if userID == "" {
		return models.ErrInvalidUserID
	}
	if cl, ok := c.(claimant); ok && cl.ClaimedUserID() != "" && cl.ClaimedUserID() != userID {
		return ErrIdentityMismatch
	}

	l.mu.Lock()
	s, ok := l.sessions[c.ID()]
	if !ok {
		l.mu.Unlock()
		return ErrConnectionClosed
	}
	s.state = StateIdentified
	s.userID = userID
	cameOnline := l.registry.Identify(userID, c)
	l.mu.Unlock()

	logger.Debug("Connection identified",
		logger.String("connection_id", c.ID()),
		logger.String("user_id", userID),
		logger.Bool("came_online", cameOnline),
	)

	l.broadcastOnline()
	return nil
}

// JoinRoom adds c to a conversation room
func (l *Lifecycle) JoinRoom(c Conn, conversationID string) error {
	if conversationID == "" {
		return models.ErrInvalidConversationID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[c.ID()]
	if !ok {
		return ErrConnectionClosed
	}
	if l.opts.RequireIdentity && s.state != StateIdentified {
		return ErrNotIdentified
	}

	// under l.mu so a concurrent Disconnect cannot leave c in a room
	l.rooms.Join(c, conversationID)
	return nil
}

// LeaveRoom removes c from a conversation room. Leaving a room c never
// joined is a no-op.
func (l *Lifecycle) LeaveRoom(c Conn, conversationID string) error {
	if conversationID == "" {
		return models.ErrInvalidConversationID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sessions[c.ID()]; !ok {
		return ErrConnectionClosed
	}
	l.rooms.Leave(c, conversationID)
	return nil
}

// SendMessage queues the message for persistence when a sink is configured,
// then broadcasts it to the room and pushes chat-list updates to both
// participants. Only an identified connection sending as itself may persist.
func (l *Lifecycle) SendMessage(c Conn, p SendMessagePayload) (*models.ChatMessageEvent, error) {
	l.mu.Lock()
	s, ok := l.sessions[c.ID()]
	var state State
	var userID string
	if ok {
		state, userID = s.state, s.userID
	}
	l.mu.Unlock()

	if !ok {
		return nil, ErrConnectionClosed
	}

	ev, err := p.toEvent(l.now())
	if err != nil {
		return nil, err
	}

	if l.opts.RequireIdentity || l.sink != nil {
		if state != StateIdentified {
			return nil, ErrNotIdentified
		}
		if ev.SenderID != userID {
			return nil, ErrSenderMismatch
		}
	}

	if l.sink != nil {
		if err := l.sink.Enqueue(ev); err != nil {
			return nil, fmt.Errorf("failed to queue message for persistence: %w", err)
		}
	}

	l.rooms.BroadcastMessage(ev.ConversationID, ev)
	l.rooms.NotifyChatListUpdate(ev.Participants(), ev)
	return ev, nil
}

// Disconnect closes c's session, drops its presence entry and rooms, and
// broadcasts the online set if the presence entry was removed.
func (l *Lifecycle) Disconnect(c Conn) {
	l.mu.Lock()
	s, ok := l.sessions[c.ID()]
	if !ok {
		l.mu.Unlock()
		return
	}
	s.state = StateClosed
	delete(l.sessions, c.ID())
	userID, removed := l.registry.Remove(c.ID())
	left := l.rooms.LeaveAll(c)
	n := len(l.sessions)
	l.mu.Unlock()

	connectionsActive.Set(float64(n))

	logger.Debug("Connection closed",
		logger.String("connection_id", c.ID()),
		logger.String("user_id", userID),
		logger.Bool("presence_removed", removed),
		logger.Int("rooms_left", left),
	)

	if removed {
		l.broadcastOnline()
	}
}

// broadcastOnline sends the full online set to every open connection
func (l *Lifecycle) broadcastOnline() {
	l.broadcastMu.Lock()
	defer l.broadcastMu.Unlock()

	users := l.registry.OnlineUsers()
	onlineUsersGauge.Set(float64(len(users)))

	for _, c := range l.connections() {
		if err := safeEmit(c, EventOnlineUsers, users); err != nil {
			logger.Debug("Failed to send online users",
				logger.ErrorField(err),
				logger.String("connection_id", c.ID()),
			)
		}
	}
}

func (l *Lifecycle) connections() []Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Conn, 0, len(l.sessions))
	for _, s := range l.sessions {
		out = append(out, s.conn)
	}
	return out
}

// OnlineUsers returns the current online set
func (l *Lifecycle) OnlineUsers() []string {
	return l.registry.OnlineUsers()
}

// Dispatcher returns the dispatcher used for targeted delivery
func (l *Lifecycle) Dispatcher() *Dispatcher {
	return l.dispatcher
}

// Rooms returns the room table
func (l *Lifecycle) Rooms() *Rooms {
	return l.rooms
}

// HandleInbound decodes one wire frame from c and routes it. Failures are
// reported to c alone as an error event.
func (l *Lifecycle) HandleInbound(c Conn, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		inboundEvents.WithLabelValues("invalid", "error").Inc()
		l.replyError(c, CodeInvalidMessage, "failed to parse message")
		return
	}

	err := l.route(c, env)
	result := "ok"
	if err != nil {
		result = "error"
		l.replyError(c, errorCode(err), err.Error())
	}
	inboundEvents.WithLabelValues(metricEventName(env.Event), result).Inc()
}

func (l *Lifecycle) route(c Conn, env Envelope) error {
	switch env.Event {
	case EventIdentify, EventJoinUser:
		userID, err := decodeID(env.Data, "userId", "id")
		if err != nil {
			return err
		}
		return l.Identify(c, userID)

	case EventJoinRoom, EventJoinChat:
		conversationID, err := decodeID(env.Data, "conversationId", "chatId")
		if err != nil {
			return err
		}
		return l.JoinRoom(c, conversationID)

	case EventLeaveRoom:
		conversationID, err := decodeID(env.Data, "conversationId", "chatId")
		if err != nil {
			return err
		}
		return l.LeaveRoom(c, conversationID)

	case EventSendMessage:
		var p SendMessagePayload
		if len(env.Data) == 0 || json.Unmarshal(env.Data, &p) != nil {
			return models.ErrInvalidPayload
		}
		_, err := l.SendMessage(c, p)
		return err

	case EventPing:
		return safeEmit(c, EventPong, nil)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, env.Event)
	}
}

func (l *Lifecycle) replyError(c Conn, code, message string) {
	if err := safeEmit(c, EventError, ErrorPayload{Code: code, Message: message}); err != nil {
		logger.Debug("Failed to send error event",
			logger.ErrorField(err),
			logger.String("connection_id", c.ID()),
		)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		return CodeUnknownEvent
	case errors.Is(err, ErrNotIdentified):
		return CodeNotIdentified
	case errors.Is(err, ErrSenderMismatch), errors.Is(err, ErrIdentityMismatch), errors.Is(err, models.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, models.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConnectionClosed):
		return CodeConnectionClosed
	case errors.Is(err, ErrSinkFull), errors.Is(err, ErrSinkStopped):
		return CodePersistFailed
	default:
		return CodeInvalidPayload
	}
}

// metricEventName bounds label cardinality to known events
func metricEventName(event string) string {
	switch event {
	case EventIdentify, EventJoinUser, EventJoinRoom, EventJoinChat, EventLeaveRoom, EventSendMessage, EventPing:
		return event
	}
	return "unknown"
}
