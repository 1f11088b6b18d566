package realtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// Rooms tracks conversation rooms and fans events out to their members.
// A room exists while it has at least one member.
type Rooms struct {
	dispatcher *Dispatcher

	mu     sync.RWMutex
	rooms  map[string]map[string]Conn     // conversation_id -> connection_id -> conn
	byConn map[string]map[string]struct{} // connection_id -> conversation_ids
}

// NewRooms creates an empty room table. Chat-list updates go through dispatcher.
func NewRooms(dispatcher *Dispatcher) *Rooms {
	return &Rooms{
		dispatcher: dispatcher,
		rooms:      make(map[string]map[string]Conn),
		byConn:     make(map[string]map[string]struct{}),
	}
}

// Join adds c to the room. It reports false when c was already a member.
func (r *Rooms) Join(c Conn, conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[conversationID]
	if !ok {
		members = make(map[string]Conn)
		r.rooms[conversationID] = members
	}
	if _, joined := members[c.ID()]; joined {
		return false
	}
	members[c.ID()] = c

	if r.byConn[c.ID()] == nil {
		r.byConn[c.ID()] = make(map[string]struct{})
	}
	r.byConn[c.ID()][conversationID] = struct{}{}
	return true
}

// Leave removes c from one room
func (r *Rooms) Leave(c Conn, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c.ID(), conversationID)
}

// LeaveAll removes c from every room it joined and returns how many that was
func (r *Rooms) LeaveAll(c Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := lo.Keys(r.byConn[c.ID()])
	for _, conversationID := range joined {
		r.leaveLocked(c.ID(), conversationID)
	}
	return len(joined)
}

func (r *Rooms) leaveLocked(connID, conversationID string) {
	if members, ok := r.rooms[conversationID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, conversationID)
		}
	}
	if convs, ok := r.byConn[connID]; ok {
		delete(convs, conversationID)
		if len(convs) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// Members returns the room's connections ordered by id
func (r *Rooms) Members(conversationID string) []Conn {
	r.mu.RLock()
	members := lo.Values(r.rooms[conversationID])
	r.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i].ID() < members[j].ID() })
	return members
}

// RoomCount returns the number of non-empty rooms
func (r *Rooms) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// BroadcastMessage emits receiveMessage with ev to every member of the room,
// the sender's own connections included. Returns the number of successful emits.
func (r *Rooms) BroadcastMessage(conversationID string, ev *models.ChatMessageEvent) int {
	return r.broadcast(conversationID, EventReceiveMessage, ev)
}

// BroadcastSeen tells the room that viewerID has read the partner's messages
func (r *Rooms) BroadcastSeen(conversationID, viewerID string) int {
	return r.broadcast(conversationID, EventMessagesSeen, &models.SeenEvent{
		ConversationID: conversationID,
		SeenBy:         viewerID,
	})
}

func (r *Rooms) broadcast(conversationID, event string, payload interface{}) int {
	members := r.Members(conversationID)
	sent := 0
	for _, m := range members {
		if err := safeEmit(m, event, payload); err != nil {
			roomEmitsTotal.WithLabelValues(event, "failed").Inc()
			logger.Warn("Room emit failed",
				logger.ErrorField(err),
				logger.String("event", event),
				logger.String("conversation_id", conversationID),
				logger.String("connection_id", m.ID()),
			)
			continue
		}
		roomEmitsTotal.WithLabelValues(event, "sent").Inc()
		sent++
	}

	logger.Debug("Room broadcast",
		logger.String("event", event),
		logger.String("conversation_id", conversationID),
		logger.Int("members", len(members)),
		logger.Int("sent", sent),
	)
	return sent
}

// NotifyChatListUpdate sends each online participant its own view of the
// latest message. Participants are looked up by presence, not by room.
// Returns the number of participants an emit was attempted for.
func (r *Rooms) NotifyChatListUpdate(participants []string, ev *models.ChatMessageEvent) int {
	attempted := 0
	for _, userID := range lo.Uniq(participants) {
		if userID == "" {
			continue
		}
		if r.dispatcher.Dispatch(userID, EventUpdateChatList, models.ChatListUpdateFor(userID, ev)) {
			attempted++
		}
	}
	return attempted
}

// safeEmit isolates a misbehaving connection from the rest of a fan-out
func safeEmit(c Conn, event string, payload interface{}) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("emit panicked: %v", rec)
		}
	}()
	return c.Emit(event, payload)
}
