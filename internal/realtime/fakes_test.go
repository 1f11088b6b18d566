package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/presence"
)

type emitted struct {
	event   string
	payload interface{}
}

// fakeConn records every emit
type fakeConn struct {
	id      string
	claimed string

	mu     sync.Mutex
	events []emitted
	err    error
	panics bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) ClaimedUserID() string { return c.claimed }

func (c *fakeConn) Emit(event string, payload interface{}) error {
	if c.panics {
		panic("broken connection")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, emitted{event: event, payload: payload})
	return nil
}

func (c *fakeConn) payloads(event string) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []interface{}
	for _, e := range c.events {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func (c *fakeConn) count(event string) int {
	return len(c.payloads(event))
}

func (c *fakeConn) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *fakeConn) lastOnline() []string {
	p := c.payloads(EventOnlineUsers)
	if len(p) == 0 {
		return nil
	}
	return p[len(p)-1].([]string)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

var errEmit = errors.New("emit failed")

// fakeSink records queued messages
type fakeSink struct {
	mu     sync.Mutex
	queued []*models.ChatMessageEvent
	err    error
}

func (s *fakeSink) Enqueue(ev *models.ChatMessageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.queued = append(s.queued, ev)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queued)
}

type core struct {
	registry   *presence.Registry
	dispatcher *Dispatcher
	rooms      *Rooms
	lifecycle  *Lifecycle
}

func newCore(t *testing.T, sink MessageSink, opts Options) *core {
	t.Helper()
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)
	rooms := NewRooms(dispatcher)
	return &core{
		registry:   registry,
		dispatcher: dispatcher,
		rooms:      rooms,
		lifecycle:  NewLifecycle(registry, dispatcher, rooms, sink, opts),
	}
}

func testEvent(conversationID, sender, recipient, content string) *models.ChatMessageEvent {
	return &models.ChatMessageEvent{
		MessageID:      "m-" + content,
		ConversationID: conversationID,
		SenderID:       sender,
		RecipientID:    recipient,
		Content:        content,
	}
}
