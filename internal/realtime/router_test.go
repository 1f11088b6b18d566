package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/internal/models"
)

func TestEventRouter_Route(t *testing.T) {
	c := newCore(t, nil, Options{})
	router := NewEventRouter(c.lifecycle)
	ctx := context.Background()

	alice, bob := newFakeConn("c1"), newFakeConn("c2")
	c.lifecycle.Connect(alice)
	c.lifecycle.Connect(bob)
	require.NoError(t, c.lifecycle.Identify(alice, "alice"))
	require.NoError(t, c.lifecycle.Identify(bob, "bob"))
	require.NoError(t, c.lifecycle.JoinRoom(alice, "chat-1"))

	t.Run("notification goes to the recipient only", func(t *testing.T) {
		n := &models.Notification{ID: "n1", UserID: "bob", Kind: models.KindConnectionRequest, FromUserID: "alice"}
		require.NoError(t, router.Route(ctx, events.NotificationCreated(n)))
		assert.Equal(t, 1, bob.count(EventNewNotification))
		assert.Zero(t, alice.count(EventNewNotification))
	})

	t.Run("chat message fans out", func(t *testing.T) {
		ev := testEvent("chat-1", "bob", "alice", "via api")
		require.NoError(t, router.Route(ctx, events.ChatMessageSent(ev)))
		assert.Equal(t, 1, alice.count(EventReceiveMessage))
		assert.Zero(t, bob.count(EventReceiveMessage))
		assert.Equal(t, 1, alice.count(EventUpdateChatList))
		assert.Equal(t, 1, bob.count(EventUpdateChatList))
	})

	t.Run("seen goes to the room", func(t *testing.T) {
		require.NoError(t, router.Route(ctx, events.ChatSeen("chat-1", "bob")))
		assert.Equal(t, 1, alice.count(EventMessagesSeen))
	})

	t.Run("malformed", func(t *testing.T) {
		err := router.Route(ctx, &events.Event{Kind: events.KindChatMessage})
		assert.ErrorIs(t, err, events.ErrMalformedEvent)
	})
}

func TestEventRouter_RunOverBus(t *testing.T) {
	c := newCore(t, nil, Options{})
	router := NewEventRouter(c.lifecycle)
	conn := newFakeConn("c1")
	c.lifecycle.Connect(conn)
	require.NoError(t, c.lifecycle.Identify(conn, "u1"))

	bus := events.NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- router.Run(ctx, bus) }()

	n := &models.Notification{ID: "n1", UserID: "u1", Kind: models.KindWishlistAdd}
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, events.NotificationCreated(n))
		return conn.count(EventNewNotification) > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("router did not stop")
	}
}
