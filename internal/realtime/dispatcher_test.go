package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/presence"
)

func TestDispatcher_PresentRecipient(t *testing.T) {
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)
	conn := newFakeConn("c1")
	registry.Identify("u1", conn)

	payload := map[string]string{"hello": "world"}
	assert.True(t, dispatcher.Dispatch("u1", EventNewNotification, payload))

	got := conn.payloads(EventNewNotification)
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
	assert.Equal(t, 1, conn.total())
}

func TestDispatcher_AbsentRecipient(t *testing.T) {
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)
	bystander := newFakeConn("c1")
	registry.Identify("u1", bystander)

	assert.False(t, dispatcher.Dispatch("offline", EventNewNotification, "x"))
	assert.Zero(t, bystander.total())
}

func TestDispatcher_GoesToMostRecentConnection(t *testing.T) {
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)
	first, second := newFakeConn("c1"), newFakeConn("c2")
	registry.Identify("u1", first)
	registry.Identify("u1", second)

	dispatcher.Dispatch("u1", EventNewNotification, "x")
	assert.Zero(t, first.total())
	assert.Equal(t, 1, second.total())
}

func TestDispatcher_EmitFailureIsContained(t *testing.T) {
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)

	failing := newFakeConn("c1")
	failing.err = errEmit
	registry.Identify("u1", failing)

	panicking := newFakeConn("c2")
	panicking.panics = true
	registry.Identify("u2", panicking)

	assert.NotPanics(t, func() {
		assert.True(t, dispatcher.Dispatch("u1", EventNewNotification, "x"))
		assert.True(t, dispatcher.Dispatch("u2", EventNewNotification, "x"))
	})
}

func TestDispatcher_DispatchNotification(t *testing.T) {
	registry := presence.NewRegistry()
	dispatcher := NewDispatcher(registry)
	conn := newFakeConn("c1")
	registry.Identify("u2", conn)

	n := &models.Notification{ID: "n1", UserID: "u2", Kind: models.KindWishlistAdd, FromUserID: "u1"}
	assert.True(t, dispatcher.DispatchNotification(n))

	got := conn.payloads(EventNewNotification)
	require.Len(t, got, 1)
	assert.Same(t, n, got[0])
}
