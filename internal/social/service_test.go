package social

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (p *recordingPublisher) last() *events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type fixture struct {
	svc   *Service
	store *storage.MemoryStore
	pub   *recordingPublisher
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: storage.NewMemoryStore(),
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.pub, 0)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestSendRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)

	ev := f.pub.last()
	require.NotNil(t, ev)
	assert.Equal(t, events.KindNotification, ev.Kind)
	assert.Equal(t, "bob", ev.Notification.UserID)
	assert.Equal(t, models.KindConnectionRequest, ev.Notification.Kind)
	assert.Equal(t, req.ID, ev.Notification.RequestID)

	_, err = f.svc.SendRequest(ctx, "alice", "bob")
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	_, err = f.svc.SendRequest(ctx, "alice", "alice")
	assert.ErrorIs(t, err, models.ErrSelfAction)

	_, err = f.svc.SendRequest(ctx, "", "bob")
	assert.ErrorIs(t, err, models.ErrInvalidUserID)
}

func TestAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, "alice", req.ID)
	assert.ErrorIs(t, err, models.ErrForbidden, "only the receiver may accept")

	accepted, err := f.svc.Accept(ctx, "bob", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	aliceMatches, _ := f.store.Matches(ctx, "alice")
	bobMatches, _ := f.store.Matches(ctx, "bob")
	assert.Equal(t, []string{"bob"}, aliceMatches)
	assert.Equal(t, []string{"alice"}, bobMatches)

	bobNotes, err := f.svc.Notifications(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobNotes, "pending request notification is withdrawn")

	ev := f.pub.last()
	assert.Equal(t, "alice", ev.Notification.UserID)
	assert.Equal(t, models.KindConnectionAccept, ev.Notification.Kind)
	assert.Equal(t, "bob", ev.Notification.FromUserID)

	_, err = f.svc.Accept(ctx, "bob", req.ID)
	assert.ErrorIs(t, err, models.ErrRequestNotPending)

	_, err = f.svc.Accept(ctx, "bob", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	published := len(f.pub.kinds())

	rejected, err := f.svc.Reject(ctx, "bob", req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Len(t, f.pub.kinds(), published, "the sender is not told")

	notes, _ := f.svc.Notifications(ctx, "bob")
	assert.Empty(t, notes)

	status, err := f.svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "Rejected", status.Status)
}

func TestUnsend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, f.svc.Unsend(ctx, "alice", "bob"))
	assert.ErrorIs(t, f.svc.Unsend(ctx, "alice", "bob"), models.ErrNotFound)

	notes, _ := f.svc.Notifications(ctx, "bob")
	assert.Empty(t, notes)

	status, err := f.svc.Status(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "none", status.Status)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	mine, err := f.svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, &models.ConnectionStatus{Status: "Pending", SentByMe: true, RequestID: req.ID}, mine)

	theirs, err := f.svc.Status(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, theirs.SentByMe)
	assert.Equal(t, req.ID, theirs.RequestID)

	pending, err := f.svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	pending, err = f.svc.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConnected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	connect := func(a, b string) {
		req, err := f.svc.SendRequest(ctx, a, b)
		require.NoError(t, err)
		_, err = f.svc.Accept(ctx, b, req.ID)
		require.NoError(t, err)
	}
	connect("alice", "bob")
	connect("carol", "alice")
	connect("alice", "dave")

	chatBob, err := f.svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, "bob", chatBob.ID, "hi alice")
	require.NoError(t, err)

	f.advance(time.Minute)
	chatCarol, err := f.svc.OpenChat(ctx, "carol", "alice")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, "alice", chatCarol.ID, "hello carol")
	require.NoError(t, err)

	connected, err := f.svc.Connected(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, connected, 3)

	assert.Equal(t, "carol", connected[0].UserID)
	assert.Equal(t, chatCarol.ID, connected[0].ChatID)
	assert.True(t, connected[0].LastMessage.SentByMe)

	assert.Equal(t, "bob", connected[1].UserID)
	assert.False(t, connected[1].LastMessage.SentByMe)
	assert.False(t, connected[1].LastMessage.IsSeen)

	assert.Equal(t, "dave", connected[2].UserID)
	assert.Nil(t, connected[2].LastMessage)
}

func TestWishlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddToWishlist(ctx, "alice", "bob"))
	require.NoError(t, f.svc.AddToWishlist(ctx, "alice", "bob"))
	assert.Len(t, f.pub.kinds(), 1, "repeat adds do not notify again")

	list, err := f.svc.Wishlist(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list)

	notes, _ := f.svc.Notifications(ctx, "bob")
	require.Len(t, notes, 1)
	assert.Equal(t, models.KindWishlistAdd, notes[0].Kind)

	require.NoError(t, f.svc.RemoveFromWishlist(ctx, "alice", "bob"))
	list, _ = f.svc.Wishlist(ctx, "alice")
	assert.Empty(t, list)
	notes, _ = f.svc.Notifications(ctx, "bob")
	assert.Empty(t, notes)

	assert.ErrorIs(t, f.svc.AddToWishlist(ctx, "alice", "alice"), models.ErrSelfAction)
}

func TestPictureRequest(t *testing.T) {
	tests := []struct {
		name    string
		approve bool
		want    models.NotificationKind
	}{
		{"approved", true, models.KindProfilePictureApproved},
		{"rejected", false, models.KindProfilePictureRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			n, err := f.svc.RequestPicture(ctx, "alice", "bob")
			require.NoError(t, err)
			assert.Equal(t, models.KindProfilePictureRequest, n.Kind)
			assert.Equal(t, "bob", n.UserID)

			reply, err := f.svc.RespondPicture(ctx, "bob", "alice", tt.approve)
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply.Kind)
			assert.Equal(t, "alice", reply.UserID)

			ownerNotes, _ := f.svc.Notifications(ctx, "bob")
			assert.Empty(t, ownerNotes)
			assert.Equal(t, []events.Kind{events.KindNotification, events.KindNotification}, f.pub.kinds())
		})
	}
}

func TestOpenChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, err := f.svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, chat.Participants)

	again, err := f.svc.OpenChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, err := f.svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, "alice", chat.ID, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, f.clock, msg.CreatedAt)

	stored, err := f.store.GetChat(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, stored.LastMessageID)

	ev := f.pub.last()
	require.Equal(t, events.KindChatMessage, ev.Kind)
	assert.Equal(t, chat.ID, ev.Message.ConversationID)
	assert.Equal(t, "alice", ev.Message.SenderID)
	assert.Equal(t, "bob", ev.Message.RecipientID)
	assert.Equal(t, msg.ID, ev.Message.MessageID)

	_, err = f.svc.SendMessage(ctx, "mallory", chat.ID, "hi")
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.svc.SendMessage(ctx, "alice", chat.ID, "   ")
	assert.ErrorIs(t, err, models.ErrEmptyContent)
	_, err = f.svc.SendMessage(ctx, "alice", "missing", "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendMessage_PublishFailureKeepsMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pub.err = errors.New("redis down")

	chat, err := f.svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)
	msg, err := f.svc.SendMessage(ctx, "alice", chat.ID, "still saved")
	require.NoError(t, err)

	_, err = f.store.GetMessage(ctx, msg.ID)
	assert.NoError(t, err)
}

func TestMessagesAndMarkSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, err := f.svc.OpenChat(ctx, "alice", "bob")
	require.NoError(t, err)
	for _, content := range []string{"one", "two"} {
		_, err := f.svc.SendMessage(ctx, "alice", chat.ID, content)
		require.NoError(t, err)
		f.advance(time.Second)
	}
	_, err = f.svc.SendMessage(ctx, "bob", chat.ID, "three")
	require.NoError(t, err)

	msgs, err := f.svc.Messages(ctx, "bob", chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)

	_, err = f.svc.Messages(ctx, "mallory", chat.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	n, err := f.svc.MarkSeen(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	ev := f.pub.last()
	require.Equal(t, events.KindChatSeen, ev.Kind)
	assert.Equal(t, &models.SeenEvent{ConversationID: chat.ID, SeenBy: "bob"}, ev.Seen)

	published := len(f.pub.kinds())
	n, err = f.svc.MarkSeen(ctx, "bob", chat.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.pub.kinds(), published)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, _ := f.svc.OpenChat(ctx, "alice", "bob")
	msg, err := f.svc.SendMessage(ctx, "alice", chat.ID, "helo")
	require.NoError(t, err)

	_, err = f.svc.EditMessage(ctx, "bob", msg.ID, "hijack")
	assert.ErrorIs(t, err, models.ErrForbidden)

	edited, err := f.svc.EditMessage(ctx, "alice", msg.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", edited.Content)

	kept, err := f.svc.EditMessage(ctx, "alice", msg.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "hello", kept.Content)

	f.advance(DefaultEditWindow + time.Second)
	_, err = f.svc.EditMessage(ctx, "alice", msg.ID, "too late")
	assert.ErrorIs(t, err, models.ErrEditWindowExpired)
}

func TestDeleteMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, _ := f.svc.OpenChat(ctx, "alice", "bob")
	first, err := f.svc.SendMessage(ctx, "alice", chat.ID, "first")
	require.NoError(t, err)
	f.advance(time.Second)
	second, err := f.svc.SendMessage(ctx, "alice", chat.ID, "second")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMessage(ctx, "alice", second.ID))
	stored, _ := f.store.GetChat(ctx, chat.ID)
	assert.Equal(t, first.ID, stored.LastMessageID)

	f.advance(DefaultEditWindow)
	assert.ErrorIs(t, f.svc.DeleteMessage(ctx, "alice", first.ID), models.ErrEditWindowExpired)
	assert.ErrorIs(t, f.svc.DeleteMessage(ctx, "alice", second.ID), models.ErrNotFound)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, _ := f.svc.OpenChat(ctx, "alice", "bob")
	for i := 0; i < 3; i++ {
		_, err := f.svc.SendMessage(ctx, "bob", chat.ID, "msg")
		require.NoError(t, err)
	}

	n, err := f.svc.DeleteConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = f.store.GetChat(ctx, chat.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.DeleteConversation(ctx, "alice", "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.RequestPicture(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.svc.MarkRead(ctx, "alice", n.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	read, err := f.svc.MarkRead(ctx, "bob", n.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	notes, _ := f.svc.Notifications(ctx, "bob")
	require.Len(t, notes, 1)
	assert.True(t, notes[0].IsRead)

	_, err = f.svc.MarkRead(ctx, "bob", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
