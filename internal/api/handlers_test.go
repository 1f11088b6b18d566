package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/matchline/internal/auth"
	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/social"
	"github.com/mohamedkhairy/matchline/internal/storage"
)

type apiFixture struct {
	router *mux.Router
	store  *storage.MemoryStore
}

// newAPIFixture mounts the API with token checks disabled, so the auth-token
// header carries the user id directly
func newAPIFixture(t *testing.T, online OnlineFunc) *apiFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store := storage.NewMemoryStore()
	handler := NewHandler(social.NewService(store, nil, 0), online)
	router := mux.NewRouter()
	handler.RegisterRoutes(ctx, router, auth.NewAuthManager(""), config.APIConfig{})
	return &apiFixture{router: router, store: store}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(auth.HeaderName, userID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAPI_RequiresAuthentication(t *testing.T) {
	f := newAPIFixture(t, nil)
	w := f.do(t, "GET", "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_ConnectionFlow(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, "POST", "/api/connection/send/bob", "alice", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	req := decode[models.ConnectionRequest](t, w)

	w = f.do(t, "POST", "/api/connection/send/bob", "alice", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "GET", "/api/connection/requests", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ConnectionRequest](t, w), 1)

	w = f.do(t, "GET", "/api/connection/status/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[models.ConnectionStatus](t, w)
	assert.Equal(t, "Pending", status.Status)
	assert.True(t, status.SentByMe)

	w = f.do(t, "POST", "/api/connection/accept/"+req.ID, "alice", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, "POST", "/api/connection/accept/"+req.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusAccepted, decode[models.ConnectionRequest](t, w).Status)

	w = f.do(t, "GET", "/api/connection/all", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	connected := decode[[]models.ConnectedUser](t, w)
	require.Len(t, connected, 1)
	assert.Equal(t, "bob", connected[0].UserID)

	w = f.do(t, "GET", "/api/notifications", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[[]models.Notification](t, w)
	require.Len(t, notes, 1)
	assert.Equal(t, models.KindConnectionAccept, notes[0].Kind)

	w = f.do(t, "POST", "/api/notifications/read/"+notes[0].ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Notification](t, w).IsRead)
}

func TestAPI_RejectAndUnsend(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, "POST", "/api/connection/send/bob", "alice", nil)
	req := decode[models.ConnectionRequest](t, w)
	w = f.do(t, "POST", "/api/connection/reject/"+req.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, "POST", "/api/connection/reject/"+req.ID, "bob", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	f.do(t, "POST", "/api/connection/send/carol", "alice", nil)
	w = f.do(t, "DELETE", "/api/connection/unsend/carol", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, "DELETE", "/api/connection/unsend/carol", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Wishlist(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, "GET", "/api/wishlist", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = f.do(t, "POST", "/api/wishlist/add/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, "POST", "/api/wishlist/add/alice", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "GET", "/api/wishlist", "alice", nil)
	assert.Equal(t, []string{"bob"}, decode[[]string](t, w))

	w = f.do(t, "DELETE", "/api/wishlist/remove/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, "GET", "/api/notifications", "bob", nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestAPI_Picture(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, "POST", "/api/picture/request/bob", "alice", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, "POST", "/api/picture/respond/alice", "bob", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "approve is required")

	w = f.do(t, "POST", "/api/picture/respond/alice", "bob", map[string]bool{"approve": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.KindProfilePictureRejected, decode[models.Notification](t, w).Kind)
}

func TestAPI_Chat(t *testing.T) {
	f := newAPIFixture(t, nil)

	w := f.do(t, "POST", "/api/chat/create/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	chat := decode[models.Chat](t, w)

	w = f.do(t, "POST", "/api/chat/message/"+chat.ID, "alice", map[string]string{"content": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[models.Message](t, w)
	assert.Equal(t, "alice", msg.SenderID)

	w = f.do(t, "POST", "/api/chat/message/"+chat.ID, "alice", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "POST", "/api/chat/message/"+chat.ID, "mallory", map[string]string{"content": "hey"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, "PUT", "/api/chat/message/update/"+msg.ID, "alice", map[string]string{"content": "hi Bob"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi Bob", decode[models.Message](t, w).Content)

	w = f.do(t, "GET", "/api/chat/messages/"+chat.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]models.Message](t, w)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsSeen)

	w = f.do(t, "PUT", "/api/chat/seen/"+chat.ID, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["marked"])

	w = f.do(t, "DELETE", "/api/chat/message/delete/"+msg.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, "DELETE", "/api/chat/message/delete/"+msg.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.do(t, "POST", "/api/chat/message/"+chat.ID, "bob", map[string]string{"content": "bye"})
	w = f.do(t, "DELETE", "/api/chat/deleteAll/bob", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]interface{}](t, w)["deleted"])

	w = f.do(t, "GET", "/api/chat/messages/"+chat.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Online(t *testing.T) {
	f := newAPIFixture(t, func() []string { return []string{"alice", "bob"} })
	w := f.do(t, "GET", "/api/online", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":["alice","bob"],"count":2}`, w.Body.String())

	f = newAPIFixture(t, nil)
	w = f.do(t, "GET", "/api/online", "alice", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestHandler_DirectWithURLVars(t *testing.T) {
	store := storage.NewMemoryStore()
	handler := NewHandler(social.NewService(store, nil, 0), nil)

	req := httptest.NewRequest("POST", "/api/wishlist/add/bob", nil)
	req = req.WithContext(WithUserID(req.Context(), "alice"))
	req = mux.SetURLVars(req, map[string]string{"userId": "bob"})
	w := httptest.NewRecorder()

	handler.AddToWishlist(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	list, err := store.Wishlist(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrEditWindowExpired, http.StatusForbidden},
		{models.ErrAlreadyExists, http.StatusConflict},
		{models.ErrRequestNotPending, http.StatusConflict},
		{models.ErrSelfAction, http.StatusBadRequest},
		{models.ErrEmptyContent, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
