package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/social"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// OnlineFunc reports the current online set when the realtime core runs in process
type OnlineFunc func() []string

// Handler serves the social API
type Handler struct {
	svc    *social.Service
	online OnlineFunc
}

// NewHandler creates a handler. online may be nil when the API runs without
// the realtime core.
func NewHandler(svc *social.Service, online OnlineFunc) *Handler {
	return &Handler{svc: svc, online: online}
}

var validate = validator.New()

type messageRequest struct {
	Content string `json:"content" validate:"required"`
}

type editRequest struct {
	Content string `json:"content"`
}

type pictureResponse struct {
	Approve *bool `json:"approve" validate:"required"`
}

// decodeBody decodes and validates a JSON body into dst
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.ErrInvalidPayload
	}
	if err := validate.Struct(dst); err != nil {
		return models.ErrInvalidPayload
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrEditWindowExpired):
		return http.StatusForbidden
	case errors.Is(err, models.ErrAlreadyExists), errors.Is(err, models.ErrRequestNotPending):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidPayload),
		errors.Is(err, models.ErrInvalidUserID),
		errors.Is(err, models.ErrInvalidConversationID),
		errors.Is(err, models.ErrEmptyContent),
		errors.Is(err, models.ErrInvalidNotificationKind),
		errors.Is(err, models.ErrSelfAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.ErrorsTotal.WithLabelValues("api", "internal").Inc()
		logger.WithContext(r.Context()).Error("Request failed",
			logger.ErrorField(err),
			logger.String("path", r.URL.Path),
		)
		respondWithError(w, code, "Internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

func respondWithMessage(w http.ResponseWriter, msg string) {
	respondWithJSON(w, http.StatusOK, map[string]string{"msg": msg})
}

// --- connections ---

// SendRequest handles POST /api/connection/send/{receiverId}
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.SendRequest(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["receiverId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, req)
}

// AcceptRequest handles POST /api/connection/accept/{requestId}
func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Accept(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["requestId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, req)
}

// RejectRequest handles POST /api/connection/reject/{requestId}
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Reject(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["requestId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, req)
}

// UnsendRequest handles DELETE /api/connection/unsend/{receiverId}
func (h *Handler) UnsendRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unsend(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["receiverId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, "Connection request unsent")
}

// ConnectionStatus handles GET /api/connection/status/{partnerId}
func (h *Handler) ConnectionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.Status(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["partnerId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// PendingRequests handles GET /api/connection/requests
func (h *Handler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.Pending(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(requests))
}

// Connections handles GET /api/connection/all
func (h *Handler) Connections(w http.ResponseWriter, r *http.Request) {
	connected, err := h.svc.Connected(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, connected)
}

// --- wishlist ---

// AddToWishlist handles POST /api/wishlist/add/{userId}
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AddToWishlist(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["userId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, "User added to wishlist")
}

// RemoveFromWishlist handles DELETE /api/wishlist/remove/{userId}
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveFromWishlist(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["userId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, "User removed from wishlist")
}

// Wishlist handles GET /api/wishlist
func (h *Handler) Wishlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Wishlist(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// --- picture access ---

// RequestPicture handles POST /api/picture/request/{ownerId}
func (h *Handler) RequestPicture(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.RequestPicture(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["ownerId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, n)
}

// RespondPicture handles POST /api/picture/respond/{requesterId}
func (h *Handler) RespondPicture(w http.ResponseWriter, r *http.Request) {
	var body pictureResponse
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.svc.RespondPicture(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["requesterId"], *body.Approve)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, n)
}

// --- chat ---

// OpenChat handles POST /api/chat/create/{partnerId}
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.svc.OpenChat(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["partnerId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chat)
}

// MarkSeen handles PUT /api/chat/seen/{chatId}
func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkSeen(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["chatId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":    "Messages marked as seen",
		"marked": n,
	})
}

// SendMessage handles POST /api/chat/message/{chatId}
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, models.ErrEmptyContent)
		return
	}
	msg, err := h.svc.SendMessage(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["chatId"], body.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// Messages handles GET /api/chat/messages/{chatId}
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.Messages(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["chatId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(msgs))
}

// EditMessage handles PUT /api/chat/message/update/{messageId}
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var body editRequest
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := h.svc.EditMessage(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["messageId"], body.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /api/chat/message/delete/{messageId}
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMessage(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["messageId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithMessage(w, "Message deleted")
}

// DeleteConversation handles DELETE /api/chat/deleteAll/{partnerId}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.DeleteConversation(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["partnerId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":     "All chat messages deleted for this user",
		"deleted": n,
	})
}

// --- notifications ---

// Notifications handles GET /api/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Notifications(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// MarkNotificationRead handles POST /api/notifications/read/{id}
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkRead(r.Context(), UserIDFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, n)
}

// --- presence ---

// Online handles GET /api/online
func (h *Handler) Online(w http.ResponseWriter, r *http.Request) {
	if h.online == nil {
		respondWithError(w, http.StatusNotImplemented, "Presence is not available in this process")
		return
	}
	users := h.online()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users": nonNil(users),
		"count": len(users),
	})
}

// nonNil keeps empty lists encoded as [] rather than null
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
