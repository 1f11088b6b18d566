package api

import (
	"context"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/matchline/internal/auth"
	"github.com/mohamedkhairy/matchline/internal/config"
)

// RegisterRoutes mounts the API under /api on router. Every /api route is
// logged, recovered, authenticated and rate limited.
func (h *Handler) RegisterRoutes(ctx context.Context, router *mux.Router, authManager *auth.AuthManager, cfg config.APIConfig) {
	v := router.PathPrefix("/api").Subrouter()
	v.Use(
		mux.MiddlewareFunc(LoggingMiddleware()),
		mux.MiddlewareFunc(ErrorHandlingMiddleware()),
		mux.MiddlewareFunc(AuthMiddleware(authManager)),
		mux.MiddlewareFunc(RateLimitMiddleware(ctx, cfg.RateLimitRPS)),
	)

	// Connection requests
	v.HandleFunc("/connection/send/{receiverId}", h.SendRequest).Methods("POST")
	v.HandleFunc("/connection/accept/{requestId}", h.AcceptRequest).Methods("POST")
	v.HandleFunc("/connection/reject/{requestId}", h.RejectRequest).Methods("POST")
	v.HandleFunc("/connection/unsend/{receiverId}", h.UnsendRequest).Methods("DELETE")
	v.HandleFunc("/connection/status/{partnerId}", h.ConnectionStatus).Methods("GET")
	v.HandleFunc("/connection/requests", h.PendingRequests).Methods("GET")
	v.HandleFunc("/connection/all", h.Connections).Methods("GET")

	// Wishlist
	v.HandleFunc("/wishlist", h.Wishlist).Methods("GET")
	v.HandleFunc("/wishlist/add/{userId}", h.AddToWishlist).Methods("POST")
	v.HandleFunc("/wishlist/remove/{userId}", h.RemoveFromWishlist).Methods("DELETE")

	// Profile picture access
	v.HandleFunc("/picture/request/{ownerId}", h.RequestPicture).Methods("POST")
	v.HandleFunc("/picture/respond/{requesterId}", h.RespondPicture).Methods("POST")

	// Chat
	v.HandleFunc("/chat/create/{partnerId}", h.OpenChat).Methods("POST")
	v.HandleFunc("/chat/seen/{chatId}", h.MarkSeen).Methods("PUT")
	v.HandleFunc("/chat/message/{chatId}", h.SendMessage).Methods("POST")
	v.HandleFunc("/chat/messages/{chatId}", h.Messages).Methods("GET")
	v.HandleFunc("/chat/message/update/{messageId}", h.EditMessage).Methods("PUT")
	v.HandleFunc("/chat/message/delete/{messageId}", h.DeleteMessage).Methods("DELETE")
	v.HandleFunc("/chat/deleteAll/{partnerId}", h.DeleteConversation).Methods("DELETE")

	// Notifications
	v.HandleFunc("/notifications", h.Notifications).Methods("GET")
	v.HandleFunc("/notifications/read/{id}", h.MarkNotificationRead).Methods("POST")

	// Presence
	v.HandleFunc("/online", h.Online).Methods("GET")
}
