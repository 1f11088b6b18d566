package realtime

import (
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/presence"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// Dispatcher pushes events to a single user's live connection when there is one.
// An offline recipient is the normal case: the caller has already persisted the
// event and the client will see it on its next fetch.
type Dispatcher struct {
	registry *presence.Registry
}

// NewDispatcher creates a dispatcher reading from registry
func NewDispatcher(registry *presence.Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch emits event to the recipient's most recent connection.
// It reports whether an emit was attempted; emit failures are logged, not returned.
func (d *Dispatcher) Dispatch(recipientUserID, event string, payload interface{}) bool {
	h, ok := d.registry.Lookup(recipientUserID)
	if !ok {
		dispatchTotal.WithLabelValues(event, "offline").Inc()
		return false
	}
	conn, ok := h.(Conn)
	if !ok {
		dispatchTotal.WithLabelValues(event, "failed").Inc()
		logger.Error("Registered handle is not a connection",
			logger.String("user_id", recipientUserID),
			logger.String("handle_id", h.ID()),
		)
		return false
	}

	if err := safeEmit(conn, event, payload); err != nil {
		dispatchTotal.WithLabelValues(event, "failed").Inc()
		logger.Warn("Dispatch failed",
			logger.ErrorField(err),
			logger.String("event", event),
			logger.String("user_id", recipientUserID),
			logger.String("connection_id", conn.ID()),
		)
		return true
	}
	dispatchTotal.WithLabelValues(event, "delivered").Inc()
	return true
}

// DispatchNotification delivers n on the newNotification channel
func (d *Dispatcher) DispatchNotification(n *models.Notification) bool {
	return d.Dispatch(n.UserID, EventNewNotification, n)
}
