// Package social implements the persisted user interactions behind the HTTP
// API: connection requests, wishlists, picture access, chat and notifications.
// Every operation writes to the store first and publishes a realtime event
// only once the write succeeded.
package social

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// DefaultEditWindow is how long a sender may edit or delete a message
const DefaultEditWindow = 5 * time.Minute

// Service implements the social operations over a Store
type Service struct {
	store      storage.Store
	publisher  events.Publisher
	editWindow time.Duration
	now        func() time.Time
}

// NewService creates a service. publisher may be nil, in which case nothing
// is pushed in real time and clients see changes on their next fetch.
func NewService(store storage.Store, publisher events.Publisher, editWindow time.Duration) *Service {
	if editWindow <= 0 {
		editWindow = DefaultEditWindow
	}
	return &Service{
		store:      store,
		publisher:  publisher,
		editWindow: editWindow,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// publish hands an event to the realtime side. The state it describes is
// already stored, so a failure here only costs the live push.
func (s *Service) publish(ctx context.Context, ev *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			logger.ErrorField(err),
			logger.String("kind", string(ev.Kind)),
		)
	}
}

// notify stores a notification and pushes it to the recipient
func (s *Service) notify(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	n.CreatedAt = s.now()
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	s.publish(ctx, events.NotificationCreated(n))
	return n, nil
}

func checkPair(userID, otherID string) error {
	if userID == "" || otherID == "" {
		return models.ErrInvalidUserID
	}
	if userID == otherID {
		return models.ErrSelfAction
	}
	return nil
}
