package social

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
)

// Notifications lists userID's notifications, newest first
func (s *Service) Notifications(ctx context.Context, userID string) ([]*models.Notification, error) {
	if userID == "" {
		return nil, models.ErrInvalidUserID
	}
	return s.store.ListNotifications(ctx, storage.NotificationFilter{UserID: userID})
}

// MarkRead marks one of userID's notifications as read
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, models.ErrForbidden
	}
	if n.IsRead {
		return n, nil
	}

	n.IsRead = true
	if err := s.store.UpdateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return n, nil
}
