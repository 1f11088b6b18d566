package social

import (
	"context"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// RequestPicture asks ownerID to reveal a hidden profile picture to requesterID
func (s *Service) RequestPicture(ctx context.Context, requesterID, ownerID string) (*models.Notification, error) {
	if err := checkPair(requesterID, ownerID); err != nil {
		return nil, err
	}
	return s.notify(ctx, &models.Notification{
		UserID:     ownerID,
		Kind:       models.KindProfilePictureRequest,
		FromUserID: requesterID,
		Message:    "requested to view your profile picture",
	})
}

// RespondPicture answers requesterID's picture request and clears it from
// ownerID's notifications
func (s *Service) RespondPicture(ctx context.Context, ownerID, requesterID string, approve bool) (*models.Notification, error) {
	if err := checkPair(ownerID, requesterID); err != nil {
		return nil, err
	}

	kind, message := models.KindProfilePictureRejected, "declined your profile picture request"
	if approve {
		kind, message = models.KindProfilePictureApproved, "approved your profile picture request"
	}

	n, err := s.notify(ctx, &models.Notification{
		UserID:     requesterID,
		Kind:       kind,
		FromUserID: ownerID,
		Message:    message,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.DeleteNotifications(ctx, storage.NotificationFilter{
		UserID:     ownerID,
		FromUserID: requesterID,
		Kind:       models.KindProfilePictureRequest,
	}); err != nil {
		logger.Warn("Failed to clear picture request",
			logger.ErrorField(err),
			logger.String("owner_id", ownerID),
		)
	}
	return n, nil
}
