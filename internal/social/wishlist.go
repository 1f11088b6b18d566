package social

import (
	"context"
	"fmt"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
)

// AddToWishlist adds targetID to userID's wishlist. The target is notified
// only the first time.
func (s *Service) AddToWishlist(ctx context.Context, userID, targetID string) error {
	if err := checkPair(userID, targetID); err != nil {
		return err
	}

	added, err := s.store.AddToWishlist(ctx, userID, targetID)
	if err != nil {
		return fmt.Errorf("failed to add to wishlist: %w", err)
	}
	if !added {
		return nil
	}

	_, err = s.notify(ctx, &models.Notification{
		UserID:     targetID,
		Kind:       models.KindWishlistAdd,
		FromUserID: userID,
		Message:    "added you to their wishlist",
	})
	return err
}

// RemoveFromWishlist removes targetID and withdraws the notification it caused
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, targetID string) error {
	if err := checkPair(userID, targetID); err != nil {
		return err
	}

	if _, err := s.store.RemoveFromWishlist(ctx, userID, targetID); err != nil {
		return fmt.Errorf("failed to remove from wishlist: %w", err)
	}
	if _, err := s.store.DeleteNotifications(ctx, storage.NotificationFilter{
		UserID:     targetID,
		FromUserID: userID,
		Kind:       models.KindWishlistAdd,
	}); err != nil {
		return fmt.Errorf("failed to delete wishlist notification: %w", err)
	}
	return nil
}

func (s *Service) Wishlist(ctx context.Context, userID string) ([]string, error) {
	return s.store.Wishlist(ctx, userID)
}
