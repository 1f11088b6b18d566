package social

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// SendRequest asks receiverID to connect with senderID
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*models.ConnectionRequest, error) {
	if err := checkPair(senderID, receiverID); err != nil {
		return nil, err
	}

	_, err := s.store.FindRequest(ctx, storage.RequestFilter{SenderID: senderID, ReceiverID: receiverID})
	if err == nil {
		return nil, fmt.Errorf("%w: request already sent", models.ErrAlreadyExists)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	req := &models.ConnectionRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create connection request: %w", err)
	}

	if _, err := s.notify(ctx, &models.Notification{
		UserID:     receiverID,
		Kind:       models.KindConnectionRequest,
		FromUserID: senderID,
		Message:    "wants to connect",
		RequestID:  req.ID,
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// pendingFor loads a request that userID received and can still answer
func (s *Service) pendingFor(ctx context.Context, userID, requestID string) (*models.ConnectionRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, models.ErrForbidden
	}
	if req.Status != models.StatusPending {
		return nil, models.ErrRequestNotPending
	}
	return req, nil
}

// Accept accepts a pending request addressed to userID. Both users become
// matches and the sender is notified.
func (s *Service) Accept(ctx context.Context, userID, requestID string) (*models.ConnectionRequest, error) {
	req, err := s.pendingFor(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	req.Status = models.StatusAccepted
	if err := s.store.UpdateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to accept request: %w", err)
	}
	if err := s.store.AddMatch(ctx, req.SenderID, req.ReceiverID); err != nil {
		return nil, fmt.Errorf("failed to add match: %w", err)
	}
	if err := s.store.AddMatch(ctx, req.ReceiverID, req.SenderID); err != nil {
		return nil, fmt.Errorf("failed to add match: %w", err)
	}
	s.dropRequestNotifications(ctx, req.ID)

	if _, err := s.notify(ctx, &models.Notification{
		UserID:     req.SenderID,
		Kind:       models.KindConnectionAccept,
		FromUserID: req.ReceiverID,
		Message:    "connection request accepted",
	}); err != nil {
		return nil, err
	}
	return req, nil
}

// Reject rejects a pending request addressed to userID. The sender is not told.
func (s *Service) Reject(ctx context.Context, userID, requestID string) (*models.ConnectionRequest, error) {
	req, err := s.pendingFor(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	req.Status = models.StatusRejected
	if err := s.store.UpdateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to reject request: %w", err)
	}
	s.dropRequestNotifications(ctx, req.ID)
	return req, nil
}

// Unsend withdraws senderID's pending request to receiverID
func (s *Service) Unsend(ctx context.Context, senderID, receiverID string) error {
	req, err := s.store.FindRequest(ctx, storage.RequestFilter{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.StatusPending,
	})
	if err != nil {
		return err
	}
	if err := s.store.DeleteRequest(ctx, req.ID); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	s.dropRequestNotifications(ctx, req.ID)
	return nil
}

func (s *Service) dropRequestNotifications(ctx context.Context, requestID string) {
	if _, err := s.store.DeleteNotifications(ctx, storage.NotificationFilter{RequestID: requestID}); err != nil {
		logger.Warn("Failed to delete request notification",
			logger.ErrorField(err),
			logger.String("request_id", requestID),
		)
	}
}

// Status describes the relationship between userID and partnerID
func (s *Service) Status(ctx context.Context, userID, partnerID string) (*models.ConnectionStatus, error) {
	req, err := s.store.FindRequest(ctx, storage.RequestFilter{
		SenderID:   userID,
		ReceiverID: partnerID,
		EitherWay:  true,
	})
	if errors.Is(err, models.ErrNotFound) {
		return &models.ConnectionStatus{Status: "none"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.ConnectionStatus{
		Status:    string(req.Status),
		SentByMe:  req.SenderID == userID,
		RequestID: req.ID,
	}, nil
}

// Pending lists the requests userID still has to answer, newest first
func (s *Service) Pending(ctx context.Context, userID string) ([]*models.ConnectionRequest, error) {
	return s.store.ListRequests(ctx, storage.RequestFilter{
		ReceiverID: userID,
		Status:     models.StatusPending,
	})
}

// Connected lists userID's accepted connections with the latest message
// exchanged, most recent conversation first
func (s *Service) Connected(ctx context.Context, userID string) ([]*models.ConnectedUser, error) {
	accepted, err := s.store.ListRequests(ctx, storage.RequestFilter{
		Involving: userID,
		Status:    models.StatusAccepted,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.ConnectedUser, 0, len(accepted))
	seen := make(map[string]bool, len(accepted))
	for _, req := range accepted {
		partnerID := req.Partner(userID)
		if seen[partnerID] {
			continue
		}
		seen[partnerID] = true

		entry := &models.ConnectedUser{UserID: partnerID}
		chat, err := s.store.FindChatBetween(ctx, userID, partnerID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			entry.ChatID = chat.ID
			if chat.LastMessageID != "" {
				msg, err := s.store.GetMessage(ctx, chat.LastMessageID)
				if err != nil && !errors.Is(err, models.ErrNotFound) {
					return nil, err
				}
				if msg != nil {
					entry.LastMessage = models.SummaryOf(userID, msg)
				}
			}
		}
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
	return out, nil
}
