package social

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohamedkhairy/matchline/internal/events"
	"github.com/mohamedkhairy/matchline/internal/models"
)

// OpenChat returns the conversation between userID and partnerID, creating it if needed
func (s *Service) OpenChat(ctx context.Context, userID, partnerID string) (*models.Chat, error) {
	if err := checkPair(userID, partnerID); err != nil {
		return nil, err
	}

	chat, err := s.store.FindChatBetween(ctx, userID, partnerID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	chat = &models.Chat{
		Participants: []string{userID, partnerID},
		UpdatedAt:    s.now(),
	}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return chat, nil
}

// chatFor loads a chat userID takes part in
func (s *Service) chatFor(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, models.ErrForbidden
	}
	return chat, nil
}

// SendMessage stores a message from userID and then pushes it to the room
// and to both participants' chat lists
func (s *Service) SendMessage(ctx context.Context, userID, chatID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.ErrEmptyContent
	}
	chat, err := s.chatFor(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ChatID:    chat.ID,
		SenderID:  userID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if err := s.store.SetLastMessage(ctx, chat.ID, msg.ID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to update chat: %w", err)
	}

	s.publish(ctx, events.ChatMessageSent(models.NewChatMessageEvent(msg, chat.Partner(userID))))
	return msg, nil
}

// Messages returns the conversation oldest first
func (s *Service) Messages(ctx context.Context, userID, chatID string) ([]*models.Message, error) {
	if _, err := s.chatFor(ctx, userID, chatID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, chatID)
}

// MarkSeen marks the partner's messages as read by userID and tells the room
func (s *Service) MarkSeen(ctx context.Context, userID, chatID string) (int, error) {
	if _, err := s.chatFor(ctx, userID, chatID); err != nil {
		return 0, err
	}
	n, err := s.store.MarkSeen(ctx, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages seen: %w", err)
	}
	if n > 0 {
		s.publish(ctx, events.ChatSeen(chatID, userID))
	}
	return n, nil
}

// ownMessage loads a message userID sent that is still inside the edit window
func (s *Service) ownMessage(ctx context.Context, userID, messageID string) (*models.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, models.ErrForbidden
	}
	if !msg.Editable(s.now(), s.editWindow) {
		return nil, models.ErrEditWindowExpired
	}
	return msg, nil
}

// EditMessage replaces the content of a recent message. Blank content keeps the old text.
func (s *Service) EditMessage(ctx context.Context, userID, messageID, content string) (*models.Message, error) {
	msg, err := s.ownMessage(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return msg, nil
	}

	msg.Content = content
	if err := s.store.UpdateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return msg, nil
}

// DeleteMessage deletes a recent message. If it was the chat's latest, the
// previous message takes its place.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID string) error {
	msg, err := s.ownMessage(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMessage(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	chat, err := s.store.GetChat(ctx, msg.ChatID)
	if err != nil || chat.LastMessageID != msg.ID {
		return nil
	}
	remaining, err := s.store.ListMessages(ctx, chat.ID)
	if err != nil {
		return fmt.Errorf("failed to reload chat: %w", err)
	}
	lastID, at := "", s.now()
	if n := len(remaining); n > 0 {
		lastID, at = remaining[n-1].ID, remaining[n-1].CreatedAt
	}
	return s.store.SetLastMessage(ctx, chat.ID, lastID, at)
}

// DeleteConversation deletes the chat with partnerID and all of its messages.
// It returns how many messages were removed.
func (s *Service) DeleteConversation(ctx context.Context, userID, partnerID string) (int, error) {
	if err := checkPair(userID, partnerID); err != nil {
		return 0, err
	}
	chat, err := s.store.FindChatBetween(ctx, userID, partnerID)
	if err != nil {
		return 0, err
	}

	n, err := s.store.DeleteMessages(ctx, chat.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	if err := s.store.DeleteChat(ctx, chat.ID); err != nil {
		return n, fmt.Errorf("failed to delete chat: %w", err)
	}
	return n, nil
}
