package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mohamedkhairy/matchline/internal/models"
)

// MemoryStore is an in-process Store used for development and tests.
// Records are copied on the way in and out so callers never share state.
type MemoryStore struct {
	mu sync.RWMutex

	wishlists     map[string][]string
	matches       map[string][]string
	requests      map[string]*models.ConnectionRequest
	notifications map[string]*models.Notification
	chats         map[string]*models.Chat
	messages      map[string]*models.Message

	// insertion order, used to break CreatedAt ties
	seq map[string]int64
	n   int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wishlists:     make(map[string][]string),
		matches:       make(map[string][]string),
		requests:      make(map[string]*models.ConnectionRequest),
		notifications: make(map[string]*models.Notification),
		chats:         make(map[string]*models.Chat),
		messages:      make(map[string]*models.Message),
		seq:           make(map[string]int64),
	}
}

func (s *MemoryStore) track(id string) {
	s.n++
	s.seq[id] = s.n
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// --- users ---

func (s *MemoryStore) AddToWishlist(ctx context.Context, userID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lo.Contains(s.wishlists[userID], targetID) {
		return false, nil
	}
	s.wishlists[userID] = append(s.wishlists[userID], targetID)
	return true, nil
}

func (s *MemoryStore) RemoveFromWishlist(ctx context.Context, userID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lo.Contains(s.wishlists[userID], targetID) {
		return false, nil
	}
	s.wishlists[userID] = lo.Without(s.wishlists[userID], targetID)
	return true, nil
}

func (s *MemoryStore) Wishlist(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.wishlists[userID]...), nil
}

func (s *MemoryStore) AddMatch(ctx context.Context, userID, otherID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lo.Contains(s.matches[userID], otherID) {
		s.matches[userID] = append(s.matches[userID], otherID)
	}
	return nil
}

func (s *MemoryStore) Matches(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.matches[userID]...), nil
}

// --- connection requests ---

func (s *MemoryStore) CreateRequest(ctx context.Context, req *models.ConnectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&req.ID)
	if _, exists := s.requests[req.ID]; exists {
		return models.ErrAlreadyExists
	}
	stamp(&req.CreatedAt)
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	cp := *req
	s.requests[req.ID] = &cp
	s.track(req.ID)
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*models.ConnectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) FindRequest(ctx context.Context, filter RequestFilter) (*models.ConnectionRequest, error) {
	list, err := s.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, models.ErrNotFound
	}
	return list[0], nil
}

// ListRequests returns matches newest first
func (s *MemoryStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.ConnectionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ConnectionRequest
	for _, req := range s.requests {
		if !filter.matches(req) {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (f RequestFilter) matches(req *models.ConnectionRequest) bool {
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	if f.Involving != "" && !req.Involves(f.Involving) {
		return false
	}
	direct := (f.SenderID == "" || req.SenderID == f.SenderID) &&
		(f.ReceiverID == "" || req.ReceiverID == f.ReceiverID)
	if direct {
		return true
	}
	if !f.EitherWay {
		return false
	}
	return (f.SenderID == "" || req.ReceiverID == f.SenderID) &&
		(f.ReceiverID == "" || req.SenderID == f.ReceiverID)
}

func (s *MemoryStore) UpdateRequest(ctx context.Context, req *models.ConnectionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return models.ErrNotFound
	}
	req.UpdatedAt = time.Now().UTC()
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.requests, id)
	delete(s.seq, id)
	return nil
}

// --- notifications ---

func (s *MemoryStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&n.ID)
	if _, exists := s.notifications[n.ID]; exists {
		return models.ErrAlreadyExists
	}
	stamp(&n.CreatedAt)
	cp := *n
	s.notifications[n.ID] = &cp
	s.track(n.ID)
	return nil
}

func (s *MemoryStore) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if !filter.matches(n) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (f NotificationFilter) empty() bool {
	return f == NotificationFilter{}
}

func (f NotificationFilter) matches(n *models.Notification) bool {
	return (f.UserID == "" || n.UserID == f.UserID) &&
		(f.FromUserID == "" || n.FromUserID == f.FromUserID) &&
		(f.Kind == "" || n.Kind == f.Kind) &&
		(f.RequestID == "" || n.RequestID == f.RequestID)
}

func (s *MemoryStore) UpdateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteNotifications(ctx context.Context, filter NotificationFilter) (int, error) {
	if filter.empty() {
		return 0, models.ErrInvalidPayload
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, n := range s.notifications {
		if filter.matches(n) {
			delete(s.notifications, id)
			delete(s.seq, id)
			removed++
		}
	}
	return removed, nil
}

// --- chats ---

func (s *MemoryStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&chat.ID)
	if _, exists := s.chats[chat.ID]; exists {
		return models.ErrAlreadyExists
	}
	stamp(&chat.UpdatedAt)
	s.chats[chat.ID] = copyChat(chat)
	return nil
}

func copyChat(c *models.Chat) *models.Chat {
	cp := *c
	cp.Participants = append([]string{}, c.Participants...)
	return &cp
}

func (s *MemoryStore) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyChat(chat), nil
}

func (s *MemoryStore) FindChatBetween(ctx context.Context, userA, userB string) (*models.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chat := range s.chats {
		if chat.HasParticipant(userA) && chat.HasParticipant(userB) {
			return copyChat(chat), nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok {
		return models.ErrNotFound
	}
	chat.LastMessageID = messageID
	chat.UpdatedAt = at
	return nil
}

func (s *MemoryStore) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.chats, id)
	return nil
}

// --- messages ---

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&msg.ID)
	if _, exists := s.messages[msg.ID]; exists {
		return models.ErrAlreadyExists
	}
	stamp(&msg.CreatedAt)
	cp := *msg
	s.messages[msg.ID] = &cp
	s.track(msg.ID)
	return nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, chatID string) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Message
	for _, msg := range s.messages {
		if msg.ChatID != chatID {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) UpdateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.messages, id)
	delete(s.seq, id)
	return nil
}

func (s *MemoryStore) DeleteMessages(ctx context.Context, chatID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, msg := range s.messages {
		if msg.ChatID == chatID {
			delete(s.messages, id)
			delete(s.seq, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, chatID, viewerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for _, msg := range s.messages {
		if msg.ChatID == chatID && msg.SenderID != viewerID && !msg.IsSeen {
			msg.IsSeen = true
			marked++
		}
	}
	return marked, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
