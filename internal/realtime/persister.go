package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/internal/models"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

// ErrSinkFull is returned when the persistence queue cannot take another message
var ErrSinkFull = errors.New("message sink queue is full")

// ErrSinkStopped is returned by Enqueue after Stop
var ErrSinkStopped = errors.New("message sink is stopped")

// errChatGone marks a queued message whose chat was deleted before the write
var errChatGone = errors.New("chat no longer exists")

const chatLookupTimeout = 5 * time.Second

// MessageSink accepts chat messages sent over sockets for durable storage.
// Enqueue rejects messages that do not belong to an existing chat between
// sender and recipient.
type MessageSink interface {
	Enqueue(ev *models.ChatMessageEvent) error
}

// WriteConfig holds configuration for write operations
type WriteConfig struct {
	BatchSize  int
	Interval   time.Duration
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// WriteConfigFromPersistConfig creates a WriteConfig from PersistConfig
func WriteConfigFromPersistConfig(cfg config.PersistConfig) WriteConfig {
	return WriteConfig{
		BatchSize:  cfg.BatchSize,
		Interval:   cfg.Interval,
		QueueSize:  cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

// MessageWriter is the slice of storage.Store the persister needs
type MessageWriter interface {
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error
	DeleteMessage(ctx context.Context, id string) error
}

var _ MessageWriter = (storage.Store)(nil)

// MessagePersister batches socket messages into the message store
type MessagePersister struct {
	store       MessageWriter
	writeConfig WriteConfig

	writeQueue chan *models.ChatMessageEvent
	stopping   chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	running    bool
}

// NewMessagePersister creates a persister writing to store
func NewMessagePersister(store MessageWriter, writeConfig WriteConfig) *MessagePersister {
	if writeConfig.MaxRetries < 1 {
		writeConfig.MaxRetries = 1
	}
	if writeConfig.BatchSize < 1 {
		writeConfig.BatchSize = 1
	}
	if writeConfig.Interval <= 0 {
		writeConfig.Interval = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MessagePersister{
		store:       store,
		writeConfig: writeConfig,
		writeQueue:  make(chan *models.ChatMessageEvent, writeConfig.QueueSize),
		stopping:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the write queue processor
func (p *MessagePersister) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("persister is already running")
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.processWriteQueue()

	logger.Info("Message persister started",
		logger.Int("batch_size", p.writeConfig.BatchSize),
		logger.Duration("interval", p.writeConfig.Interval),
	)
	return nil
}

// Stop drains the queue, writing everything still pending. Retries still
// waiting are abandoned so shutdown is not held up by a failing store.
func (p *MessagePersister) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.writeQueue)
	close(p.stopping)
	p.mu.Unlock()

	logger.Info("Stopping message persister")
	p.wg.Wait()
	p.cancel()
	logger.Info("Message persister stopped")
}

// Enqueue implements MessageSink. It looks up the chat but never waits for
// the write itself.
func (p *MessagePersister) Enqueue(ev *models.ChatMessageEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if !p.isRunning() {
		return ErrSinkStopped
	}
	if err := p.authorize(ev); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrSinkStopped
	}

	select {
	case p.writeQueue <- ev:
		persistQueueDepth.Set(float64(len(p.writeQueue)))
		return nil
	default:
		messagesPersisted.WithLabelValues("dropped").Inc()
		logger.Warn("Message sink queue full, rejecting message",
			logger.Int("queue_depth", len(p.writeQueue)),
			logger.String("conversation_id", ev.ConversationID),
		)
		return ErrSinkFull
	}
}

func (p *MessagePersister) isRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// authorize checks that the conversation is a stored chat whose two
// participants are the sender and the recipient
func (p *MessagePersister) authorize(ev *models.ChatMessageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), chatLookupTimeout)
	defer cancel()

	chat, err := p.store.GetChat(ctx, ev.ConversationID)
	if err != nil {
		return err
	}
	if ev.SenderID == ev.RecipientID || !chat.HasParticipant(ev.SenderID) || chat.Partner(ev.SenderID) != ev.RecipientID {
		return models.ErrForbidden
	}
	return nil
}

func (p *MessagePersister) processWriteQueue() {
	defer p.wg.Done()

	batch := make([]*models.ChatMessageEvent, 0, p.writeConfig.BatchSize)
	ticker := time.NewTicker(p.writeConfig.Interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-p.writeQueue:
			if !ok {
				p.writeBatch(batch)
				return
			}
			persistQueueDepth.Set(float64(len(p.writeQueue)))

			batch = append(batch, ev)
			if len(batch) >= p.writeConfig.BatchSize {
				p.writeBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				p.writeBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

// writeBatch writes each message with retries. One failing message does not
// hold back the others.
func (p *MessagePersister) writeBatch(batch []*models.ChatMessageEvent) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, 30*time.Second)
	defer cancel()

	written := 0
	for _, ev := range batch {
		var err error
		for attempt := 0; attempt < p.writeConfig.MaxRetries; attempt++ {
			if err = p.writeOne(ctx, ev); err == nil || errors.Is(err, errChatGone) {
				break
			}
			if attempt == p.writeConfig.MaxRetries-1 {
				break
			}
			logger.Warn("Failed to persist message, retrying",
				logger.ErrorField(err),
				logger.String("message_id", ev.MessageID),
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", p.writeConfig.MaxRetries),
			)
			if !p.waitRetry(ctx) {
				break
			}
		}

		if errors.Is(err, errChatGone) {
			messagesPersisted.WithLabelValues("dropped").Inc()
			logger.Warn("Dropping message for deleted chat",
				logger.String("message_id", ev.MessageID),
				logger.String("conversation_id", ev.ConversationID),
			)
			continue
		}
		if err != nil {
			messagesPersisted.WithLabelValues("error").Inc()
			logger.Error("Failed to persist message after retries",
				logger.ErrorField(err),
				logger.String("message_id", ev.MessageID),
				logger.String("conversation_id", ev.ConversationID),
			)
			continue
		}
		messagesPersisted.WithLabelValues("success").Inc()
		written++
	}

	logger.Debug("Persisted message batch",
		logger.Int("count", len(batch)),
		logger.Int("written", written),
	)
}

// waitRetry sleeps for the retry delay. It returns false when ctx ends or
// the persister is stopping first.
func (p *MessagePersister) waitRetry(ctx context.Context) bool {
	timer := time.NewTimer(p.writeConfig.RetryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-p.stopping:
		return false
	}
}

// writeOne stores the message and bumps the chat. A chat deleted after the
// message was queued yields errChatGone and leaves no message row behind.
func (p *MessagePersister) writeOne(ctx context.Context, ev *models.ChatMessageEvent) error {
	if _, err := p.store.GetChat(ctx, ev.ConversationID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return errChatGone
		}
		return err
	}

	msg := ev.ToMessage()
	err := p.store.CreateMessage(ctx, msg)
	// a retry after a partial failure may find the row already written
	if err != nil && !errors.Is(err, models.ErrAlreadyExists) {
		return err
	}

	err = p.store.SetLastMessage(ctx, msg.ChatID, msg.ID, msg.CreatedAt)
	if errors.Is(err, models.ErrNotFound) {
		if derr := p.store.DeleteMessage(ctx, msg.ID); derr != nil && !errors.Is(derr, models.ErrNotFound) {
			return derr
		}
		return errChatGone
	}
	return err
}
