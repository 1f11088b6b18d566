package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

const streamField = "event"

var streamEventsConsumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "matchline",
		Name:      "stream_events_consumed_total",
		Help:      "Events read from the Redis stream, by outcome",
	},
	[]string{"result"}, // "handled", "failed", "malformed"
)

// StreamPublisher publishes events to a Redis stream
type StreamPublisher struct {
	redis  storage.RedisClient
	stream string
}

// NewStreamPublisher creates a publisher for the given stream
func NewStreamPublisher(redis storage.RedisClient, stream string) *StreamPublisher {
	return &StreamPublisher{redis: redis, stream: stream}
}

// Publish implements Publisher
func (p *StreamPublisher) Publish(ctx context.Context, ev *Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if err := p.redis.PublishToStream(ctx, p.stream, streamField, ev); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Kind, err)
	}
	return nil
}

// StreamSource consumes events from a Redis stream through a consumer group
type StreamSource struct {
	redis    storage.RedisClient
	stream   string
	group    string
	consumer string
}

// NewStreamSource creates a consumer-group source
func NewStreamSource(redis storage.RedisClient, stream, group, consumer string) *StreamSource {
	return &StreamSource{redis: redis, stream: stream, group: group, consumer: consumer}
}

// Consume implements Source. Every message is acknowledged once handled,
// including malformed ones, so a poison message is never redelivered.
func (s *StreamSource) Consume(ctx context.Context, handler Handler) error {
	messages, err := s.redis.ConsumeFromStream(ctx, s.stream, s.group, s.consumer)
	if err != nil {
		return fmt.Errorf("failed to consume stream %s: %w", s.stream, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, msg, handler)
		}
	}
}

func (s *StreamSource) handle(ctx context.Context, msg storage.StreamMessage, handler Handler) {
	defer s.ack(msg.ID)

	ev, err := decodeStreamMessage(msg)
	if err != nil {
		streamEventsConsumed.WithLabelValues("malformed").Inc()
		logger.Error("Failed to decode stream event",
			logger.ErrorField(err),
			logger.String("message_id", msg.ID),
		)
		return
	}

	if err := handler(ctx, ev); err != nil {
		streamEventsConsumed.WithLabelValues("failed").Inc()
		logger.Warn("Event handler failed",
			logger.ErrorField(err),
			logger.String("message_id", msg.ID),
			logger.String("kind", string(ev.Kind)),
		)
		return
	}
	streamEventsConsumed.WithLabelValues("handled").Inc()
}

func (s *StreamSource) ack(id string) {
	ackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.redis.AcknowledgeMessage(ackCtx, s.stream, s.group, id); err != nil {
		logger.Warn("Failed to acknowledge stream event",
			logger.ErrorField(err),
			logger.String("message_id", id),
		)
	}
}

func decodeStreamMessage(msg storage.StreamMessage) (*Event, error) {
	raw, ok := msg.Values[streamField]
	if !ok {
		return nil, fmt.Errorf("%s field not found in message", streamField)
	}
	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s field is not a string", streamField)
	}

	var ev Event
	if err := json.Unmarshal([]byte(str), &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
