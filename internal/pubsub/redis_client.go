// Package pubsub implements the Redis stream transport behind storage.RedisClient.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/internal/storage"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

const (
	readBatch   = 10
	readBlock   = time.Second
	channelSize = 100
)

// RedisClientImpl implements the storage.RedisClient interface
type RedisClientImpl struct {
	client *redis.Client
	maxLen int64
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.RedisConfig) (storage.RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return &RedisClientImpl{client: rdb, maxLen: cfg.StreamMaxLen}, nil
}

// PublishToStream appends value, JSON encoded, under field key
func (r *RedisClientImpl) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{key: string(jsonData)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", stream, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// ensureGroup creates the consumer group (and the stream) when missing
func (r *RedisClientImpl) ensureGroup(ctx context.Context, stream, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err == nil || isBusyGroup(err) {
		return nil
	}
	return err
}

// ConsumeFromStream reads new entries for consumer until ctx is cancelled.
// The returned channel is closed when the reader stops.
func (r *RedisClientImpl) ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan storage.StreamMessage, error) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = r.ensureGroup(ctx, stream, group); err == nil {
			break
		}
		logger.Warn("Failed to create consumer group, retrying",
			logger.ErrorField(err),
			logger.String("stream", stream),
			logger.String("group", group),
			logger.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}

	out := make(chan storage.StreamMessage, channelSize)
	go r.readLoop(ctx, stream, group, consumer, out)
	return out, nil
}

func (r *RedisClientImpl) readLoop(ctx context.Context, stream, group, consumer string, out chan<- storage.StreamMessage) {
	defer close(out)

	for ctx.Err() == nil {
		streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    readBatch,
			Block:    readBlock,
		}).Result()

		switch {
		case err == nil:
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return
		case strings.Contains(err.Error(), "NOGROUP"):
			logger.Warn("Consumer group vanished, recreating",
				logger.String("stream", stream),
				logger.String("group", group),
			)
			if err := r.ensureGroup(ctx, stream, group); err != nil {
				logger.Error("Failed to recreate consumer group", logger.ErrorField(err))
			}
			sleep(ctx, 2*time.Second)
			continue
		default:
			logger.Error("Error reading from stream",
				logger.ErrorField(err),
				logger.String("stream", stream),
			)
			sleep(ctx, time.Second)
			continue
		}

		for _, s := range streams {
			for _, m := range s.Messages {
				select {
				case out <- storage.StreamMessage{ID: m.ID, Stream: s.Stream, Values: m.Values}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// AcknowledgeMessage acknowledges a message in a Redis stream
func (r *RedisClientImpl) AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error {
	return r.client.XAck(ctx, stream, group, id).Err()
}

// Close closes the Redis connection
func (r *RedisClientImpl) Close() error {
	return r.client.Close()
}
