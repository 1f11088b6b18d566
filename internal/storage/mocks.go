package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu sync.Mutex

	StreamData []StreamMessage
	Acked      []string
	PublishErr error
	ConsumeErr error
	AckErr     error
	Closed     bool
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{}
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamData = append(m.StreamData, StreamMessage{
		ID:     fmt.Sprintf("%d-0", len(m.StreamData)+1),
		Stream: stream,
		Values: map[string]interface{}{key: string(jsonData)},
	})
	return nil
}

// ConsumeFromStream replays everything published so far and then closes the channel
func (m *MockRedisClient) ConsumeFromStream(ctx context.Context, stream string, group string, consumer string) (<-chan StreamMessage, error) {
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan StreamMessage, len(m.StreamData))
	for _, msg := range m.StreamData {
		if msg.Stream == "" || msg.Stream == stream {
			ch <- msg
		}
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) AcknowledgeMessage(ctx context.Context, stream string, group string, id string) error {
	if m.AckErr != nil {
		return m.AckErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, id)
	return nil
}

// AckedIDs returns a snapshot of acknowledged message ids
func (m *MockRedisClient) AckedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.Acked...)
}

func (m *MockRedisClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
