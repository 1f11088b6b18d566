package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/matchline/internal/presence"
)

var (
	// ErrConnectionClosed is returned for operations on a closed connection
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSendBufferFull is returned when a connection cannot keep up; the event is dropped
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is one live client connection as seen by the realtime core
type Conn interface {
	presence.Handle

	// Emit queues an event for the peer without waiting for it
	Emit(event string, payload interface{}) error
}

// claimant is implemented by connections whose user was authenticated at upgrade
type claimant interface {
	ClaimedUserID() string
}

// Connection is a websocket-backed Conn
type Connection struct {
	id            string
	claimedUserID string
	ws            *websocket.Conn
	send          chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu        sync.RWMutex
	lastPong  time.Time
	createdAt time.Time
}

// NewConnection wraps an upgraded websocket. claimedUserID is the token
// subject when the upgrade was authenticated, empty otherwise.
func NewConnection(id, claimedUserID string, ws *websocket.Conn, bufferSize int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Connection{
		id:            id,
		claimedUserID: claimedUserID,
		ws:            ws,
		send:          make(chan []byte, bufferSize),
		ctx:           ctx,
		cancel:        cancel,
		lastPong:      now,
		createdAt:     now,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) ClaimedUserID() string { return c.claimedUserID }

// Emit encodes the event envelope and queues it on the send buffer.
// It never blocks: a full buffer drops the event.
func (c *Connection) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(outbound{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		return ErrSendBufferFull
	}
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// LastPong returns the last pong time
func (c *Connection) LastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Age returns how long the connection has been open
func (c *Connection) Age() time.Duration {
	return time.Since(c.createdAt)
}

// Close closes the socket. The send buffer is left open so that a
// concurrent Emit can never write to a closed channel.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
