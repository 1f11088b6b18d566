package realtime

import (
	"sync"
)

// ConnectionTable holds the open websocket connections of a hub
type ConnectionTable struct {
	connections map[string]*Connection // connection_id -> connection
	limit       int                    // 0 means unlimited
	mu          sync.RWMutex
}

// NewConnectionTable creates a table admitting at most limit connections
func NewConnectionTable(limit int) *ConnectionTable {
	return &ConnectionTable{
		connections: make(map[string]*Connection),
		limit:       limit,
	}
}

// TryAdd adds conn unless the table is full
func (t *ConnectionTable) TryAdd(conn *Connection) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limit > 0 && len(t.connections) >= t.limit {
		return false
	}
	t.connections[conn.ID()] = conn
	return true
}

// Remove removes a connection and reports whether it was present
func (t *ConnectionTable) Remove(connectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.connections[connectionID]; !exists {
		return false
	}
	delete(t.connections, connectionID)
	return true
}

// Get retrieves a connection by ID
func (t *ConnectionTable) Get(connectionID string) (*Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, exists := t.connections[connectionID]
	return conn, exists
}

// All returns a snapshot of every connection
func (t *ConnectionTable) All() []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	connections := make([]*Connection, 0, len(t.connections))
	for _, conn := range t.connections {
		connections = append(connections, conn)
	}
	return connections
}

// Count returns the total number of connections
func (t *ConnectionTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.connections)
}

// Full reports whether the table is at its limit
func (t *ConnectionTable) Full() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.limit > 0 && len(t.connections) >= t.limit
}
