package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/mohamedkhairy/matchline/internal/auth"
	"github.com/mohamedkhairy/matchline/internal/config"
	"github.com/mohamedkhairy/matchline/pkg/logger"
)

const maxMessageSize = 64 * 1024

// Hub terminates websocket connections and feeds their frames to the lifecycle
type Hub struct {
	config    config.GatewayConfig
	lifecycle *Lifecycle
	auth      *auth.AuthManager
	table     *ConnectionTable
	upgrader  websocket.Upgrader

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	stats   HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal    int64     `json:"connections_total"`
	ConnectionsActive   int64     `json:"connections_active"`
	ConnectionsRejected int64     `json:"connections_rejected"`
	FramesReceived      int64     `json:"frames_received"`
	StaleRemoved        int64     `json:"stale_removed"`
	OnlineUsers         int       `json:"online_users"`
	Rooms               int       `json:"rooms"`
	LastFrameTime       time.Time `json:"last_frame_time"`
	mu                  sync.RWMutex
}

// NewHub creates a websocket hub in front of lifecycle
func NewHub(cfg config.GatewayConfig, lifecycle *Lifecycle, authManager *auth.AuthManager) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		config:    cfg,
		lifecycle: lifecycle,
		auth:      authManager,
		table:     NewConnectionTable(cfg.MaxConnections),
		ctx:       ctx,
		cancel:    cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	return lo.Contains(h.config.AllowedOrigins, "*") || lo.Contains(h.config.AllowedOrigins, origin)
}

// Start starts the stale connection sweep
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting realtime hub",
		logger.Int("max_connections", h.config.MaxConnections),
		logger.Bool("require_identity", h.lifecycle.opts.RequireIdentity),
		logger.Bool("token_required", h.auth.Enabled()),
	)

	if h.config.SweepInterval > 0 {
		h.wg.Add(1)
		go h.monitorConnections()
	}
	return nil
}

// Stop closes every connection and waits for the pumps to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping realtime hub", logger.Int("connections", h.table.Count()))
	h.cancel()
	for _, conn := range h.table.All() {
		h.Unregister(conn)
	}
	h.wg.Wait()
	logger.Info("Realtime hub stopped")
}

// ServeHTTP upgrades the request and registers the connection
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.table.Full() {
		h.incrementRejected()
		logger.Warn("Max connections reached, rejecting new connection",
			logger.Int("max_connections", h.config.MaxConnections),
		)
		http.Error(w, "Max connections reached", http.StatusServiceUnavailable)
		return
	}

	var claimedUserID string
	if h.auth.Enabled() {
		userID, err := h.auth.Authenticate(r)
		if err != nil {
			h.incrementRejected()
			logger.Warn("Rejecting unauthenticated connection",
				logger.ErrorField(err),
				logger.String("remote_addr", r.RemoteAddr),
			)
			http.Error(w, "Invalid authentication token", http.StatusUnauthorized)
			return
		}
		claimedUserID = userID
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection", logger.ErrorField(err))
		return
	}

	conn := NewConnection(uuid.New().String(), claimedUserID, ws, h.config.SendBufferSize)
	if !h.Register(conn) {
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	logger.Info("Realtime connection established",
		logger.String("connection_id", conn.ID()),
		logger.String("claimed_user_id", claimedUserID),
		logger.String("remote_addr", r.RemoteAddr),
	)
}

// Register admits conn and starts its pumps. It returns false when the hub is full.
func (h *Hub) Register(conn *Connection) bool {
	if !h.table.TryAdd(conn) {
		h.incrementRejected()
		return false
	}
	h.lifecycle.Connect(conn)
	h.incrementConnectionsTotal()

	h.wg.Add(2)
	go h.writePump(conn)
	go h.readPump(conn)
	return true
}

// Unregister closes conn and runs the disconnect transition once
func (h *Hub) Unregister(conn *Connection) {
	if !h.table.Remove(conn.ID()) {
		return
	}
	h.lifecycle.Disconnect(conn)
	conn.Close()

	logger.Info("Realtime connection closed",
		logger.String("connection_id", conn.ID()),
		logger.Duration("age", conn.Age()),
		logger.Int("total_connections", h.table.Count()),
	)
}

// writePump pumps queued events to the socket, one frame per event
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-conn.Done():
			return

		case message := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("Write failed",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID()),
				)
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps frames from the socket into the lifecycle
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.ws.SetReadLimit(maxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID()),
				)
			}
			return
		}

		h.incrementFramesReceived()
		h.lifecycle.HandleInbound(conn, message)
	}
}

// monitorConnections removes connections whose peer stopped answering pings
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.sweep(time.Now())
		}
	}
}

func (h *Hub) sweep(now time.Time) int {
	staleThreshold := h.config.ReadTimeout * 2
	removed := 0
	for _, conn := range h.table.All() {
		idle := now.Sub(conn.LastPong())
		if idle <= staleThreshold {
			continue
		}
		logger.Info("Removing stale connection",
			logger.String("connection_id", conn.ID()),
			logger.Duration("idle_time", idle),
		)
		h.Unregister(conn)
		removed++
	}
	if removed > 0 {
		h.stats.mu.Lock()
		h.stats.StaleRemoved += int64(removed)
		h.stats.mu.Unlock()
	}
	return removed
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	return HubStats{
		ConnectionsTotal:    h.stats.ConnectionsTotal,
		ConnectionsActive:   int64(h.table.Count()),
		ConnectionsRejected: h.stats.ConnectionsRejected,
		FramesReceived:      h.stats.FramesReceived,
		StaleRemoved:        h.stats.StaleRemoved,
		OnlineUsers:         len(h.lifecycle.OnlineUsers()),
		Rooms:               h.lifecycle.Rooms().RoomCount(),
		LastFrameTime:       h.stats.LastFrameTime,
	}
}

// Running reports whether Start has been called and Stop has not
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) incrementConnectionsTotal() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.ConnectionsTotal++
}

func (h *Hub) incrementRejected() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.ConnectionsRejected++
}

func (h *Hub) incrementFramesReceived() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.FramesReceived++
	h.stats.LastFrameTime = time.Now()
}
