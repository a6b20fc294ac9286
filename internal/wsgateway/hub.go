package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/nse-analytics/internal/config"
	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
)

// ErrTooManyConnections is returned when the hub is at capacity
var ErrTooManyConnections = errors.New("too many websocket connections")

const maxClientMessageBytes = 4096

// Hub manages WebSocket connections and broadcasts analysis updates
type Hub struct {
	config   config.WSGatewayConfig
	registry *ConnectionRegistry
	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	running  bool

	statsMu sync.Mutex
	stats   HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal  int64     `json:"connectionsTotal"`
	ConnectionsActive int64     `json:"connectionsActive"`
	Broadcasts        int64     `json:"broadcasts"`
	MessagesSent      int64     `json:"messagesSent"`
	MessagesDropped   int64     `json:"messagesDropped"`
	LastBroadcastTime time.Time `json:"lastBroadcastTime"`
}

// NewHub creates a new WebSocket hub
func NewHub(cfg config.WSGatewayConfig) *Hub {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout * 9 / 10
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:   cfg,
		registry: NewConnectionRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards are served from other origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the connection health monitor
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.Int("max_connections", h.config.MaxConnections),
		logger.Duration("ping_interval", h.config.PingInterval),
	)

	h.wg.Add(1)
	go h.monitorConnections()

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

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	for _, conn := range h.registry.GetAll() {
		h.Unregister(conn)
	}
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// ServeHTTP upgrades the request and registers the connection
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if limit := h.config.MaxConnections; limit > 0 && h.registry.Count() >= limit {
		http.Error(w, ErrTooManyConnections.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		logger.Warn("Failed to upgrade connection",
			logger.ErrorField(err),
			logger.String("remote_addr", r.RemoteAddr),
		)
		return
	}

	conn := NewConnection(uuid.New().String(), r.RemoteAddr, ws)
	if err := h.Register(conn); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
	}
}

// Register registers a new connection and starts its pumps
func (h *Hub) Register(conn *Connection) error {
	if !h.registry.AddIfBelow(conn, h.config.MaxConnections) {
		return ErrTooManyConnections
	}

	h.statsMu.Lock()
	h.stats.ConnectionsTotal++
	h.stats.ConnectionsActive++
	h.statsMu.Unlock()
	logger.WSConnections.Inc()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("remote_addr", conn.RemoteAddr),
		logger.Int("total_connections", h.registry.Count()),
	)

	if conn.Conn != nil {
		h.wg.Add(2)
		go h.writePump(conn)
		go h.readPump(conn)
	}
	return nil
}

// Unregister removes and closes a connection. Safe to call more than once.
func (h *Hub) Unregister(conn *Connection) {
	if !h.registry.Remove(conn.ID) {
		conn.Close()
		return
	}

	h.statsMu.Lock()
	if h.stats.ConnectionsActive > 0 {
		h.stats.ConnectionsActive--
	}
	h.statsMu.Unlock()
	logger.WSConnections.Dec()
	conn.Close()

	logger.Info("Connection unregistered",
		logger.String("connection_id", conn.ID),
		logger.Int("total_connections", h.registry.Count()),
	)
}

// BroadcastAnalysis pushes {"type":"analysis","symbol":...,"data":...} to
// every connection subscribed to symbol. Slow clients whose queue is full
// miss the update. It returns the number of connections reached.
func (h *Hub) BroadcastAnalysis(symbol string, data interface{}) int {
	symbol = models.NormalizeSymbol(symbol)
	payload, err := json.Marshal(ServerMessage{
		Type:   MessageTypeAnalysis,
		Symbol: symbol,
		Data:   data,
	})
	if err != nil {
		logger.Error("Failed to encode analysis broadcast",
			logger.String("symbol", symbol),
			logger.ErrorField(err),
		)
		return 0
	}

	sent, dropped := 0, 0
	for _, conn := range h.registry.Subscribers(symbol) {
		if err := conn.enqueue(payload); err != nil {
			dropped++
			logger.Debug("Dropped analysis update",
				logger.String("connection_id", conn.ID),
				logger.ErrorField(err),
			)
			continue
		}
		sent++
	}

	h.statsMu.Lock()
	h.stats.Broadcasts++
	h.stats.MessagesSent += int64(sent)
	h.stats.MessagesDropped += int64(dropped)
	h.stats.LastBroadcastTime = time.Now()
	h.statsMu.Unlock()

	logger.Debug("Broadcast analysis",
		logger.String("symbol", symbol),
		logger.Int("sent", sent),
		logger.Int("dropped", dropped),
	)
	return sent
}

// writePump pumps messages from the hub to the WebSocket connection
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			_ = conn.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(h.config.WriteTimeout))
			return

		case <-conn.Done():
			return

		case message := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadLimit(maxClientMessageBytes)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		return conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			return
		}

		// Any client frame proves liveness
		conn.UpdateLastPong()

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			_ = conn.SendError("invalid_message", "failed to parse message")
			continue
		}

		if err := conn.HandleClientMessage(&clientMsg); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// monitorConnections removes connections that stopped answering pings
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			h.removeStale(time.Now())
		}
	}
}

func (h *Hub) removeStale(now time.Time) int {
	staleThreshold := h.config.ReadTimeout * 2
	removed := 0
	for _, conn := range h.registry.GetAll() {
		lastPong := conn.GetLastPong()
		if now.Sub(lastPong) > staleThreshold {
			logger.Info("Removing stale connection",
				logger.String("connection_id", conn.ID),
				logger.Duration("idle_time", now.Sub(lastPong)),
			)
			h.Unregister(conn)
			removed++
		}
	}
	return removed
}

// ConnectionCount returns the number of registered connections
func (h *Hub) ConnectionCount() int {
	return h.registry.Count()
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	stats := h.stats
	stats.ConnectionsActive = int64(h.registry.Count())
	return stats
}
