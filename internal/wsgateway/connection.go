package wsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohamedkhairy/nse-analytics/internal/models"
)

// ErrSendBufferFull is returned when a slow client's queue is full
var ErrSendBufferFull = errors.New("send buffer full")

// ErrConnectionClosed is returned when sending on a closed connection
var ErrConnectionClosed = errors.New("connection closed")

const sendBufferSize = 256

// Connection represents a WebSocket connection with a client
type Connection struct {
	ID            string
	RemoteAddr    string
	Conn          *websocket.Conn
	Send          chan []byte
	Subscriptions map[string]bool // symbol -> subscribed
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	closeOnce     sync.Once
	lastPong      time.Time
	createdAt     time.Time
}

// NewConnection creates a new WebSocket connection
func NewConnection(id string, remoteAddr string, conn *websocket.Conn) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		ID:            id,
		RemoteAddr:    remoteAddr,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		Subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
		createdAt:     time.Now(),
		lastPong:      time.Now(),
	}
}

// Subscribe subscribes to analysis updates for a symbol
func (c *Connection) Subscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Subscriptions[models.NormalizeSymbol(symbol)] = true
}

// Unsubscribe unsubscribes from analysis updates for a symbol
func (c *Connection) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Subscriptions, models.NormalizeSymbol(symbol))
}

// IsSubscribed checks if the connection is subscribed to a symbol
func (c *Connection) IsSubscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Subscriptions[models.NormalizeSymbol(symbol)]
}

// SubscribedSymbols returns the current subscriptions
func (c *Connection) SubscribedSymbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	symbols := make([]string, 0, len(c.Subscriptions))
	for symbol := range c.Subscriptions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// ShouldReceive reports whether updates for symbol go to this connection.
// A connection without subscriptions receives every symbol.
func (c *Connection) ShouldReceive(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.Subscriptions) == 0 {
		return true
	}
	return c.Subscriptions[models.NormalizeSymbol(symbol)]
}

// UpdateLastPong updates the last pong time
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPong = time.Now()
}

// GetLastPong returns the last pong time
func (c *Connection) GetLastPong() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPong
}

// Close stops the connection's pumps and closes the socket. Safe to call
// more than once. Send is never closed, so late enqueues cannot panic.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// enqueue queues a frame for the write pump without blocking
func (c *Connection) enqueue(data []byte) error {
	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendMessage queues a server message
func (c *Connection) SendMessage(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// SendError sends an error message to the connection
func (c *Connection) SendError(code string, message string) error {
	return c.SendMessage(ServerMessage{
		Type:    MessageTypeError,
		Code:    code,
		Message: message,
	})
}
