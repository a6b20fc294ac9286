package wsgateway

import (
	"encoding/json"
	"fmt"

	"github.com/mohamedkhairy/nse-analytics/internal/models"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Client -> server
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePing        MessageType = "ping"

	// Server -> client
	MessageTypePong     MessageType = "pong"
	MessageTypeAnalysis MessageType = "analysis"
	MessageTypeSuccess  MessageType = "success"
	MessageTypeError    MessageType = "error"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type    string          `json:"type"`
	Symbol  string          `json:"symbol,omitempty"`
	Symbols []string        `json:"symbols,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerMessage represents a message to the client
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Symbol  string      `json:"symbol,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleClientMessage handles a message from the client
func (c *Connection) HandleClientMessage(msg *ClientMessage) error {
	switch MessageType(msg.Type) {
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		symbols, err := messageSymbols(msg)
		if err != nil {
			return c.SendError("invalid_request", err.Error())
		}

		action := "subscribed"
		for _, symbol := range symbols {
			if MessageType(msg.Type) == MessageTypeSubscribe {
				c.Subscribe(symbol)
			} else {
				c.Unsubscribe(symbol)
			}
		}
		if MessageType(msg.Type) == MessageTypeUnsubscribe {
			action = "unsubscribed"
		}

		logger.Debug("Client subscriptions changed",
			logger.String("connection_id", c.ID),
			logger.String("action", action),
			logger.Strings("symbols", symbols),
		)
		return c.SendSuccess(action, map[string]interface{}{"symbols": symbols})

	case MessageTypePing:
		return c.SendMessage(ServerMessage{Type: MessageTypePong})

	default:
		return c.SendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// messageSymbols collects and validates the symbol/symbols fields
func messageSymbols(msg *ClientMessage) ([]string, error) {
	raw := msg.Symbols
	if msg.Symbol != "" {
		raw = append([]string{msg.Symbol}, raw...)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("symbol or symbols field required")
	}

	symbols := make([]string, 0, len(raw))
	for _, s := range raw {
		if err := models.ValidateSymbol(s); err != nil {
			return nil, fmt.Errorf("invalid symbol: %q", s)
		}
		symbols = append(symbols, models.NormalizeSymbol(s))
	}
	return symbols, nil
}

// SendSuccess sends a success message to the client
func (c *Connection) SendSuccess(action string, data interface{}) error {
	return c.SendMessage(ServerMessage{
		Type: MessageTypeSuccess,
		Data: map[string]interface{}{
			"action": action,
			"data":   data,
		},
	})
}
