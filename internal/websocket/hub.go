// internal/websocket/hub.go
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"secureauth-service/internal/domain/security"
)

// MessageType names the push channels clients can receive on.
type MessageType string

const (
	TypeSecurityEvent  MessageType = "security:event"
	TypeStorageChanged MessageType = "storage:changed"
	TypeForceLogout    MessageType = "session:force_logout"
	TypeNotification   MessageType = "ui:notification"
)

// Message is the wire envelope for pushed events.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub fans events out to connected clients: security audit entries,
// storage-change notifications (so other sessions can resync from the
// credential store) and forced logouts.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		logger:     logger,
	}
}

// Run processes registration and broadcast until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case msg := <-h.broadcast:
			raw, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal push message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- raw:
				default: // slow client, drop the message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// PublishEvent pushes a security audit entry to every client. Satisfies
// audit.Publisher.
func (h *Hub) PublishEvent(event *security.Event) {
	h.push(&Message{Type: TypeSecurityEvent, Data: event, Timestamp: time.Now()})
}

// PublishStorageChange tells clients a credential-store key changed so
// they can resync their in-memory state.
func (h *Hub) PublishStorageChange(key string) {
	h.push(&Message{Type: TypeStorageChanged, Data: map[string]string{"key": key}, Timestamp: time.Now()})
}

// PublishNotification pushes a transient user-facing message (the toast
// channel).
func (h *Hub) PublishNotification(level, message string) {
	h.push(&Message{
		Type:      TypeNotification,
		Data:      map[string]string{"level": level, "message": message},
		Timestamp: time.Now(),
	})
}

// ForceLogout tells clients their session has ended.
func (h *Hub) ForceLogout(reason string) {
	h.push(&Message{Type: TypeForceLogout, Data: map[string]string{"reason": reason}, Timestamp: time.Now()})
}

func (h *Hub) push(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("push buffer full, dropping message", zap.String("type", string(msg.Type)))
	}
}
