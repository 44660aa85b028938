package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/contest-engine/internal/metrics"
	"github.com/terra-clan/contest-engine/internal/models"
)

const (
	// HistoryLimit is how many messages History returns
	HistoryLimit = 100
	// MaxMessageLength bounds a single chat message in bytes
	MaxMessageLength = 2000
)

// Frame types
const (
	FrameConnected   = "connected"
	FrameSendMessage = "sendMessage"
	FrameNewMessage  = "newMessage"
	FrameError       = "error"
)

var ErrEmptyMessage = errors.New("message is empty")
var ErrMessageTooLong = errors.New("message is too long")

// Frame is the JSON envelope exchanged over the websocket
type Frame struct {
	Type    string              `json:"type"`
	Message string              `json:"message,omitempty"`
	Data    *models.ChatMessage `json:"data,omitempty"`
}

// Store persists chat messages
type Store interface {
	CreateChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error)
}

// Hub tracks the clients connected to this instance
type Hub struct {
	store       Store
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	now         func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub. m may be nil.
func NewHub(store Store, broadcaster Broadcaster, m *metrics.Metrics) *Hub {
	return &Hub{
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
		clients:     make(map[*Client]struct{}),
	}
}

// Start subscribes the hub to the broadcaster until ctx is done
func (h *Hub) Start(ctx context.Context) error {
	if err := h.broadcaster.Subscribe(ctx, h.deliver); err != nil {
		return fmt.Errorf("failed to start chat hub: %w", err)
	}
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.ChatConnected()
	slog.Debug("chat client connected", "user_id", c.user.ID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		h.metrics.ChatDisconnected()
		slog.Debug("chat client disconnected", "user_id", c.user.ID)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Post stores a message from sender and publishes it to every hub
func (h *Hub) Post(ctx context.Context, sender *models.User, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if len(text) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &models.ChatMessage{
		ID:         uuid.New().String(),
		SenderID:   sender.ID,
		SenderName: sender.Name,
		SenderRole: sender.Role,
		Message:    text,
		CreatedAt:  h.now(),
	}

	if err := h.store.CreateChatMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	if err := h.broadcaster.Publish(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// History returns the latest messages, oldest first
func (h *Hub) History(ctx context.Context) ([]*models.ChatMessage, error) {
	msgs, err := h.store.ListChatMessages(ctx, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

func (h *Hub) deliver(msg *models.ChatMessage) {
	payload, err := json.Marshal(Frame{Type: FrameNewMessage, Data: msg})
	if err != nil {
		slog.Error("failed to marshal chat frame", "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			slog.Warn("dropping slow chat client", "user_id", c.user.ID)
			c.close()
		}
	}
}
