package http

import (
	"context"
	"fmt"
	"sync"

	"mock-test-service/internal/app"
	"mock-test-service/internal/domain"
)

// Hub tracks live websocket clients and implements app.Messenger for them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	userID  int64
	channel string
	send    chan outboundMessage[any]
}

type messagePayload struct {
	Text    string `json:"text"`
	Format  string `json:"format,omitempty"`
	Channel string `json:"channel,omitempty"`
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// unregister must happen before c.send is closed.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// SendPersonal fails when the recipient has no live connection or every
// connection's buffer is full.
func (h *Hub) SendPersonal(_ context.Context, recipientID int64, text string) error {
	msg := outboundMessage[any]{Type: "message", Payload: messagePayload{Text: text}}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := false
	for c := range h.clients {
		if c.userID == recipientID && c.trySend(msg) {
			delivered = true
		}
	}
	if !delivered {
		return fmt.Errorf("%w: user %d is not connected", domain.ErrDelivery, recipientID)
	}
	return nil
}

// SendChannel broadcasts to every client subscribed to channelID. Slow
// subscribers miss the message; it fails only when nobody received it.
func (h *Hub) SendChannel(_ context.Context, channelID string, text string, format app.Format) error {
	msg := outboundMessage[any]{Type: "message", Payload: messagePayload{
		Text:    text,
		Format:  string(format),
		Channel: channelID,
	}}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients {
		if c.channel == channelID && c.trySend(msg) {
			delivered++
		}
	}
	if delivered == 0 {
		return fmt.Errorf("%w: no live subscriber on %s", domain.ErrDelivery, channelID)
	}
	return nil
}

func (c *client) trySend(msg outboundMessage[any]) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
