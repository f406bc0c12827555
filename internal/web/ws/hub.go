// Package ws pushes per-session notifications to browser tabs over websockets.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeToast         = "toast"
	TypeJobsChanged   = "jobs.changed"
	TypeSessionClosed = "session.closed"
)

// Message is pushed to every connection of a session. A toast message with a nil
// Toast means the notification was cleared.
type Message struct {
	Type  string               `json:"type"`
	Toast *domain.ToastMessage `json:"toast,omitempty"`
}

type envelope struct {
	token   string
	payload []byte
	close   bool
}

// Hub tracks live connections per session token. Its state is owned by the Run
// goroutine; other goroutines talk to it through channels.
type Hub struct {
	logger *slog.Logger

	register   chan *Client
	unregister chan *Client
	outbound   chan envelope
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan envelope, 64),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for token, set := range h.clients {
				for c := range set {
					close(c.send)
				}
				delete(h.clients, token)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.token]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.token] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client connected", slog.Int("total_clients", h.Count()))

		case c := <-h.unregister:
			h.remove(c)
			h.logger.Debug("WebSocket client disconnected", slog.Int("total_clients", h.Count()))

		case env := <-h.outbound:
			h.deliver(env)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.token]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.token)
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	var slow []*Client
	if env.payload != nil {
		for c := range h.clients[env.token] {
			select {
			case c.send <- env.payload:
			default:
				slow = append(slow, c)
			}
		}
	}
	var closing []*Client
	if env.close {
		for c := range h.clients[env.token] {
			closing = append(closing, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range append(slow, closing...) {
		h.remove(c)
	}
	if len(slow) > 0 {
		h.logger.Warn("Dropped slow WebSocket clients", slog.Int("count", len(slow)))
	}
}

// Send pushes msg to every connection of the session
func (h *Hub) Send(token string, msg Message) {
	payload, err := h.encode(msg)
	if err != nil {
		return
	}
	h.enqueue(envelope{token: token, payload: payload})
}

// CloseSession tells the session's connections it ended and disconnects them.
// The connections are closed even when the notice cannot be encoded.
func (h *Hub) CloseSession(token string) {
	payload, _ := h.encode(Message{Type: TypeSessionClosed})
	h.enqueue(envelope{token: token, payload: payload, close: true})
}

func (h *Hub) encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message",
			slog.String("type", msg.Type),
			slog.Any("error", err),
		)
		return nil, err
	}
	return payload, nil
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.outbound <- env:
	case <-h.done:
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Attach registers conn for the session and starts its pumps. initial, when not
// nil, is the first message the connection receives.
func (h *Hub) Attach(conn *websocket.Conn, token string, initial *Message) {
	c := newClient(h, conn, token)

	if initial != nil {
		if payload, err := h.encode(*initial); err == nil {
			c.send <- payload
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
