// Package realtime pushes application events to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/example/wavemeet/internal/application"
	"github.com/example/wavemeet/internal/logging"
)

const defaultSendBuffer = 32

// Hub keeps the live connections of every user and fans events out to them.
// It implements application.Notifier.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	sendBuffer int
	logger     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		sendBuffer: defaultSendBuffer,
		logger:     logger.With("component", "realtime"),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	count := len(conns)
	h.mu.Unlock()

	h.logger.Info("client connected", "user_id", c.userID, "connections", count)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	count := len(h.clients[c.userID])
	h.mu.Unlock()

	if removed {
		h.logger.Info("client disconnected", "user_id", c.userID, "connections", count)
	}
}

// removeLocked drops c and closes its send channel. Callers hold h.mu.
func (h *Hub) removeLocked(c *Client) bool {
	conns, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	return true
}

// NotifyUsers delivers event to every connection of every listed user. A client
// whose buffer is full is disconnected rather than blocking the caller.
// Nothing is encoded when none of the users is connected.
func (h *Hub) NotifyUsers(ctx context.Context, userIDs []string, event application.Event) {
	if !h.anyOnline(userIDs) {
		return
	}
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = h.logger
	}

	message, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode event", "event_type", event.Type, "error", err)
		return
	}

	var dropped []*Client
	delivered := 0

	h.mu.RLock()
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		for c := range h.clients[userID] {
			select {
			case c.send <- message:
				delivered++
			default:
				dropped = append(dropped, c)
			}
		}
	}
	h.mu.RUnlock()

	if len(dropped) > 0 {
		h.mu.Lock()
		for _, c := range dropped {
			h.removeLocked(c)
		}
		h.mu.Unlock()
		logger.WarnContext(ctx, "dropped slow clients", "event_type", event.Type, "count", len(dropped))
	}
	logger.DebugContext(ctx, "event dispatched", "event_type", event.Type, "recipients", len(seen), "deliveries", delivered)
}

func (h *Hub) connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// anyOnline reports whether at least one of userIDs has a live connection.
func (h *Hub) anyOnline(userIDs []string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		if len(h.clients[userID]) > 0 {
			return true
		}
	}
	return false
}
