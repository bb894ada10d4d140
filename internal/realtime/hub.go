package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/labstack/gommon/log"

	"dialdesk/internal/model"
)

// TokenValidator checks a login token and returns the principal behind
// it. Implemented by the auth service.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*model.UserIdentity, error)
}

// ValidatorFunc adapts a plain function to TokenValidator, the way
// http.HandlerFunc adapts handlers. main uses it to hand the hub an auth
// service that is constructed after the hub itself.
type ValidatorFunc func(ctx context.Context, token string) (*model.UserIdentity, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, token string) (*model.UserIdentity, error) {
	return f(ctx, token)
}

// Sender is the write side of one realtime connection. The hub never
// touches the transport beyond this.
type Sender interface {
	WriteText(data []byte) error
	Close() error
}

// Client is one websocket connection tracked by the hub. identity stays
// nil, and the client stays invisible to broadcasts, until the auth
// handshake succeeds.
type Client struct {
	send     Sender
	identity *model.UserIdentity // guarded by Hub.mu
}

// Hub keeps the registry of live, authenticated realtime connections and
// fans events out to them. A user may hold several connections at once
// (desk app and softphone); each registers separately.
type Hub struct {
	validator TokenValidator
	logger    *log.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub builds an empty hub around the given token validator.
func NewHub(validator TokenValidator) *Hub {
	return &Hub{
		validator: validator,
		logger:    log.New("realtime"),
		clients:   make(map[*Client]struct{}),
	}
}

// NewClient wraps a freshly upgraded connection. It consumes no hub slot
// until its handshake succeeds.
func (h *Hub) NewClient(send Sender) *Client {
	return &Client{send: send}
}

// HandleMessage processes one text frame from a connection. Only the auth
// handshake is consumed; malformed frames, unknown types, and frames from
// unregistered connections are dropped without state changes.
func (h *Hub) HandleMessage(client *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Type != MessageTypeAuth {
		return
	}

	identity, err := h.validator.Validate(context.Background(), msg.Token)
	if err != nil {
		h.sendEvent(client, AuthError())
		return
	}

	h.mu.Lock()
	client.identity = identity
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Infof("registered user=%d ext=%s connections=%d", identity.ID, identity.Extension, total)
	h.sendEvent(client, AuthSuccess(identity))
}

// Drop removes a connection from the registry. Safe to call for
// connections that never authenticated.
func (h *Hub) Drop(client *Client) {
	h.mu.Lock()
	identity := client.identity
	delete(h.clients, client)
	h.mu.Unlock()

	if identity != nil {
		h.logger.Infof("dropped user=%d ext=%s", identity.ID, identity.Extension)
	}
}

// BroadcastToAll pushes an event to every registered connection.
func (h *Hub) BroadcastToAll(event Event) {
	h.broadcast(event, nil)
}

// BroadcastToRoles pushes an event only to connections whose user holds
// one of the given roles.
func (h *Hub) BroadcastToRoles(event Event, roles ...model.UserRole) {
	allowed := make(map[model.UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	h.broadcast(event, allowed)
}

func (h *Hub) broadcast(event Event, allowed map[model.UserRole]bool) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("marshal %s event: %v", event.Type, err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if allowed != nil && !allowed[client.identity.Role] {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	// Best effort: a failed write means the connection is dying and its
	// close handler will reap it.
	for _, client := range targets {
		if err := client.send.WriteText(data); err != nil {
			h.logger.Warnf("write %s event: %v", event.Type, err)
		}
	}
}

func (h *Hub) sendEvent(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Errorf("marshal %s event: %v", event.Type, err)
		return
	}
	if err := client.send.WriteText(data); err != nil {
		h.logger.Warnf("write %s event: %v", event.Type, err)
	}
}

// ConnectedUserIDs returns the distinct users with at least one
// registered connection, ascending, so dial plans come out stable.
func (h *Hub) ConnectedUserIDs() []uint {
	h.mu.RLock()
	seen := make(map[uint]bool, len(h.clients))
	for client := range h.clients {
		seen[client.identity.ID] = true
	}
	h.mu.RUnlock()

	ids := make([]uint, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConnectionCount returns how many registered connections are live.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
