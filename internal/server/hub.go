package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/unotable/uno-server-go/internal/room"
	"go.uber.org/zap"
)

// Hub maintains the set of active clients and routes room messages to the
// connection a player is logged in on.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	players map[string]*Client // playerID -> client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub creates an empty hub. Run must be started before clients connect.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		players:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
}

// Run processes registrations until ctx is cancelled, then disconnects
// every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("host", client.host), zap.Int("clients", count))

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.players = make(map[string]*Client)
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return nil
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if id := client.PlayerID(); id != "" && h.players[id] == client {
		delete(h.players, id)
	}
	close(client.send)
	h.logger.Debug("client unregistered", zap.String("host", client.host), zap.Int("clients", len(h.clients)))
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Bind routes messages for playerID to client. A previous connection of the
// same player stops receiving them and is returned.
func (h *Hub) Bind(playerID string, client *Client) (previous *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	previous = h.players[playerID]
	if previous == client {
		previous = nil
	}
	h.players[playerID] = client
	return previous
}

// Unbind stops routing playerID to client. A newer connection of the same
// player is left alone.
func (h *Hub) Unbind(playerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.players[playerID] == client {
		delete(h.players, playerID)
	}
}

// Connected reports whether playerID has a live connection.
func (h *Hub) Connected(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.players[playerID]
	return ok
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send delivers msg to the player's connection. It never blocks; a client
// whose buffer is full misses the message.
func (h *Hub) Send(playerID string, msg room.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type()), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.players[playerID]
	if !ok {
		return
	}
	if !client.enqueue(data) {
		h.logger.Warn("client send buffer full, dropping message",
			zap.String("player_id", playerID),
			zap.String("type", msg.Type()),
		)
	}
}

// reply sends msg straight to one client, logged in or not.
func (h *Hub) reply(client *Client, msg room.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type()), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	if !client.enqueue(data) {
		h.logger.Warn("client send buffer full, dropping reply",
			zap.String("host", client.host),
			zap.String("type", msg.Type()),
		)
	}
}

var _ room.Sender = (*Hub)(nil)
