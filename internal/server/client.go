package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/unotable/uno-server-go/internal/config"
	"go.uber.org/zap"
)

const sendBufferSize = 256

// Client is one WebSocket connection. It reads frames on readPump and
// writes everything queued on send from writePump.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	cfg    config.WebSocketConfig
	host   string
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
	playerID  string
}

func newClient(hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig, host string, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		cfg:    cfg,
		host:   host,
		logger: logger,
	}
}

// PlayerID returns the logged in player, or "".
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// SessionID returns the session bound to the connection, or "".
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) login(sessionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.playerID = playerID
}

func (c *Client) logout() (sessionID, playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sessionID, playerID = c.sessionID, c.playerID
	c.sessionID, c.playerID = "", ""
	return sessionID, playerID
}

// enqueue must be called with the hub's lock held so send cannot be closed
// underneath it.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump feeds every inbound text frame to handle until the connection
// fails, then unregisters the client and calls onClose. onPong runs for
// every pong, so a quiet but live peer still counts as active.
func (c *Client) readPump(handle func(*Client, []byte), onPong, onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		onPong(c)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.String("host", c.host), zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		handle(c, message)
	}
}

// writePump drains send and pings the peer every PingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
