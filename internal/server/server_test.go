package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/room"
	"github.com/unotable/uno-server-go/internal/session"
	"github.com/unotable/uno-server-go/internal/user"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "hunter22"

type testServer struct {
	hub      *Hub
	rooms    *room.Manager
	sessions session.Manager
	users    user.Manager
	http     *httptest.Server
	wsURL    string
}

func testWebSocketConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		Path:           "/ws",
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   time.Second,
		PingInterval:   2 * time.Second,
		MaxMessageSize: 4096,
		AllowedOrigins: []string{"https://uno.example"},
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, testWebSocketConfig(), time.Minute)
}

// newTestServerWith runs the session sweeper as well, so short leases expire.
func newTestServerWith(t *testing.T, wsCfg config.WebSocketConfig, lease time.Duration) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger)
	go hub.Run(ctx)

	store := user.NewMemoryStore()
	users := user.NewManager(store, store, config.ValidationConfig{
		MinUsernameLength: 3,
		MaxUsernameLength: 20,
		MinPasswordLength: 6,
		BcryptCost:        bcrypt.MinCost,
	}, logger)
	sessions := session.NewManager(lease, 100, logger)
	go sessions.CleanupExpiredSessions(ctx)
	rooms := room.NewManager(config.GameConfig{
		HandSize:           7,
		MinPlayers:         2,
		MaxPlayers:         4,
		InboxSize:          8,
		ReportIllegalPlays: true,
	}, hub, logger, room.WithResultRecorder(users))

	dispatcher := NewDispatcher(hub, rooms, sessions, users, wsCfg, logger)
	sessions.OnExpire(dispatcher.ExpireSession)
	api := NewAPI(dispatcher, hub, rooms, sessions, users, logger)
	srv := httptest.NewServer(api.Handler(wsCfg))

	ts := &testServer{
		hub:      hub,
		rooms:    rooms,
		sessions: sessions,
		users:    users,
		http:     srv,
		wsURL:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
	t.Cleanup(func() {
		// Connections are closed by their own cleanups, which run first.
		require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
		srv.Close()
		rooms.CloseAll()
		cancel()
		<-hub.done
	})
	return ts
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (ts *testServer) dial(t *testing.T) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msg map[string]any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsClient) read() map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// expect reads until a message of msgType arrives.
func (c *wsClient) expect(msgType string) map[string]any {
	c.t.Helper()
	for i := 0; i < 50; i++ {
		msg := c.read()
		if msg["type"] == msgType {
			return msg
		}
	}
	c.t.Fatalf("no %q message within 50 messages", msgType)
	return nil
}

func (c *wsClient) expectError(text string) {
	c.t.Helper()
	msg := c.expect(room.TypeError)
	require.Equal(c.t, text, msg["message"])
}

// login registers name and logs the connection in.
func (c *wsClient) login(name string) {
	c.t.Helper()
	c.send(map[string]any{"type": "register", "username": name, "password": testPassword})
	c.expect(TypeRegistered)
	c.send(map[string]any{"type": "login", "username": name, "password": testPassword})
	msg := c.expect(TypeLoggedIn)
	require.NotEmpty(c.t, msg["sessionId"])
}
