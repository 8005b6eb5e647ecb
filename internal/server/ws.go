package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/game"
	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/room"
	"github.com/unotable/uno-server-go/internal/session"
	"github.com/unotable/uno-server-go/internal/user"
	"go.uber.org/zap"
)

// Inbound message types.
const (
	msgRegister   = "register"
	msgLogin      = "login"
	msgJoin       = "join"
	msgStart      = "start"
	msgGameAction = "gameAction"
	msgLeave      = "leave"
	msgGetState   = "getState"

	actionPlayCard = "playCard"
	actionDrawCard = "drawCard"
)

// Replies that only go to the sender.
const (
	TypeRegistered = "registered"
	TypeLoggedIn   = "loggedIn"
	TypeLeft       = "left"
)

const (
	errInvalidMessageType = "Invalid message type"
	errNotLoggedIn        = "User not logged in"
)

const requestTimeout = 5 * time.Second

// inboundMessage is the union of every field a client may send.
type inboundMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
	RoomID   string `json:"roomId"`
	Action   string `json:"action"`
	CardID   string `json:"cardId"`
	Color    string `json:"color"`
}

// Dispatcher upgrades connections and turns client messages into calls on
// the room, session and user managers.
type Dispatcher struct {
	hub      *Hub
	rooms    *room.Manager
	sessions session.Manager
	users    user.Manager
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. Missing timeouts get the defaults
// from the config package.
func NewDispatcher(hub *Hub, rooms *room.Manager, sessions session.Manager, users user.Manager, cfg config.WebSocketConfig, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout * 9 / 10
	}

	d := &Dispatcher{
		hub:      hub,
		rooms:    rooms,
		sessions: sessions,
		users:    users,
		cfg:      cfg,
		logger:   logger.Named("ws"),
	}
	d.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return d
}

// originChecker allows requests without an Origin header, and any origin
// when the list is empty or contains "*".
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// ServeWS upgrades the request and runs the connection's pumps.
func (d *Dispatcher) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := newClient(d.hub, conn, d.cfg, remoteHost(r), d.logger)
	if !d.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	d.logger.Info("client connected", zap.String("host", client.host))

	go client.writePump()
	go client.readPump(d.handle, d.touch, d.disconnect)
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// touch renews the lease of the connection's session.
func (d *Dispatcher) touch(c *Client) {
	if sid := c.SessionID(); sid != "" {
		d.sessions.UpdateActivity(sid)
	}
}

func (d *Dispatcher) handle(c *Client, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		d.logger.Debug("malformed message", zap.String("host", c.host), zap.Error(err))
		d.hub.reply(c, room.ErrorMessage(errInvalidMessageType))
		return
	}

	d.touch(c)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case msgRegister:
		err = d.handleRegister(ctx, c, msg)
	case msgLogin:
		err = d.handleLogin(ctx, c, msg)
	case msgJoin, msgStart, msgGameAction, msgLeave, msgGetState:
		playerID, ok := d.requireLogin(c)
		if !ok {
			d.hub.reply(c, room.ErrorMessage(errNotLoggedIn))
			return
		}
		err = d.handleRoomMessage(ctx, c, playerID, msg)
	default:
		d.hub.reply(c, room.ErrorMessage(errInvalidMessageType))
		return
	}

	if err != nil {
		text := clientError(err)
		if text == errInternal {
			d.logger.Error("request failed",
				zap.String("type", msg.Type),
				zap.String("player_id", c.PlayerID()),
				zap.Error(err),
			)
		} else {
			d.logger.Debug("request rejected",
				zap.String("type", msg.Type),
				zap.String("player_id", c.PlayerID()),
				zap.Error(err),
			)
		}
		d.hub.reply(c, room.ErrorMessage(text))
	}
}

// requireLogin returns the connection's player if its session is still valid.
func (d *Dispatcher) requireLogin(c *Client) (string, bool) {
	sid := c.SessionID()
	if sid == "" {
		return "", false
	}
	sess, err := d.sessions.Validate(sid)
	if err != nil {
		_, playerID := c.logout()
		d.hub.Unbind(playerID, c)
		return "", false
	}
	return sess.GetUserID(), true
}

func (d *Dispatcher) handleRegister(ctx context.Context, c *Client, msg inboundMessage) error {
	if err := d.users.Register(ctx, msg.Username, msg.Password); err != nil {
		return err
	}
	d.hub.reply(c, room.Message{"type": TypeRegistered, "username": msg.Username})
	return nil
}

func (d *Dispatcher) handleLogin(ctx context.Context, c *Client, msg inboundMessage) error {
	u, err := d.users.Authenticate(ctx, msg.Username, msg.Password)
	if err != nil {
		return err
	}

	if oldSession, oldPlayer := c.logout(); oldSession != "" {
		if oldPlayer == u.Name {
			d.sessions.RemoveSession(oldSession)
		} else {
			d.hub.Unbind(oldPlayer, c)
			d.endSession(ctx, oldSession, oldPlayer)
		}
	}

	sess, err := d.sessions.CreateSession(uuid.NewString(), c.host)
	if err != nil {
		return err
	}
	sess.SetUserID(u.Name)
	c.login(sess.ID, u.Name)

	if previous := d.hub.Bind(u.Name, c); previous != nil {
		if oldSession, _ := previous.logout(); oldSession != "" {
			d.sessions.RemoveSession(oldSession)
		}
		d.hub.reply(previous, room.ErrorMessage("Logged in from another connection"))
	}

	d.logger.Info("user logged in",
		zap.String("username", u.Name),
		zap.String("session_id", sess.ID),
		zap.String("host", c.host),
	)
	d.hub.reply(c, room.Message{"type": TypeLoggedIn, "sessionId": sess.ID, "username": u.Name})

	// A player reconnecting mid-round gets the table again.
	if r, ok := d.rooms.FindByPlayer(u.Name); ok {
		if err := r.SendState(ctx, u.Name); err != nil && !errors.Is(err, room.ErrNoRound) {
			d.logger.Debug("failed to resend state", zap.String("username", u.Name), zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) handleRoomMessage(ctx context.Context, c *Client, playerID string, msg inboundMessage) error {
	if msg.Type == msgJoin {
		r, created, err := d.rooms.Join(ctx, msg.RoomID, playerID)
		if err != nil {
			return err
		}
		if created {
			d.hub.reply(c, room.Message{"type": room.TypeRoom, "roomId": r.ID()})
		}
		return nil
	}

	r, ok := d.rooms.FindByPlayer(playerID)
	if !ok || (msg.RoomID != "" && msg.RoomID != r.ID()) {
		return room.ErrNotMember
	}

	switch msg.Type {
	case msgStart:
		return r.Start(ctx, playerID)
	case msgGetState:
		return r.SendState(ctx, playerID)
	case msgLeave:
		if err := d.rooms.Leave(ctx, playerID); err != nil {
			return err
		}
		d.hub.reply(c, room.Message{"type": TypeLeft, "roomId": r.ID()})
		return nil
	}

	switch msg.Action {
	case actionPlayCard:
		color, err := cards.ParseColor(msg.Color)
		if err != nil {
			return errInvalidColor
		}
		return r.PlayCard(ctx, playerID, msg.CardID, color)
	case actionDrawCard:
		return r.DrawCard(ctx, playerID)
	default:
		return errInvalidAction
	}
}

// disconnect runs when a connection's read loop ends.
func (d *Dispatcher) disconnect(c *Client) {
	sessionID, playerID := c.logout()
	d.logger.Info("client disconnected", zap.String("host", c.host), zap.String("player_id", playerID))
	if sessionID == "" {
		return
	}
	d.hub.Unbind(playerID, c)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	// A newer connection of the same player keeps the seat.
	if d.hub.Connected(playerID) {
		d.sessions.RemoveSession(sessionID)
		return
	}
	d.endSession(ctx, sessionID, playerID)
}

// ExpireSession takes the player of a lapsed session out of their room.
// It is registered as the session manager's expiry callback.
func (d *Dispatcher) ExpireSession(sess *session.Session) {
	playerID := sess.GetUserID()
	if playerID == "" {
		return
	}
	d.logger.Info("session expired", zap.String("session_id", sess.ID), zap.String("player_id", playerID))
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	d.leaveRoom(ctx, playerID)
}

func (d *Dispatcher) endSession(ctx context.Context, sessionID, playerID string) {
	d.sessions.RemoveSession(sessionID)
	d.leaveRoom(ctx, playerID)
}

func (d *Dispatcher) leaveRoom(ctx context.Context, playerID string) {
	if err := d.rooms.Leave(ctx, playerID); err != nil && !errors.Is(err, room.ErrNotMember) {
		d.logger.Warn("failed to leave room", zap.String("player_id", playerID), zap.Error(err))
	}
}

var (
	errInvalidColor  = errors.New("invalid color")
	errInvalidAction = errors.New("invalid game action")
)

const errInternal = "Internal server error"

// clientError turns an error into the text sent to the client.
func clientError(err error) string {
	switch {
	case errors.Is(err, errInvalidAction):
		return errInvalidMessageType
	case errors.Is(err, errInvalidColor):
		return "Invalid color"
	case errors.Is(err, room.ErrRoundInProgress):
		return "Game already started"
	case errors.Is(err, room.ErrAlreadyInRoom):
		return "User already in a room"
	case errors.Is(err, room.ErrRoomFull):
		return "Room is full"
	case errors.Is(err, room.ErrNotHost):
		return "Only the host can start the game"
	case errors.Is(err, room.ErrNotMember):
		return "Not in a room"
	case errors.Is(err, room.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, room.ErrNoRound):
		return "No game in progress"
	case errors.Is(err, room.ErrRoomClosed):
		return "Room closed"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "Not enough players"
	case errors.Is(err, game.ErrTooManyPlayers):
		return "Too many players"
	case errors.Is(err, user.ErrUserExists):
		return "User already exists"
	case errors.Is(err, user.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, user.ErrInvalidUsername):
		return "Invalid username"
	case errors.Is(err, user.ErrInvalidPassword):
		return "Invalid password"
	case errors.Is(err, session.ErrTooManySessions):
		return "Server is full"
	case errors.Is(err, context.DeadlineExceeded):
		return "Server busy, try again"
	default:
		return errInternal
	}
}
