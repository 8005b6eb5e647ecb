package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/room"
	"github.com/unotable/uno-server-go/internal/session"
	"github.com/unotable/uno-server-go/internal/user"
	"go.uber.org/zap"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
	maxRequestBody         = 1 << 16
)

// API serves the HTTP side of the server: the WebSocket endpoint, health,
// and a small JSON API for the lobby and accounts.
type API struct {
	dispatcher *Dispatcher
	hub        *Hub
	rooms      *room.Manager
	sessions   session.Manager
	users      user.Manager
	logger     *zap.Logger
}

// NewAPI creates the HTTP API.
func NewAPI(dispatcher *Dispatcher, hub *Hub, rooms *room.Manager, sessions session.Manager, users user.Manager, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		dispatcher: dispatcher,
		hub:        hub,
		rooms:      rooms,
		sessions:   sessions,
		users:      users,
		logger:     logger.Named("http"),
	}
}

// Router returns the routes without middleware.
func (a *API) Router(wsPath string) *mux.Router {
	if wsPath == "" {
		wsPath = "/ws"
	}
	r := mux.NewRouter()
	r.Path(wsPath).HandlerFunc(a.dispatcher.ServeWS)
	r.Path("/healthz").Methods(http.MethodGet).HandlerFunc(a.handleHealth)

	api := r.PathPrefix("/api").Subrouter()
	api.Path("/rooms").Methods(http.MethodGet).HandlerFunc(a.handleListRooms)
	api.Path("/rooms/{id}").Methods(http.MethodGet).HandlerFunc(a.handleGetRoom)
	api.Path("/register").Methods(http.MethodPost).HandlerFunc(a.handleRegister)
	api.Path("/login").Methods(http.MethodPost).HandlerFunc(a.handleLogin)
	api.Path("/stats/{username}").Methods(http.MethodGet).HandlerFunc(a.handleStats)
	api.Path("/leaderboard").Methods(http.MethodGet).HandlerFunc(a.handleLeaderboard)
	return r
}

// Handler wraps the router with recovery, access logging and CORS.
func (a *API) Handler(cfg config.WebSocketConfig) http.Handler {
	stdLog := zap.NewStdLog(a.logger)

	var h http.Handler = a.Router(cfg.Path)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdLog),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CombinedLoggingHandler(stdLog.Writer(), h)

	corsOpts := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsOpts = append(corsOpts, handlers.AllowedOrigins(cfg.AllowedOrigins))
	}
	return handlers.CORS(corsOpts...)(h)
}

// NewHTTPServer builds the listener-side server for handler.
func NewHTTPServer(cfg config.WebSocketConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"clients":  a.hub.ClientCount(),
		"rooms":    a.rooms.Count(),
		"sessions": a.sessions.GetActiveSessions(),
	})
}

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request) {
	infos, err := a.rooms.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": infos})
}

func (a *API) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := a.rooms.Get(mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	info, err := rm.Info(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	last, err := rm.LastResult(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": info, "lastResult": last})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	if err := a.users.Register(r.Context(), creds.Username, creds.Password); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"type": TypeRegistered, "username": creds.Username})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	u, err := a.users.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":  u.Name,
		"createdAt": u.CreatedAt,
		"lastLogin": u.LastLogin,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.users.GetStats(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLeaderboardSize)
	}
	board, err := a.users.Leaderboard(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

// fail maps err to a status code and writes it as JSON.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrRoomClosed):
		status = http.StatusNotFound
	case errors.Is(err, user.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, user.ErrInvalidUsername), errors.Is(err, user.ErrInvalidPassword):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, clientError(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
