package room

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/game"
	"go.uber.org/zap"
)

// Manager owns every room and knows which room each player is in.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byPlayer map[string]string // playerID -> roomID

	cfg      config.GameConfig
	sender   Sender
	recorder ResultRecorder
	replays  *game.ReplayRecorder
	rand     *rand.Rand
	logger   *zap.Logger
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithResultRecorder stores the result of every finished round.
func WithResultRecorder(rec ResultRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = rec }
}

// WithReplayRecorder records replays for every room.
func WithReplayRecorder(rec *game.ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.replays = rec }
}

// WithShuffleSource makes every room shuffle from rnd. *rand.Rand is not
// safe for concurrent use, so only use this with a single room.
func WithShuffleSource(rnd *rand.Rand) ManagerOption {
	return func(m *Manager) { m.rand = rnd }
}

// NewManager creates a room manager.
func NewManager(cfg config.GameConfig, sender Sender, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		rooms:    make(map[string]*Room),
		byPlayer: make(map[string]string),
		cfg:      cfg,
		sender:   sender,
		logger:   logger.Named("room"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create makes a new empty room.
func (m *Manager) Create() *Room {
	id := uuid.NewString()
	opts := []Option{WithOnEmpty(m.remove)}
	if m.recorder != nil {
		opts = append(opts, WithRecorder(m.recorder))
	}
	if m.replays != nil {
		opts = append(opts, WithReplays(m.replays))
	}
	if m.rand != nil {
		opts = append(opts, WithRand(m.rand))
	}
	r := New(id, m.cfg, m.sender, m.logger, opts...)

	m.mu.Lock()
	m.rooms[id] = r
	m.mu.Unlock()

	m.logger.Info("room created", zap.String("room_id", id))
	return r
}

// Get returns a room by ID.
func (m *Manager) Get(roomID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// FindByPlayer returns the room the player is in.
func (m *Manager) FindByPlayer(playerID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[roomID]
	return r, ok
}

// Join puts the player in the room with roomID. An empty or unknown ID
// creates a new room with the player as its host; created reports that.
func (m *Manager) Join(ctx context.Context, roomID, playerID string) (r *Room, created bool, err error) {
	m.mu.Lock()
	if current, ok := m.byPlayer[playerID]; ok {
		m.mu.Unlock()
		if current == roomID {
			r, err := m.Get(current)
			return r, false, err
		}
		return nil, false, ErrAlreadyInRoom
	}
	// Claim the seat before talking to the room so a second join for the
	// same player fails fast.
	m.byPlayer[playerID] = roomID
	r, ok := m.rooms[roomID]
	m.mu.Unlock()

	if !ok {
		r = m.Create()
		created = true
	}

	if err := r.Join(ctx, playerID); err != nil {
		m.mu.Lock()
		delete(m.byPlayer, playerID)
		m.mu.Unlock()
		if created {
			r.Close()
			m.remove(r.ID())
		}
		return nil, false, err
	}

	m.mu.Lock()
	m.byPlayer[playerID] = r.ID()
	m.mu.Unlock()
	return r, created, nil
}

// Leave takes the player out of their room.
func (m *Manager) Leave(ctx context.Context, playerID string) error {
	r, ok := m.FindByPlayer(playerID)
	if !ok {
		return ErrNotMember
	}

	m.mu.Lock()
	delete(m.byPlayer, playerID)
	m.mu.Unlock()

	if err := r.Leave(ctx, playerID); err != nil && !errors.Is(err, ErrRoomClosed) {
		return err
	}
	return nil
}

// remove forgets a room and its members. It runs on the room goroutine
// of an emptied room, so it must not call back into the room.
func (m *Manager) remove(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[roomID]; !ok {
		return
	}
	delete(m.rooms, roomID)
	for player, id := range m.byPlayer {
		if id == roomID {
			delete(m.byPlayer, player)
		}
	}
	m.logger.Info("room removed", zap.String("room_id", roomID))
}

// List describes every room, ordered by creation time.
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		info, err := r.Info(ctx)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos, nil
}

// Count returns the number of open rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// CloseAll stops every room.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = make(map[string]*Room)
	m.byPlayer = make(map[string]string)
	m.mu.Unlock()

	for _, r := range rooms {
		r.Close()
	}
	m.logger.Info("closed all rooms", zap.Int("count", len(rooms)))
}
