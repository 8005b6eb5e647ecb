package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/game"
	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/rules"
	"github.com/unotable/uno-server-go/internal/match"
	"go.uber.org/zap"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room closed")
	ErrAlreadyInRoom   = errors.New("player already in a room")
	ErrNotMember       = errors.New("player not in this room")
	ErrNotHost         = errors.New("only the host can start the game")
	ErrRoundInProgress = errors.New("game already started")
	ErrNoRound         = errors.New("no game in progress")
	ErrRoomFull        = errors.New("room is full")
)

// ResultRecorder stores the outcome of a finished round.
type ResultRecorder interface {
	RecordRoundResult(ctx context.Context, result *game.Result) error
}

// Info describes a room for listings.
type Info struct {
	ID        string          `json:"id"`
	HostID    string          `json:"hostId"`
	Members   []string        `json:"members"`
	State     string          `json:"state"`
	RoundID   string          `json:"roundId,omitempty"`
	Match     *match.Snapshot `json:"match,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type command struct {
	fn    func() error
	reply chan error
}

// Room is a table of players that plays one round at a time. All of its
// state, including the round, is owned by a single goroutine; the exported
// methods queue a command on the room's inbox and wait for the result.
type Room struct {
	id        string
	createdAt time.Time
	cfg       config.GameConfig
	logger    *zap.Logger
	sender    Sender
	recorder  ResultRecorder
	replays   *game.ReplayRecorder
	rand      *rand.Rand
	onEmpty   func(roomID string)

	inbox    chan command
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	// Owned by the loop goroutine.
	members  []string
	round    *game.Round
	finished *game.Result
	match    *match.Match
}

// Option customises a room.
type Option func(*Room)

// WithRecorder stores finished rounds.
func WithRecorder(rec ResultRecorder) Option {
	return func(r *Room) { r.recorder = rec }
}

// WithReplays records a replay of every round.
func WithReplays(rec *game.ReplayRecorder) Option {
	return func(r *Room) { r.replays = rec }
}

// WithRand makes shuffles deterministic.
func WithRand(rnd *rand.Rand) Option {
	return func(r *Room) { r.rand = rnd }
}

// WithOnEmpty registers a callback run from the room goroutine when the
// last member leaves and the room shuts down.
func WithOnEmpty(fn func(roomID string)) Option {
	return func(r *Room) { r.onEmpty = fn }
}

// New creates a room and starts its goroutine.
func New(id string, cfg config.GameConfig, sender Sender, logger *zap.Logger, opts ...Option) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = 64
	}
	r := &Room{
		id:        id,
		createdAt: time.Now(),
		cfg:       cfg,
		logger:    logger.With(zap.String("room_id", id)),
		sender:    sender,
		inbox:     make(chan command, inboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.TargetScore > 0 {
		r.match = match.New(id, cfg.TargetScore)
	}
	go r.loop()
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		default:
		}
		select {
		case <-r.quit:
			return
		case cmd := <-r.inbox:
			cmd.reply <- r.run(cmd.fn)
		}
	}
}

func (r *Room) run(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic in room command", zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("internal error in room %s", r.id)
		}
	}()
	return fn()
}

// do runs fn on the room goroutine and waits for it.
func (r *Room) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case r.inbox <- command{fn: fn, reply: reply}:
	case <-r.quit:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the room goroutine. Queued commands fail with ErrRoomClosed.
func (r *Room) Close() {
	r.quitOnce.Do(func() { close(r.quit) })
}

// Join adds a player to the room. Everyone in the room, the joiner
// included, is told.
func (r *Room) Join(ctx context.Context, playerID string) error {
	return r.do(ctx, func() error {
		if r.roundActive() {
			return ErrRoundInProgress
		}
		if slices.Contains(r.members, playerID) {
			return nil
		}
		if limit := r.cfg.MaxPlayers; limit > 0 && len(r.members) >= limit {
			return ErrRoomFull
		}
		r.members = append(r.members, playerID)
		if r.match != nil {
			// A finished match takes no new players; the next Start opens a fresh one.
			if err := r.match.AddPlayer(playerID); err != nil {
				r.logger.Debug("player not added to match", zap.String("player_id", playerID), zap.Error(err))
			}
		}

		r.logger.Info("player joined", zap.String("player_id", playerID), zap.Int("members", len(r.members)))

		msg := newMessage(TypePlayerJoined)
		msg["roomId"] = r.id
		msg["player"] = Message{"id": playerID, "name": playerID}
		msg["players"] = slices.Clone(r.members)
		msg["hostId"] = r.members[0]
		r.broadcast(msg)
		return nil
	})
}

// Leave removes a player. A running round is aborted, the host role passes
// to the next member, and an empty room shuts down.
func (r *Room) Leave(ctx context.Context, playerID string) error {
	return r.do(ctx, func() error {
		idx := slices.Index(r.members, playerID)
		if idx < 0 {
			return ErrNotMember
		}
		if r.roundActive() {
			r.round.Abort(fmt.Sprintf("%s left the room", playerID))
		}
		r.members = slices.Delete(r.members, idx, idx+1)
		if r.match != nil {
			if err := r.match.QuitPlayer(playerID); err != nil {
				r.logger.Debug("player not marked quit in match", zap.String("player_id", playerID), zap.Error(err))
			}
		}

		r.logger.Info("player left", zap.String("player_id", playerID), zap.Int("members", len(r.members)))

		if len(r.members) == 0 {
			r.shutdown()
			return nil
		}

		msg := newMessage(TypePlayerLeft)
		msg["roomId"] = r.id
		msg["player"] = Message{"id": playerID, "name": playerID}
		msg["players"] = slices.Clone(r.members)
		msg["hostId"] = r.members[0]
		r.broadcast(msg)
		return nil
	})
}

// newMatch resets the running scores for the current members.
func (r *Room) newMatch() {
	m := match.New(r.id, r.cfg.TargetScore)
	for _, id := range r.members {
		if err := m.AddPlayer(id); err != nil {
			r.logger.Debug("player not added to match", zap.String("player_id", id), zap.Error(err))
		}
	}
	r.match = m
	r.logger.Info("new match", zap.String("match_id", m.ID), zap.Int("target_score", m.TargetScore))
}

func (r *Room) shutdown() {
	r.logger.Info("room empty, closing")
	if r.round != nil && r.replays != nil {
		r.replays.ClearReplay(r.round.ID())
	}
	r.Close()
	if r.onEmpty != nil {
		r.onEmpty(r.id)
	}
}

// Start deals a new round to the members. Only the host may start.
func (r *Room) Start(ctx context.Context, playerID string) error {
	return r.do(ctx, func() error {
		if len(r.members) == 0 || r.members[0] != playerID {
			return ErrNotHost
		}
		if r.roundActive() {
			return ErrRoundInProgress
		}

		round := game.NewRound(uuid.NewString(), game.Options{
			HandSize:   r.cfg.HandSize,
			MinPlayers: r.cfg.MinPlayers,
			MaxPlayers: r.cfg.MaxPlayers,
			House: rules.HouseRules{
				WildsAlwaysPlayable: r.cfg.WildsAlwaysPlayable,
				MatchActionSymbols:  r.cfg.MatchActionSymbols,
			},
			Rand: r.rand,
		}, r.logger)
		round.Events().Subscribe(r.forward)

		players := make([]*game.Player, len(r.members))
		for i, id := range r.members {
			players[i] = game.NewPlayer(id, id)
		}

		if r.match != nil && r.match.GetState() == match.StateFinished {
			r.newMatch()
		}

		r.round = round
		r.finished = nil
		if r.replays != nil {
			r.replays.StartRecording(round.ID())
		}
		if err := round.StartRound(players); err != nil {
			if r.replays != nil {
				r.replays.ClearReplay(round.ID())
			}
			r.round = nil
			return err
		}

		r.afterAction()
		return nil
	})
}

// PlayCard plays a card for the player. An illegal or out-of-turn play
// changes nothing and returns nil; the actor is told why only when the
// room reports illegal plays.
func (r *Room) PlayCard(ctx context.Context, playerID, cardID string, color cards.Color) error {
	return r.do(ctx, func() error {
		if err := r.requireRound(playerID); err != nil {
			return err
		}
		res, err := r.round.AttemptPlay(playerID, cardID, color)
		if err != nil {
			return err
		}
		if res.Legal {
			r.afterAction()
		}
		return nil
	})
}

// DrawCard draws for the player and passes the turn on.
func (r *Room) DrawCard(ctx context.Context, playerID string) error {
	return r.do(ctx, func() error {
		if err := r.requireRound(playerID); err != nil {
			return err
		}
		_, res, err := r.round.AttemptDraw(playerID)
		if err != nil {
			if errors.Is(err, game.ErrDeckExhausted) {
				r.logger.Error("deck exhausted, aborting round", zap.Error(err))
				r.broadcast(ErrorMessage("The deck ran out of cards"))
				r.round.Abort("deck exhausted")
				return nil
			}
			return err
		}
		if !res.Legal {
			return nil
		}
		if err := r.round.AdvanceTurn(); err != nil {
			return err
		}
		r.afterAction()
		return nil
	})
}

func (r *Room) requireRound(playerID string) error {
	if !slices.Contains(r.members, playerID) {
		return ErrNotMember
	}
	if r.round == nil {
		return ErrNoRound
	}
	return nil
}

// SendState sends the player their current view of the round.
func (r *Room) SendState(ctx context.Context, playerID string) error {
	return r.do(ctx, func() error {
		if err := r.requireRound(playerID); err != nil {
			return err
		}
		r.sendView(playerID)
		return nil
	})
}

// Info returns a description of the room.
func (r *Room) Info(ctx context.Context) (Info, error) {
	var info Info
	err := r.do(ctx, func() error {
		info = Info{
			ID:        r.id,
			Members:   slices.Clone(r.members),
			State:     game.RoundIdle.String(),
			CreatedAt: r.createdAt,
		}
		if len(r.members) > 0 {
			info.HostID = r.members[0]
		}
		if r.round != nil {
			info.State = r.round.State().String()
			info.RoundID = r.round.ID()
		}
		if r.match != nil {
			snap := r.match.Snapshot()
			info.Match = &snap
		}
		return nil
	})
	return info, err
}

// LastResult returns the result of the last round won in this room.
func (r *Room) LastResult(ctx context.Context) (*game.Result, error) {
	var res *game.Result
	err := r.do(ctx, func() error {
		res = r.finished
		return nil
	})
	return res, err
}

func (r *Room) roundActive() bool {
	return r.round != nil && r.round.RoundActive()
}

// afterAction records the table and sends everyone a fresh view.
func (r *Room) afterAction() {
	if !r.roundActive() {
		return
	}
	if r.replays != nil {
		r.replays.RecordState(r.round.ID(), r.round.Snapshot())
	}
	for _, id := range r.members {
		r.sendView(id)
	}
}

func (r *Room) sendView(playerID string) {
	if r.round == nil {
		return
	}
	msg := newMessage(TypeGameState)
	msg["roomId"] = r.id
	msg["state"] = r.round.View(playerID)
	r.sender.Send(playerID, msg)
}

func (r *Room) broadcast(msg Message) {
	for _, id := range r.members {
		r.sender.Send(id, msg)
	}
}
