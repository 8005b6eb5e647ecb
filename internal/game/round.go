package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/collection"
	"github.com/unotable/uno-server-go/internal/game/rules"
	"github.com/unotable/uno-server-go/internal/game/watchers"
	"go.uber.org/zap"
)

var (
	ErrRoundNotActive   = errors.New("round not active")
	ErrRoundInProgress  = errors.New("round already in progress")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrTooManyPlayers   = errors.New("too many players")
	ErrDuplicatePlayer  = errors.New("player seated twice")
	ErrPlayerNotFound   = errors.New("player not found")
	// ErrIllegalPlay wraps the reason a play or draw was refused. Rounds never
	// return it from AttemptPlay/AttemptDraw; see IllegalPlay.
	ErrIllegalPlay = errors.New("illegal play")
)

// IllegalPlay turns a refused legality result into an error wrapping ErrIllegalPlay.
func IllegalPlay(res rules.LegalityResult) error {
	if res.Legal {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrIllegalPlay, res.Reason)
}

// RoundState is the lifecycle state of a round.
type RoundState int

const (
	RoundIdle RoundState = iota
	RoundActive
	RoundOver
)

var roundStateNames = map[RoundState]string{
	RoundIdle:   "IDLE",
	RoundActive: "ACTIVE",
	RoundOver:   "OVER",
}

func (s RoundState) String() string {
	if name, ok := roundStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ROUND_STATE_%d", int(s))
}

// Options configure a round.
type Options struct {
	HandSize   int
	MinPlayers int
	MaxPlayers int
	House      rules.HouseRules
	// Rand drives every shuffle. Nil uses the package level generator.
	Rand *rand.Rand
}

// DefaultOptions returns the standard rules: seven cards, two to ten players.
func DefaultOptions() Options {
	return Options{
		HandSize:   7,
		MinPlayers: 2,
		MaxPlayers: 10,
	}
}

// Round is the table state of one room plus the rules that act on it.
//
// A Round does no locking of its own. All calls for a round must come from
// a single goroutine, which in the server is the owning room's loop.
type Round struct {
	id     string
	logger *zap.Logger
	opts   Options

	bus      *rules.EventBus
	watchers *rules.WatcherRegistry
	legality *rules.LegalityChecker

	players     *collection.Collection[*Player]
	drawPile    *collection.Collection[*cards.Card]
	discardPile *collection.Collection[*cards.Card]
	turn        *rules.TurnOrder

	pendingPenalty  int
	penaltyActive   bool
	activeWildColor cards.Color
	state           RoundState

	startedAt  time.Time
	lastResult *Result
}

// NewRound creates an idle round. Call StartRound to deal.
func NewRound(id string, opts Options, logger *zap.Logger) *Round {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HandSize <= 0 {
		opts.HandSize = DefaultOptions().HandSize
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = DefaultOptions().MinPlayers
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultOptions().MaxPlayers
	}

	r := &Round{
		id:          id,
		logger:      logger.With(zap.String("round_id", id)),
		opts:        opts,
		bus:         rules.NewEventBus(),
		watchers:    rules.NewWatcherRegistry(),
		players:     collection.New[*Player](opts.MaxPlayers),
		drawPile:    collection.New[*cards.Card](cards.DeckSize),
		discardPile: collection.New[*cards.Card](cards.DeckSize),
		turn:        rules.NewTurnOrder(0),
		state:       RoundIdle,
	}
	r.legality = rules.NewLegalityChecker(r, opts.House)

	r.watchers.AddWatcher(watchers.NewCardsPlayedWatcher())
	r.watchers.AddWatcher(watchers.NewCardsDrawnWatcher())
	r.watchers.AddWatcher(watchers.NewUnoWatcher())
	r.bus.Subscribe(r.watchers.Watch)

	return r
}

// ID returns the round identifier.
func (r *Round) ID() string { return r.id }

// Events returns the bus the round publishes on.
func (r *Round) Events() *rules.EventBus { return r.bus }

// Watchers returns the round's statistics watchers.
func (r *Round) Watchers() *rules.WatcherRegistry { return r.watchers }

// StartRound seats the players, shuffles a fresh deck, deals the opening
// hands and turns up the first discard. Seat 0 plays first.
func (r *Round) StartRound(players []*Player) error {
	if r.state == RoundActive {
		return ErrRoundInProgress
	}
	if len(players) < r.opts.MinPlayers {
		return fmt.Errorf("%w: %d seated, need %d", ErrNotEnoughPlayers, len(players), r.opts.MinPlayers)
	}
	if len(players) > r.opts.MaxPlayers {
		return fmt.Errorf("%w: %d seated, max %d", ErrTooManyPlayers, len(players), r.opts.MaxPlayers)
	}
	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = true
	}

	r.reset()
	for _, p := range players {
		p.Hand.Clear()
		r.players.Append(p)
	}

	for _, c := range cards.BuildDeck().All {
		r.drawPile.Append(c)
	}
	r.drawPile.Shuffle(r.opts.Rand)

	if err := DealOpeningHands(r.drawPile, players, r.opts.HandSize); err != nil {
		r.reset()
		return fmt.Errorf("deal opening hands: %w", err)
	}
	top, err := seedDiscard(r.drawPile, r.discardPile, r.opts.Rand)
	if err != nil {
		r.reset()
		return fmt.Errorf("seed discard pile: %w", err)
	}

	r.turn.Reset(len(players))
	r.state = RoundActive
	r.startedAt = time.Now()
	r.lastResult = nil
	r.watchers.ResetAll()

	r.logger.Info("round started",
		zap.Int("players", len(players)),
		zap.String("top_card", top.String()),
		zap.Int("draw_pile", r.drawPile.Len()),
	)

	evt := rules.NewCardEvent(rules.EventRoundStarted, r.id, r.CurrentPlayerID(), top)
	evt.Amount = len(players)
	r.bus.Publish(evt)
	return nil
}

// IsLegal checks a proposed play without changing anything.
func (r *Round) IsLegal(playerID, cardID string, chosen cards.Color) rules.LegalityResult {
	var card *cards.Card
	if p, ok := r.player(playerID); ok {
		card, _ = p.FindCard(cardID)
	}
	return r.legality.CheckPlay(playerID, card, chosen)
}

// AttemptPlay plays the card with cardID from the player's hand if the play
// is legal. Illegal and out-of-turn attempts leave the table untouched; the
// returned result says why and a PLAY_REJECTED event is published. The error
// is non-nil only if the round's own state is broken.
func (r *Round) AttemptPlay(playerID, cardID string, chosen cards.Color) (rules.LegalityResult, error) {
	res := r.IsLegal(playerID, cardID, chosen)
	if !res.Legal {
		r.logger.Debug("play rejected",
			zap.String("player_id", playerID),
			zap.String("card_id", cardID),
			zap.String("reason", string(res.Reason)),
		)
		evt := rules.NewEvent(rules.EventPlayRejected, r.id, playerID)
		evt.Reason = string(res.Reason)
		for k, v := range res.Details {
			evt.Metadata[k] = v
		}
		r.bus.Publish(evt)
		return res, nil
	}

	p, _ := r.player(playerID)
	card, _ := p.FindCard(cardID)
	if err := r.applyPlay(p, card, chosen); err != nil {
		return res, err
	}
	return res, nil
}

// applyPlay moves a legal card onto the discard pile and resolves it.
func (r *Round) applyPlay(p *Player, card *cards.Card, chosen cards.Color) error {
	if card.IsWild() {
		if err := card.ResolveWild(chosen); err != nil {
			return fmt.Errorf("resolve wild: %w", err)
		}
	}
	p.Hand.Remove(card)
	r.discardPile.Append(card)

	switch card.Kind() {
	case cards.KindDrawTwo:
		r.pendingPenalty += 2
		r.penaltyActive = true
	case cards.KindWildDrawFour:
		r.pendingPenalty += 4
		r.penaltyActive = true
		r.activeWildColor = card.Color()
	case cards.KindWild:
		r.activeWildColor = card.Color()
	default:
		r.activeWildColor = cards.ColorNone
		r.penaltyActive = false
		r.pendingPenalty = 0
	}

	if card.Kind() == cards.KindReverse {
		dir := r.turn.Reverse()
		r.bus.Publish(rules.NewEventWithAmount(rules.EventDirectionReversed, r.id, p.ID, int(dir)))
	}

	r.logger.Debug("card played",
		zap.String("player_id", p.ID),
		zap.String("card", card.String()),
		zap.Int("pending_penalty", r.pendingPenalty),
		zap.Int("hand", p.Hand.Len()),
	)

	played := rules.NewCardEvent(rules.EventCardPlayed, r.id, p.ID, card)
	played.Amount = r.pendingPenalty
	r.bus.Publish(played)

	if HasWon(p) {
		// The turn still counts, but nobody is told about a next one.
		r.turn.Advance()
		r.finish(p)
		return nil
	}

	r.advance()

	if HasUno(p) {
		r.bus.Publish(rules.NewEventWithAmount(rules.EventPlayerHasUno, r.id, p.ID, 1))
	}
	return nil
}

// AttemptDraw draws for the player if it is their turn. Out-of-turn
// attempts leave the table untouched. The turn does not move; the caller
// advances it with AdvanceTurn once the draw has been reported.
func (r *Round) AttemptDraw(playerID string) ([]*cards.Card, rules.LegalityResult, error) {
	res := r.legality.CheckDraw(playerID)
	if !res.Legal {
		evt := rules.NewEvent(rules.EventPlayRejected, r.id, playerID)
		evt.Reason = string(res.Reason)
		r.bus.Publish(evt)
		return nil, res, nil
	}
	drawn, err := r.ResolveDraw(playerID)
	return drawn, res, err
}

// ResolveDraw draws the pending penalty, or a single card when none is
// pending, into the player's hand. Any open penalty and wild colour are
// cleared afterwards. It must only be called on the player's turn.
//
// If the deck runs out part way through, the cards drawn so far stay in
// the hand and are returned along with an error wrapping ErrDeckExhausted.
func (r *Round) ResolveDraw(playerID string) ([]*cards.Card, error) {
	if res := r.legality.CheckDraw(playerID); !res.Legal {
		return nil, IllegalPlay(res)
	}
	p, _ := r.player(playerID)

	count := 1
	if r.penaltyActive {
		count = r.pendingPenalty
	}

	drawn := make([]*cards.Card, 0, count)
	var drawErr error
	for i := 0; i < count; i++ {
		c, err := r.drawOne()
		if err != nil {
			drawErr = err
			break
		}
		p.Hand.Append(c)
		drawn = append(drawn, c)
	}

	r.pendingPenalty = 0
	r.penaltyActive = false
	r.activeWildColor = cards.ColorNone

	evt := rules.NewEventWithAmount(rules.EventCardsDrawn, r.id, p.ID, len(drawn))
	evt.Cards = drawn
	r.bus.Publish(evt)

	if drawErr != nil {
		r.logger.Error("draw failed",
			zap.String("player_id", playerID),
			zap.Int("drawn", len(drawn)),
			zap.Int("wanted", count),
			zap.Error(drawErr),
		)
		return drawn, drawErr
	}
	return drawn, nil
}

func (r *Round) drawOne() (*cards.Card, error) {
	c, reshuffled, err := DrawOne(r.drawPile, r.discardPile, r.opts.Rand)
	if reshuffled {
		moved := r.drawPile.Len()
		if c != nil {
			moved++
		}
		r.logger.Info("discard pile reshuffled into draw pile", zap.Int("cards", moved))
		r.bus.Publish(rules.NewEventWithAmount(rules.EventDeckReshuffled, r.id, "", moved))
	}
	return c, err
}

// AdvanceTurn passes the turn to the next seat. Plays advance on their own;
// this is for the dispatcher after a draw.
func (r *Round) AdvanceTurn() error {
	if r.state != RoundActive {
		return ErrRoundNotActive
	}
	r.advance()
	return nil
}

func (r *Round) advance() {
	r.turn.Advance()
	r.bus.Publish(rules.NewEvent(rules.EventTurnAdvanced, r.id, r.CurrentPlayerID()))
}

// Abort tears down a running round without a winner.
func (r *Round) Abort(reason string) {
	if r.state != RoundActive {
		return
	}
	r.logger.Warn("round aborted", zap.String("reason", reason))
	evt := rules.NewEvent(rules.EventRoundAborted, r.id, "")
	evt.Reason = reason
	r.bus.Publish(evt)
	r.reset()
	r.state = RoundIdle
}

func (r *Round) player(playerID string) (*Player, bool) {
	idx := r.players.IndexFunc(func(p *Player) bool { return p.ID == playerID })
	if idx < 0 {
		return nil, false
	}
	p, err := r.players.Get(idx)
	return p, err == nil
}

// Player returns the seated player with the given ID.
func (r *Round) Player(playerID string) (*Player, error) {
	p, ok := r.player(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return p, nil
}

// Players returns the seated players in turn order.
func (r *Round) Players() []*Player { return r.players.Snapshot() }

// State returns the lifecycle state.
func (r *Round) State() RoundState { return r.state }

// RoundActive reports whether the round is being played.
func (r *Round) RoundActive() bool { return r.state == RoundActive }

// HasPlayer reports whether the player is seated.
func (r *Round) HasPlayer(playerID string) bool {
	_, ok := r.player(playerID)
	return ok
}

// CurrentPlayerID returns the player whose turn it is, or "" when no round is active.
func (r *Round) CurrentPlayerID() string {
	if r.state != RoundActive {
		return ""
	}
	p, err := r.players.Get(r.turn.Index())
	if err != nil {
		return ""
	}
	return p.ID
}

// HandContains reports whether the exact card instance is in the player's hand.
func (r *Round) HandContains(playerID string, card *cards.Card) bool {
	p, ok := r.player(playerID)
	return ok && p.Hand.Contains(card)
}

// TopCard returns the active card of the discard pile.
func (r *Round) TopCard() (*cards.Card, bool) { return r.discardPile.Last() }

// PenaltyActive reports whether a DrawTwo/WildDrawFour chain is open.
func (r *Round) PenaltyActive() bool { return r.penaltyActive }

// PendingPenalty returns the number of cards the next draw must take.
func (r *Round) PendingPenalty() int { return r.pendingPenalty }

// ActiveWildColor returns the colour chosen with the last wild, or ColorNone.
func (r *Round) ActiveWildColor() cards.Color { return r.activeWildColor }

// TurnIndex returns the seat whose turn it is.
func (r *Round) TurnIndex() int { return r.turn.Index() }

// Direction returns the direction of play.
func (r *Round) Direction() rules.Direction { return r.turn.Direction() }

// DrawPileSize returns the number of face down cards.
func (r *Round) DrawPileSize() int { return r.drawPile.Len() }

// DiscardPileSize returns the number of face up cards.
func (r *Round) DiscardPileSize() int { return r.discardPile.Len() }

// LastResult returns the outcome of the most recently finished round.
func (r *Round) LastResult() (*Result, bool) {
	return r.lastResult, r.lastResult != nil
}
