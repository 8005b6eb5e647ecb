package game

import (
	"strconv"
	"time"

	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/rules"
	"github.com/unotable/uno-server-go/internal/game/watchers"
	"go.uber.org/zap"
)

// HasUno reports whether the player is down to one card.
func HasUno(p *Player) bool { return p.Hand.Len() == 1 }

// HasWon reports whether the player has emptied their hand.
func HasWon(p *Player) bool { return p.Hand.Len() == 0 }

// PlayerResult is one seat's line in a finished round.
type PlayerResult struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	CardsLeft   int    `json:"cardsLeft"`
	HandScore   int    `json:"handScore"`
	CardsPlayed int    `json:"cardsPlayed"`
	CardsDrawn  int    `json:"cardsDrawn"`
	UnoCalls    int    `json:"unoCalls"`
}

// Result is the outcome of a round that ended with a winner.
type Result struct {
	RoundID    string         `json:"roundId"`
	WinnerID   string         `json:"winnerId"`
	WinnerName string         `json:"winnerName"`
	Score      int            `json:"score"`
	Turns      int            `json:"turns"`
	Duration   time.Duration  `json:"duration"`
	FinishedAt time.Time      `json:"finishedAt"`
	Players    []PlayerResult `json:"players"`
}

// finish records the winner, publishes GAME_OVER and tears the table down.
func (r *Round) finish(winner *Player) {
	played, _ := r.watchers.GetWatcher(watchers.CardsPlayedKey).(*watchers.CardsPlayedWatcher)
	drawn, _ := r.watchers.GetWatcher(watchers.CardsDrawnKey).(*watchers.CardsDrawnWatcher)
	unos, _ := r.watchers.GetWatcher(watchers.UnoKey).(*watchers.UnoWatcher)

	res := &Result{
		RoundID:    r.id,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		Turns:      r.turn.TurnNumber(),
		Duration:   time.Since(r.startedAt),
		FinishedAt: time.Now(),
	}
	for _, p := range r.players.All {
		line := PlayerResult{
			PlayerID:  p.ID,
			Name:      p.Name,
			CardsLeft: p.Hand.Len(),
			HandScore: p.HandScore(),
		}
		if played != nil {
			line.CardsPlayed = played.GetCount(p.ID)
		}
		if drawn != nil {
			line.CardsDrawn = drawn.GetCount(p.ID)
		}
		if unos != nil {
			line.UnoCalls = unos.GetCount(p.ID)
		}
		if p != winner {
			res.Score += line.HandScore
		}
		res.Players = append(res.Players, line)
	}

	r.state = RoundOver
	r.lastResult = res

	r.logger.Info("round won",
		zap.String("winner", winner.ID),
		zap.Int("score", res.Score),
		zap.Int("turns", res.Turns),
		zap.Duration("duration", res.Duration),
	)

	evt := rules.NewEventWithAmount(rules.EventGameOver, r.id, winner.ID, res.Score)
	evt.Metadata["winner_name"] = winner.Name
	evt.Metadata["turns"] = strconv.Itoa(res.Turns)
	r.bus.Publish(evt)

	r.reset()
}

// reset puts every table field back to its default. The lifecycle state is
// left to the caller.
func (r *Round) reset() {
	for _, p := range r.players.All {
		p.Hand.Clear()
	}
	r.players.Clear()
	r.drawPile.Clear()
	r.discardPile.Clear()
	r.turn.Reset(0)
	r.pendingPenalty = 0
	r.penaltyActive = false
	r.activeWildColor = cards.ColorNone
}
