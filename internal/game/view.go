package game

import (
	"time"

	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/rules"
)

// PlayerSummary is what everyone at the table can see about a seat.
type PlayerSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"cardCount"`
}

// View is the table as seen by one player: their own hand, and only the
// size of everyone else's.
type View struct {
	RoundID         string          `json:"roundId"`
	State           string          `json:"state"`
	Players         []PlayerSummary `json:"players"`
	CurrentPlayerID string          `json:"currentPlayerId,omitempty"`
	TurnIndex       int             `json:"turnIndex"`
	TurnNumber      int             `json:"turnNumber"`
	Direction       string          `json:"direction"`
	TopCard         *cards.View     `json:"topCard,omitempty"`
	DrawPileSize    int             `json:"drawPileSize"`
	PendingPenalty  int             `json:"pendingPenalty"`
	PenaltyActive   bool            `json:"penaltyActive"`
	ActiveWildColor string          `json:"activeWildColor,omitempty"`
	Hand            []cards.View    `json:"hand"`
}

// View returns the table as seen by playerID. An unknown player gets the
// public part only.
func (r *Round) View(playerID string) View {
	v := View{
		RoundID:         r.id,
		State:           r.state.String(),
		CurrentPlayerID: r.CurrentPlayerID(),
		TurnIndex:       r.turn.Index(),
		TurnNumber:      r.turn.TurnNumber(),
		Direction:       r.turn.Direction().String(),
		DrawPileSize:    r.drawPile.Len(),
		PendingPenalty:  r.pendingPenalty,
		PenaltyActive:   r.penaltyActive,
		Hand:            []cards.View{},
	}
	if r.activeWildColor != cards.ColorNone {
		v.ActiveWildColor = r.activeWildColor.String()
	}
	if top, ok := r.discardPile.Last(); ok {
		tv := top.View()
		v.TopCard = &tv
	}
	for _, p := range r.players.All {
		v.Players = append(v.Players, PlayerSummary{ID: p.ID, Name: p.Name, CardCount: p.Hand.Len()})
		if p.ID == playerID {
			v.Hand = cards.Views(p.Hand.Snapshot())
		}
	}
	return v
}

// PlayerSnapshot is a seat with its full hand.
type PlayerSnapshot struct {
	ID   string
	Name string
	Hand []cards.Record
}

// Snapshot is the complete table, including every hidden card.
type Snapshot struct {
	RoundID         string
	State           RoundState
	TurnIndex       int
	TurnNumber      int
	Direction       rules.Direction
	PendingPenalty  int
	PenaltyActive   bool
	ActiveWildColor cards.Color
	Players         []PlayerSnapshot
	DrawPile        []cards.Record
	DiscardPile     []cards.Record
	Timestamp       time.Time
}

// Snapshot captures the complete table.
func (r *Round) Snapshot() *Snapshot {
	s := &Snapshot{
		RoundID:         r.id,
		State:           r.state,
		TurnIndex:       r.turn.Index(),
		TurnNumber:      r.turn.TurnNumber(),
		Direction:       r.turn.Direction(),
		PendingPenalty:  r.pendingPenalty,
		PenaltyActive:   r.penaltyActive,
		ActiveWildColor: r.activeWildColor,
		DrawPile:        cards.Records(r.drawPile.Snapshot()),
		DiscardPile:     cards.Records(r.discardPile.Snapshot()),
		Timestamp:       time.Now(),
	}
	for _, p := range r.players.All {
		s.Players = append(s.Players, PlayerSnapshot{
			ID:   p.ID,
			Name: p.Name,
			Hand: cards.Records(p.Hand.Snapshot()),
		})
	}
	return s
}
