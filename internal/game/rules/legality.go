package rules

import (
	"github.com/unotable/uno-server-go/internal/game/cards"
)

// TableAccessor provides the table state needed for legality checks.
type TableAccessor interface {
	// RoundActive reports whether a round is being played.
	RoundActive() bool
	// HasPlayer reports whether the player is seated in the round.
	HasPlayer(playerID string) bool
	// CurrentPlayerID returns the player whose turn it is.
	CurrentPlayerID() string
	// HandContains reports whether the exact card instance is in the player's hand.
	HandContains(playerID string, card *cards.Card) bool
	// TopCard returns the active card of the discard pile.
	TopCard() (*cards.Card, bool)
	// PenaltyActive reports whether a DrawTwo/WildDrawFour chain is open.
	PenaltyActive() bool
	// ActiveWildColor returns the colour chosen with the last wild, or ColorNone.
	ActiveWildColor() cards.Color
}

// Reason explains why a play or draw was refused.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonRoundNotActive    Reason = "ROUND_NOT_ACTIVE"
	ReasonUnknownPlayer     Reason = "UNKNOWN_PLAYER"
	ReasonNotYourTurn       Reason = "NOT_YOUR_TURN"
	ReasonCardNotInHand     Reason = "CARD_NOT_IN_HAND"
	ReasonPenaltyPending    Reason = "PENALTY_PENDING"
	ReasonMissingColor      Reason = "MISSING_COLOR"
	ReasonWildColorMismatch Reason = "WILD_COLOR_MISMATCH"
	ReasonNoMatch           Reason = "NO_MATCH"
)

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  Reason
	Details map[string]string
}

func legal() LegalityResult {
	return LegalityResult{Legal: true}
}

func illegal(reason Reason, details map[string]string) LegalityResult {
	return LegalityResult{Legal: false, Reason: reason, Details: details}
}

// HouseRules are optional deviations from the base matching rules.
type HouseRules struct {
	// WildsAlwaysPlayable lets a wild be played on any card unless a
	// penalty chain is open.
	WildsAlwaysPlayable bool
	// MatchActionSymbols lets Skip, Reverse and DrawTwo match a card of the
	// same kind regardless of colour.
	MatchActionSymbols bool
}

// LegalityChecker decides whether a proposed play or draw is allowed.
type LegalityChecker struct {
	table TableAccessor
	house HouseRules
}

// NewLegalityChecker creates a new legality checker.
func NewLegalityChecker(table TableAccessor, house HouseRules) *LegalityChecker {
	return &LegalityChecker{
		table: table,
		house: house,
	}
}

// checkActor runs the checks shared by plays and draws.
func (lc *LegalityChecker) checkActor(playerID string) (LegalityResult, bool) {
	if lc == nil || lc.table == nil || !lc.table.RoundActive() {
		return illegal(ReasonRoundNotActive, nil), false
	}
	if !lc.table.HasPlayer(playerID) {
		return illegal(ReasonUnknownPlayer, map[string]string{"player_id": playerID}), false
	}
	if current := lc.table.CurrentPlayerID(); current != playerID {
		return illegal(ReasonNotYourTurn, map[string]string{
			"player_id":  playerID,
			"current_id": current,
		}), false
	}
	return legal(), true
}

// CheckDraw validates that the player may draw now.
func (lc *LegalityChecker) CheckDraw(playerID string) LegalityResult {
	res, _ := lc.checkActor(playerID)
	return res
}

// CheckPlay validates playing card from the player's hand. For wilds,
// chosen is the colour the player picked; it is ignored for colored cards.
func (lc *LegalityChecker) CheckPlay(playerID string, card *cards.Card, chosen cards.Color) LegalityResult {
	if res, ok := lc.checkActor(playerID); !ok {
		return res
	}
	if card == nil || !lc.table.HandContains(playerID, card) {
		details := map[string]string{"player_id": playerID}
		if card != nil {
			details["card_id"] = card.ID()
		}
		return illegal(ReasonCardNotInHand, details)
	}

	// An open penalty can only be stacked on, never sidestepped.
	if lc.table.PenaltyActive() && !card.Kind().IsPenalty() {
		return illegal(ReasonPenaltyPending, map[string]string{"card": card.String()})
	}

	color := card.Color()
	if card.IsWild() {
		if !chosen.Valid() {
			return illegal(ReasonMissingColor, map[string]string{"card": card.String()})
		}
		color = chosen

		if lc.house.WildsAlwaysPlayable {
			return legal()
		}
		if active := lc.table.ActiveWildColor(); active != cards.ColorNone {
			if chosen != active {
				return illegal(ReasonWildColorMismatch, map[string]string{
					"chosen": chosen.String(),
					"active": active.String(),
				})
			}
			return legal()
		}
	}

	top, ok := lc.table.TopCard()
	if !ok {
		return legal()
	}
	if color == top.Color() || card.SameRank(top) {
		return legal()
	}
	if lc.house.MatchActionSymbols && !card.IsWild() && card.Kind() != cards.KindNumber && card.Kind() == top.Kind() {
		return legal()
	}
	return illegal(ReasonNoMatch, map[string]string{
		"card": card.String(),
		"top":  top.String(),
	})
}
