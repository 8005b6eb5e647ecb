package rules

import (
	"testing"

	"github.com/unotable/uno-server-go/internal/game/cards"
)

type fakeTable struct {
	active    bool
	current   string
	hands     map[string][]*cards.Card
	top       *cards.Card
	penalty   bool
	wildColor cards.Color
}

func (f *fakeTable) RoundActive() bool       { return f.active }
func (f *fakeTable) CurrentPlayerID() string { return f.current }
func (f *fakeTable) PenaltyActive() bool     { return f.penalty }
func (f *fakeTable) ActiveWildColor() cards.Color {
	return f.wildColor
}

func (f *fakeTable) HasPlayer(playerID string) bool {
	_, ok := f.hands[playerID]
	return ok
}

func (f *fakeTable) HandContains(playerID string, card *cards.Card) bool {
	for _, c := range f.hands[playerID] {
		if c == card {
			return true
		}
	}
	return false
}

func (f *fakeTable) TopCard() (*cards.Card, bool) {
	return f.top, f.top != nil
}

func number(t *testing.T, rank int, color cards.Color) *cards.Card {
	t.Helper()
	c, err := cards.NewNumber(rank, color)
	if err != nil {
		t.Fatalf("new number: %v", err)
	}
	return c
}

func action(t *testing.T, kind cards.Kind, color cards.Color) *cards.Card {
	t.Helper()
	c, err := cards.NewAction(kind, color)
	if err != nil {
		t.Fatalf("new action: %v", err)
	}
	return c
}

func wild(t *testing.T, kind cards.Kind) *cards.Card {
	t.Helper()
	c, err := cards.NewWild(kind)
	if err != nil {
		t.Fatalf("new wild: %v", err)
	}
	return c
}

func newTable(top *cards.Card, hand ...*cards.Card) *fakeTable {
	return &fakeTable{
		active:  true,
		current: "alice",
		hands: map[string][]*cards.Card{
			"alice": hand,
			"bob":   nil,
		},
		top: top,
	}
}

func TestCheckPlayColorAndRank(t *testing.T) {
	red5 := number(t, 5, cards.ColorRed)
	red9 := number(t, 9, cards.ColorRed)
	blue5 := number(t, 5, cards.ColorBlue)
	blue7 := number(t, 7, cards.ColorBlue)

	table := newTable(red5, red9, blue5, blue7)
	lc := NewLegalityChecker(table, HouseRules{})

	if res := lc.CheckPlay("alice", red9, cards.ColorNone); !res.Legal {
		t.Fatalf("expected colour match to be legal, got %s", res.Reason)
	}
	if res := lc.CheckPlay("alice", blue5, cards.ColorNone); !res.Legal {
		t.Fatalf("expected rank match to be legal, got %s", res.Reason)
	}
	if res := lc.CheckPlay("alice", blue7, cards.ColorNone); res.Legal || res.Reason != ReasonNoMatch {
		t.Fatalf("expected NO_MATCH, got %+v", res)
	}
}

func TestCheckPlayActionCardsHaveNoRank(t *testing.T) {
	redSkip := action(t, cards.KindSkip, cards.ColorRed)
	blueSkip := action(t, cards.KindSkip, cards.ColorBlue)

	table := newTable(redSkip, blueSkip)
	lc := NewLegalityChecker(table, HouseRules{})
	if res := lc.CheckPlay("alice", blueSkip, cards.ColorNone); res.Legal {
		t.Fatalf("expected skip on skip of another colour to be illegal")
	}

	withSymbols := NewLegalityChecker(table, HouseRules{MatchActionSymbols: true})
	if res := withSymbols.CheckPlay("alice", blueSkip, cards.ColorNone); !res.Legal {
		t.Fatalf("expected symbol match house rule to allow it, got %s", res.Reason)
	}
}

func TestCheckPlayNotYourTurn(t *testing.T) {
	red5 := number(t, 5, cards.ColorRed)
	red6 := number(t, 6, cards.ColorRed)
	table := newTable(red5)
	table.hands["bob"] = []*cards.Card{red6}

	lc := NewLegalityChecker(table, HouseRules{})
	res := lc.CheckPlay("bob", red6, cards.ColorNone)
	if res.Legal || res.Reason != ReasonNotYourTurn {
		t.Fatalf("expected NOT_YOUR_TURN, got %+v", res)
	}
	if res.Details["current_id"] != "alice" {
		t.Fatalf("expected details to name the current player, got %v", res.Details)
	}
}

func TestCheckPlayCardMustBeTheHeldInstance(t *testing.T) {
	red5 := number(t, 5, cards.ColorRed)
	held := number(t, 7, cards.ColorRed)
	lookalike := number(t, 7, cards.ColorRed)

	lc := NewLegalityChecker(newTable(red5, held), HouseRules{})
	if res := lc.CheckPlay("alice", lookalike, cards.ColorNone); res.Reason != ReasonCardNotInHand {
		t.Fatalf("expected CARD_NOT_IN_HAND for an identical card not in hand, got %+v", res)
	}
	if res := lc.CheckPlay("alice", nil, cards.ColorNone); res.Reason != ReasonCardNotInHand {
		t.Fatalf("expected CARD_NOT_IN_HAND for nil card, got %+v", res)
	}
}

func TestCheckPlayPenaltyOnlyAllowsStacking(t *testing.T) {
	top := action(t, cards.KindDrawTwo, cards.ColorGreen)
	green3 := number(t, 3, cards.ColorGreen)
	greenDraw := action(t, cards.KindDrawTwo, cards.ColorGreen)
	drawFour := wild(t, cards.KindWildDrawFour)
	plainWild := wild(t, cards.KindWild)

	table := newTable(top, green3, greenDraw, drawFour, plainWild)
	table.penalty = true
	lc := NewLegalityChecker(table, HouseRules{WildsAlwaysPlayable: true})

	if res := lc.CheckPlay("alice", green3, cards.ColorNone); res.Reason != ReasonPenaltyPending {
		t.Fatalf("expected PENALTY_PENDING for matching number, got %+v", res)
	}
	if res := lc.CheckPlay("alice", plainWild, cards.ColorGreen); res.Reason != ReasonPenaltyPending {
		t.Fatalf("expected PENALTY_PENDING for plain wild, got %+v", res)
	}
	if res := lc.CheckPlay("alice", greenDraw, cards.ColorNone); !res.Legal {
		t.Fatalf("expected DrawTwo to stack, got %s", res.Reason)
	}
	if res := lc.CheckPlay("alice", drawFour, cards.ColorGreen); !res.Legal {
		t.Fatalf("expected WildDrawFour to stack, got %s", res.Reason)
	}
}

func TestCheckPlayWildAgainstActiveWildColor(t *testing.T) {
	top := wild(t, cards.KindWild)
	if err := top.ResolveWild(cards.ColorBlue); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	next := wild(t, cards.KindWild)
	blue2 := number(t, 2, cards.ColorBlue)
	red2 := number(t, 2, cards.ColorRed)

	table := newTable(top, next, blue2, red2)
	table.wildColor = cards.ColorBlue
	lc := NewLegalityChecker(table, HouseRules{})

	if res := lc.CheckPlay("alice", next, cards.ColorRed); res.Reason != ReasonWildColorMismatch {
		t.Fatalf("expected WILD_COLOR_MISMATCH, got %+v", res)
	}
	if res := lc.CheckPlay("alice", next, cards.ColorBlue); !res.Legal {
		t.Fatalf("expected wild with the active colour to be legal, got %s", res.Reason)
	}
	if res := lc.CheckPlay("alice", blue2, cards.ColorNone); !res.Legal {
		t.Fatalf("expected card in the active colour to be legal, got %s", res.Reason)
	}
	if res := lc.CheckPlay("alice", red2, cards.ColorNone); res.Legal {
		t.Fatalf("expected card off the active colour to be illegal")
	}
}

func TestCheckPlayWildWithoutActiveColor(t *testing.T) {
	top := number(t, 4, cards.ColorYellow)
	w := wild(t, cards.KindWild)

	table := newTable(top, w)
	lc := NewLegalityChecker(table, HouseRules{})

	if res := lc.CheckPlay("alice", w, cards.ColorNone); res.Reason != ReasonMissingColor {
		t.Fatalf("expected MISSING_COLOR, got %+v", res)
	}
	if res := lc.CheckPlay("alice", w, cards.ColorRed); res.Reason != ReasonNoMatch {
		t.Fatalf("expected NO_MATCH for a wild choosing another colour, got %+v", res)
	}
	if res := lc.CheckPlay("alice", w, cards.ColorYellow); !res.Legal {
		t.Fatalf("expected wild choosing the top colour to be legal, got %s", res.Reason)
	}

	house := NewLegalityChecker(table, HouseRules{WildsAlwaysPlayable: true})
	if res := house.CheckPlay("alice", w, cards.ColorRed); !res.Legal {
		t.Fatalf("expected house rule to allow any wild, got %s", res.Reason)
	}
}

func TestCheckDraw(t *testing.T) {
	table := newTable(number(t, 1, cards.ColorRed))
	lc := NewLegalityChecker(table, HouseRules{})

	if res := lc.CheckDraw("alice"); !res.Legal {
		t.Fatalf("expected alice to be allowed to draw, got %s", res.Reason)
	}
	if res := lc.CheckDraw("bob"); res.Reason != ReasonNotYourTurn {
		t.Fatalf("expected NOT_YOUR_TURN for bob, got %+v", res)
	}
	if res := lc.CheckDraw("carol"); res.Reason != ReasonUnknownPlayer {
		t.Fatalf("expected UNKNOWN_PLAYER for carol, got %+v", res)
	}

	table.active = false
	if res := lc.CheckDraw("alice"); res.Reason != ReasonRoundNotActive {
		t.Fatalf("expected ROUND_NOT_ACTIVE, got %+v", res)
	}
}
