package game

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/collection"
)

// ErrDeckExhausted is returned when a card must be drawn but neither the
// draw pile nor the discard pile below its top card holds any.
var ErrDeckExhausted = errors.New("deck exhausted")

// DealOpeningHands deals perPlayer cards to each player, one card per
// player per pass in seat order.
func DealOpeningHands(drawPile *collection.Collection[*cards.Card], players []*Player, perPlayer int) error {
	if need := perPlayer * len(players); drawPile.Len() < need {
		return fmt.Errorf("%w: need %d cards to deal, have %d", ErrDeckExhausted, need, drawPile.Len())
	}
	for pass := 0; pass < perPlayer; pass++ {
		for _, p := range players {
			c, err := drawPile.PopLast()
			if err != nil {
				return fmt.Errorf("deal pass %d: %w", pass, err)
			}
			p.Hand.Append(c)
		}
	}
	return nil
}

// DrawOne pops the top card of the draw pile. When the draw pile is empty the
// discard pile is recycled first: every card below the active top card moves
// to the draw pile, which is shuffled, and the top card stays face up on its
// own. reshuffled reports whether that happened.
func DrawOne(drawPile, discardPile *collection.Collection[*cards.Card], r *rand.Rand) (card *cards.Card, reshuffled bool, err error) {
	if drawPile.Len() == 0 {
		if err := recycleDiscard(drawPile, discardPile, r); err != nil {
			return nil, false, err
		}
		reshuffled = true
	}

	card, err = drawPile.PopLast()
	if err != nil {
		return nil, reshuffled, fmt.Errorf("%w: %v", ErrDeckExhausted, err)
	}
	return card, reshuffled, nil
}

func recycleDiscard(drawPile, discardPile *collection.Collection[*cards.Card], r *rand.Rand) error {
	if discardPile.Len() < 2 {
		return fmt.Errorf("%w: draw pile empty and %d card(s) in discard pile", ErrDeckExhausted, discardPile.Len())
	}

	top, err := discardPile.PopLast()
	if err != nil {
		return err
	}
	for discardPile.Len() > 0 {
		c, err := discardPile.PopLast()
		if err != nil {
			return err
		}
		c.ClearWild()
		drawPile.Append(c)
	}
	drawPile.Shuffle(r)

	discardPile.Clear()
	discardPile.Append(top)
	return nil
}

// seedDiscard turns the first card of the draw pile face up. Wilds have no
// colour to match against, so a wild is put back below the top and the next
// card is tried.
func seedDiscard(drawPile, discardPile *collection.Collection[*cards.Card], r *rand.Rand) (*cards.Card, error) {
	for attempts := drawPile.Len(); attempts > 0; attempts-- {
		c, err := drawPile.PopLast()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeckExhausted, err)
		}
		if !c.IsWild() {
			discardPile.Append(c)
			return c, nil
		}
		if drawPile.Len() == 0 {
			drawPile.Append(c)
			break
		}
		if err := drawPile.InsertAt(randIndex(r, drawPile.Len()), c); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no colored card to start the discard pile", ErrDeckExhausted)
}

func randIndex(r *rand.Rand, n int) int {
	if r == nil {
		return rand.IntN(n)
	}
	return r.IntN(n)
}
