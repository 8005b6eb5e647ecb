package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/collection"
)

func TestDealOpeningHands(t *testing.T) {
	deck := cards.BuildDeck()
	players := seatPlayers(4)
	top, _ := deck.Last()

	require.NoError(t, DealOpeningHands(deck, players, 7))

	for _, p := range players {
		assert.Equal(t, 7, p.Hand.Len())
	}
	assert.Equal(t, cards.DeckSize-28, deck.Len())

	// Round robin: the first seat gets the first card off the top.
	first, err := players[0].Hand.Get(0)
	require.NoError(t, err)
	assert.Same(t, top, first)
}

func TestDealOpeningHandsShortDeck(t *testing.T) {
	deck := collection.Of(number(t, 1, cards.ColorRed), number(t, 2, cards.ColorRed))
	players := seatPlayers(2)

	err := DealOpeningHands(deck, players, 2)
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Equal(t, 2, deck.Len(), "nothing dealt from a short deck")
	assert.Equal(t, 0, players[0].Hand.Len())
}

func TestDrawOneFromDrawPile(t *testing.T) {
	red1 := number(t, 1, cards.ColorRed)
	drawPile := collection.Of(number(t, 2, cards.ColorRed), red1)
	discardPile := collection.Of(number(t, 3, cards.ColorRed))

	c, reshuffled, err := DrawOne(drawPile, discardPile, nil)
	require.NoError(t, err)
	assert.False(t, reshuffled)
	assert.Same(t, red1, c)
	assert.Equal(t, 1, drawPile.Len())
}

func TestDrawOneRecyclesDiscard(t *testing.T) {
	top := number(t, 9, cards.ColorBlue)
	w := wild(t, cards.KindWildDrawFour)
	require.NoError(t, w.ResolveWild(cards.ColorBlue))
	drawPile := collection.New[*cards.Card](4)
	discardPile := collection.Of(number(t, 1, cards.ColorGreen), w, number(t, 4, cards.ColorYellow), top)

	c, reshuffled, err := DrawOne(drawPile, discardPile, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.True(t, reshuffled)
	require.NotNil(t, c)

	assert.Equal(t, 2, drawPile.Len())
	assert.Equal(t, 1, discardPile.Len())
	last, _ := discardPile.Last()
	assert.Same(t, top, last)
	assert.False(t, drawPile.Contains(top))
	assert.Equal(t, cards.ColorNone, w.Color())
}

func TestDrawOneExhausted(t *testing.T) {
	drawPile := collection.New[*cards.Card](0)
	discardPile := collection.Of(number(t, 9, cards.ColorBlue))

	c, reshuffled, err := DrawOne(drawPile, discardPile, nil)
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Nil(t, c)
	assert.False(t, reshuffled)
	assert.Equal(t, 1, discardPile.Len())
}

func TestSeedDiscardSkipsWilds(t *testing.T) {
	red1 := number(t, 1, cards.ColorRed)
	w := wild(t, cards.KindWild)
	drawPile := collection.Of(number(t, 5, cards.ColorGreen), red1, w)
	discardPile := collection.New[*cards.Card](1)

	top, err := seedDiscard(drawPile, discardPile, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	assert.False(t, top.IsWild())
	assert.Equal(t, 1, discardPile.Len())
	assert.True(t, drawPile.Contains(w))
	assert.Equal(t, 2, drawPile.Len())
}

func TestSeedDiscardOnlyWilds(t *testing.T) {
	drawPile := collection.Of(wild(t, cards.KindWild), wild(t, cards.KindWildDrawFour))
	discardPile := collection.New[*cards.Card](1)

	_, err := seedDiscard(drawPile, discardPile, nil)
	assert.ErrorIs(t, err, ErrDeckExhausted)
	assert.Equal(t, 0, discardPile.Len())
	assert.Equal(t, 2, drawPile.Len())
}
