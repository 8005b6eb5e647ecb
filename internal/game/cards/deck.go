package cards

import (
	"github.com/unotable/uno-server-go/internal/game/collection"
)

const (
	// DeckSize is the number of cards in a standard deck.
	DeckSize = 108
	// WildsPerKind is how many Wild and WildDrawFour cards the deck holds.
	WildsPerKind = 4
)

// BuildDeck returns an unshuffled 108 card deck. Cards are laid out colour by
// colour (red, yellow, green, blue): one 0, two of each 1-9, two Skip, two
// Reverse, two DrawTwo. The four Wild and four WildDrawFour cards close the deck.
func BuildDeck() *collection.Collection[*Card] {
	deck := collection.New[*Card](DeckSize)
	for _, color := range Colors {
		deck.Append(mustNumber(0, color))
		for rank := 1; rank <= 9; rank++ {
			deck.Append(mustNumber(rank, color))
			deck.Append(mustNumber(rank, color))
		}
		for _, kind := range []Kind{KindSkip, KindReverse, KindDrawTwo} {
			deck.Append(mustAction(kind, color))
			deck.Append(mustAction(kind, color))
		}
	}
	for i := 0; i < WildsPerKind; i++ {
		deck.Append(mustWild(KindWild))
	}
	for i := 0; i < WildsPerKind; i++ {
		deck.Append(mustWild(KindWildDrawFour))
	}
	return deck
}

func mustNumber(rank int, color Color) *Card {
	c, err := NewNumber(rank, color)
	if err != nil {
		panic(err)
	}
	return c
}

func mustAction(kind Kind, color Color) *Card {
	c, err := NewAction(kind, color)
	if err != nil {
		panic(err)
	}
	return c
}

func mustWild(kind Kind) *Card {
	c, err := NewWild(kind)
	if err != nil {
		panic(err)
	}
	return c
}
