package game

import (
	"github.com/unotable/uno-server-go/internal/game/cards"
	"github.com/unotable/uno-server-go/internal/game/collection"
)

// Player is a seat in a round: an identity plus the cards it holds.
type Player struct {
	ID   string
	Name string
	Hand *collection.Collection[*cards.Card]
}

// NewPlayer creates a player with an empty hand.
func NewPlayer(id, name string) *Player {
	if name == "" {
		name = id
	}
	return &Player{
		ID:   id,
		Name: name,
		Hand: collection.New[*cards.Card](16),
	}
}

// FindCard returns the card in the player's hand with the given ID.
func (p *Player) FindCard(cardID string) (*cards.Card, bool) {
	idx := p.Hand.IndexFunc(func(c *cards.Card) bool { return c.ID() == cardID })
	if idx < 0 {
		return nil, false
	}
	c, err := p.Hand.Get(idx)
	if err != nil {
		return nil, false
	}
	return c, true
}

// HandScore sums the points of the cards left in the hand.
func (p *Player) HandScore() int {
	total := 0
	for _, c := range p.Hand.All {
		total += c.Score()
	}
	return total
}
