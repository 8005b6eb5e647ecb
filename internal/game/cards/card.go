package cards

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCard is returned when a card is constructed with a rank or
	// colour that its kind does not allow.
	ErrInvalidCard = errors.New("invalid card")
	// ErrNotWild is returned when a colour is chosen for a colored card.
	ErrNotWild = errors.New("card is not a wild")
)

// Kind identifies the face of a card.
type Kind int

const (
	KindNumber Kind = iota
	KindSkip
	KindReverse
	KindDrawTwo
	KindWild
	KindWildDrawFour
)

var kindNames = map[Kind]string{
	KindNumber:       "NUMBER",
	KindSkip:         "SKIP",
	KindReverse:      "REVERSE",
	KindDrawTwo:      "DRAW_TWO",
	KindWild:         "WILD",
	KindWildDrawFour: "WILD_DRAW_FOUR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// IsWild reports whether cards of this kind get their colour from the player.
func (k Kind) IsWild() bool {
	return k == KindWild || k == KindWildDrawFour
}

// IsPenalty reports whether the kind opens or extends a draw penalty chain.
func (k Kind) IsPenalty() bool {
	return k == KindDrawTwo || k == KindWildDrawFour
}

// ParseKind converts a wire name ("WILD_DRAW_FOUR", "wildDrawFour") into a Kind.
func ParseKind(s string) (Kind, error) {
	norm := normalize(s)
	for k, name := range kindNames {
		if normalize(name) == norm {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown card kind %q", s)
}

// Color is the colour of a card. ColorNone marks an unresolved wild.
type Color int

const (
	ColorNone Color = iota
	ColorRed
	ColorYellow
	ColorGreen
	ColorBlue
)

// Colors lists the four playable colours in deck order.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

var colorNames = map[Color]string{
	ColorNone:   "NONE",
	ColorRed:    "RED",
	ColorYellow: "YELLOW",
	ColorGreen:  "GREEN",
	ColorBlue:   "BLUE",
}

func (c Color) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("COLOR_%d", int(c))
}

// Valid reports whether c is one of the four playable colours.
func (c Color) Valid() bool {
	return c >= ColorRed && c <= ColorBlue
}

// ParseColor converts a wire name into a Color. The empty string maps to ColorNone.
func ParseColor(s string) (Color, error) {
	if strings.TrimSpace(s) == "" {
		return ColorNone, nil
	}
	norm := normalize(s)
	for c, name := range colorNames {
		if normalize(name) == norm {
			return c, nil
		}
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// Card is a single physical card. Two cards with the same face are still
// distinct cards and are told apart by ID.
type Card struct {
	id    string
	kind  Kind
	rank  int
	color Color
}

// NewNumber creates a number card of the given rank and colour.
func NewNumber(rank int, color Color) (*Card, error) {
	if rank < 0 || rank > 9 {
		return nil, fmt.Errorf("%w: rank %d out of range", ErrInvalidCard, rank)
	}
	if !color.Valid() {
		return nil, fmt.Errorf("%w: number card needs a color, got %s", ErrInvalidCard, color)
	}
	return &Card{id: uuid.NewString(), kind: KindNumber, rank: rank, color: color}, nil
}

// NewAction creates a Skip, Reverse or DrawTwo card.
func NewAction(kind Kind, color Color) (*Card, error) {
	if kind != KindSkip && kind != KindReverse && kind != KindDrawTwo {
		return nil, fmt.Errorf("%w: %s is not an action kind", ErrInvalidCard, kind)
	}
	if !color.Valid() {
		return nil, fmt.Errorf("%w: %s needs a color, got %s", ErrInvalidCard, kind, color)
	}
	return &Card{id: uuid.NewString(), kind: kind, rank: -1, color: color}, nil
}

// NewWild creates an unresolved Wild or WildDrawFour card.
func NewWild(kind Kind) (*Card, error) {
	if !kind.IsWild() {
		return nil, fmt.Errorf("%w: %s is not a wild kind", ErrInvalidCard, kind)
	}
	return &Card{id: uuid.NewString(), kind: kind, rank: -1, color: ColorNone}, nil
}

func (c *Card) ID() string   { return c.id }
func (c *Card) Kind() Kind   { return c.kind }
func (c *Card) Color() Color { return c.color }

// Rank returns the face value and true for number cards.
func (c *Card) Rank() (int, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.rank, true
}

// IsWild reports whether the card is a Wild or WildDrawFour.
func (c *Card) IsWild() bool {
	return c.kind.IsWild()
}

// ResolveWild sets the colour chosen by the player who played the wild.
func (c *Card) ResolveWild(color Color) error {
	if !c.kind.IsWild() {
		return fmt.Errorf("%w: %s", ErrNotWild, c)
	}
	if !color.Valid() {
		return fmt.Errorf("%w: cannot resolve wild to %s", ErrInvalidCard, color)
	}
	c.color = color
	return nil
}

// ClearWild removes the chosen colour so the wild can be drawn and played again.
func (c *Card) ClearWild() {
	if c.kind.IsWild() {
		c.color = ColorNone
	}
}

// SameRank reports whether both cards are number cards with the same face value.
func (c *Card) SameRank(other *Card) bool {
	a, ok := c.Rank()
	if !ok {
		return false
	}
	b, ok := other.Rank()
	return ok && a == b
}

// Score returns the points the card is worth in a losing hand.
func (c *Card) Score() int {
	switch c.kind {
	case KindNumber:
		return c.rank
	case KindSkip, KindReverse, KindDrawTwo:
		return 20
	default:
		return 50
	}
}

func (c *Card) String() string {
	switch {
	case c.kind == KindNumber:
		return fmt.Sprintf("%s %d", c.color, c.rank)
	case c.kind.IsWild() && c.color != ColorNone:
		return fmt.Sprintf("%s (%s)", c.kind, c.color)
	case c.kind.IsWild():
		return c.kind.String()
	default:
		return fmt.Sprintf("%s %s", c.color, c.kind)
	}
}
