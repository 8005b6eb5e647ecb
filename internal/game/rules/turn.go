package rules

import (
	"fmt"
)

// Direction is the order in which seats take turns.
type Direction int

const (
	Forward Direction = iota
	Backward
)

var directionNames = map[Direction]string{
	Forward:  "FORWARD",
	Backward: "BACKWARD",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DIRECTION_%d", int(d))
}

// TurnOrder tracks whose turn it is and which way play goes round the table.
type TurnOrder struct {
	index      int
	direction  Direction
	players    int
	turnNumber int
}

// NewTurnOrder creates a turn order for n seats, starting at seat 0 going forward.
func NewTurnOrder(n int) *TurnOrder {
	return &TurnOrder{
		index:      0,
		direction:  Forward,
		players:    n,
		turnNumber: 1,
	}
}

// Index returns the seat whose turn it is.
func (t *TurnOrder) Index() int { return t.index }

// Direction returns the current direction of play.
func (t *TurnOrder) Direction() Direction { return t.direction }

// Players returns the number of seats.
func (t *TurnOrder) Players() int { return t.players }

// TurnNumber counts turns since the round started, starting at 1.
func (t *TurnOrder) TurnNumber() int { return t.turnNumber }

// NextIndex returns the seat after the current one in the current direction.
// Stepping back from seat 0 lands on the last seat.
func (t *TurnOrder) NextIndex() int {
	if t.players <= 0 {
		return 0
	}
	step := 1
	if t.direction == Backward {
		step = -1
	}
	next := t.index + step
	if next < 0 {
		next = t.players - 1
	}
	if next >= t.players {
		next = 0
	}
	return next
}

// Advance moves the turn to NextIndex and returns the new seat.
func (t *TurnOrder) Advance() int {
	t.index = t.NextIndex()
	t.turnNumber++
	return t.index
}

// Reverse flips the direction of play. It does not move the turn.
func (t *TurnOrder) Reverse() Direction {
	if t.direction == Forward {
		t.direction = Backward
	} else {
		t.direction = Forward
	}
	return t.direction
}

// Reset puts the turn back on seat 0 going forward.
func (t *TurnOrder) Reset(n int) {
	t.index = 0
	t.direction = Forward
	t.players = n
	t.turnNumber = 1
}

// Restore sets the raw turn state, as recorded in a snapshot.
func (t *TurnOrder) Restore(index int, direction Direction, n, turnNumber int) error {
	if n > 0 && (index < 0 || index >= n) {
		return fmt.Errorf("turn index %d out of range for %d players", index, n)
	}
	t.index = index
	t.direction = direction
	t.players = n
	t.turnNumber = turnNumber
	return nil
}
