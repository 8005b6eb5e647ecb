package watchers

import (
	"github.com/unotable/uno-server-go/internal/game/rules"
)

const (
	CardsPlayedKey = "CardsPlayedWatcher"
	CardsDrawnKey  = "CardsDrawnWatcher"
	UnoKey         = "UnoWatcher"
)

// CardsPlayedWatcher counts the cards each player has played this round.
type CardsPlayedWatcher struct {
	*rules.BaseWatcher
	played map[string]int // playerID -> count
	wilds  map[string]int // playerID -> wilds played
}

// NewCardsPlayedWatcher creates a new cards played watcher.
func NewCardsPlayedWatcher() *CardsPlayedWatcher {
	return &CardsPlayedWatcher{
		BaseWatcher: rules.NewBaseWatcher(CardsPlayedKey),
		played:      make(map[string]int),
		wilds:       make(map[string]int),
	}
}

// Watch implements the Watcher interface.
func (w *CardsPlayedWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardPlayed || event.PlayerID == "" {
		return
	}
	w.played[event.PlayerID]++
	if event.Card != nil && event.Card.IsWild() {
		w.wilds[event.PlayerID]++
	}
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsPlayedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.played = make(map[string]int)
	w.wilds = make(map[string]int)
}

// GetCount returns the number of cards played by a player.
func (w *CardsPlayedWatcher) GetCount(playerID string) int {
	return w.played[playerID]
}

// GetWildCount returns the number of wilds played by a player.
func (w *CardsPlayedWatcher) GetWildCount(playerID string) int {
	return w.wilds[playerID]
}

// CardsDrawnWatcher counts the cards each player has drawn this round,
// penalty draws included.
type CardsDrawnWatcher struct {
	*rules.BaseWatcher
	cardsDrawn map[string]int // playerID -> count
}

// NewCardsDrawnWatcher creates a new cards drawn watcher.
func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	return &CardsDrawnWatcher{
		BaseWatcher: rules.NewBaseWatcher(CardsDrawnKey),
		cardsDrawn:  make(map[string]int),
	}
}

// Watch implements the Watcher interface.
func (w *CardsDrawnWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardsDrawn || event.PlayerID == "" {
		return
	}
	w.cardsDrawn[event.PlayerID] += len(event.Cards)
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsDrawnWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.cardsDrawn = make(map[string]int)
}

// GetCount returns the number of cards drawn by a player.
func (w *CardsDrawnWatcher) GetCount(playerID string) int {
	return w.cardsDrawn[playerID]
}

// UnoWatcher records how often each player got down to a single card.
type UnoWatcher struct {
	*rules.BaseWatcher
	calls map[string]int
}

// NewUnoWatcher creates a new UNO watcher.
func NewUnoWatcher() *UnoWatcher {
	return &UnoWatcher{
		BaseWatcher: rules.NewBaseWatcher(UnoKey),
		calls:       make(map[string]int),
	}
}

// Watch implements the Watcher interface.
func (w *UnoWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventPlayerHasUno || event.PlayerID == "" {
		return
	}
	w.calls[event.PlayerID]++
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *UnoWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.calls = make(map[string]int)
}

// GetCount returns how many times the player reached UNO.
func (w *UnoWatcher) GetCount(playerID string) int {
	return w.calls[playerID]
}
