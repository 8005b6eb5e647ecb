package rules

import (
	"sort"
	"sync"
	"time"

	"github.com/unotable/uno-server-go/internal/game/cards"
)

// EventType indicates the category of a round event.
type EventType string

const (
	// Round lifecycle
	EventRoundStarted EventType = "ROUND_STARTED"
	EventRoundAborted EventType = "ROUND_ABORTED"
	EventGameOver     EventType = "GAME_OVER"

	// Plays and draws
	EventCardPlayed     EventType = "CARD_PLAYED"
	EventPlayRejected   EventType = "PLAY_REJECTED"
	EventCardsDrawn     EventType = "CARDS_DRAWN"
	EventDeckReshuffled EventType = "DECK_RESHUFFLED"

	// Turn state
	EventTurnAdvanced      EventType = "TURN_ADVANCED"
	EventDirectionReversed EventType = "DIRECTION_REVERSED"
	EventPlayerHasUno      EventType = "PLAYER_HAS_UNO"
)

// Event is something that happened in a round. Which fields are set
// depends on Type.
type Event struct {
	Type      EventType
	RoundID   string
	PlayerID  string        // Acting player, or the winner for GAME_OVER
	Card      *cards.Card   // Card played
	Cards     []*cards.Card // Cards drawn
	Color     cards.Color   // Colour chosen for a wild
	Amount    int           // Penalty size, score, or number of cards
	Reason    string        // Why a play was rejected or a round aborted
	Timestamp time.Time
	Metadata  map[string]string
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
// Listeners are called in subscription order.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	bus.removeTyped(handle)
}

// UnsubscribeTyped removes a typed listener by handle.
func (bus *EventBus) UnsubscribeTyped(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.removeTyped(handle)
}

func (bus *EventBus) removeTyped(handle int) {
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
// Listeners may subscribe or unsubscribe from inside a callback.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	handles := make([]int, 0, len(bus.listeners))
	for h := range bus.listeners {
		handles = append(handles, h)
	}
	sort.Ints(handles)
	all := make([]Listener, 0, len(handles))
	for _, h := range handles {
		all = append(all, bus.listeners[h])
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// PublishBatch publishes multiple events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, roundID, playerID string) Event {
	return Event{
		Type:      eventType,
		RoundID:   roundID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, roundID, playerID string, amount int) Event {
	evt := NewEvent(eventType, roundID, playerID)
	evt.Amount = amount
	return evt
}

// NewCardEvent creates an event about a single card.
func NewCardEvent(eventType EventType, roundID, playerID string, card *cards.Card) Event {
	evt := NewEvent(eventType, roundID, playerID)
	evt.Card = card
	if card != nil {
		evt.Color = card.Color()
	}
	return evt
}
