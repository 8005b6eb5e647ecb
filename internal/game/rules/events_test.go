package rules

import (
	"testing"
	"time"

	"github.com/unotable/uno-server-go/internal/game/cards"
)

func TestEventBusSubscribeTyped(t *testing.T) {
	bus := NewEventBus()

	playedCount := 0
	drawnCount := 0

	handle1 := bus.SubscribeTyped(EventCardPlayed, func(e Event) {
		playedCount++
	})
	handle2 := bus.SubscribeTyped(EventCardsDrawn, func(e Event) {
		drawnCount++
	})

	bus.Publish(NewEvent(EventCardPlayed, "round1", "alice"))
	if playedCount != 1 || drawnCount != 0 {
		t.Fatalf("expected counts 1/0, got %d/%d", playedCount, drawnCount)
	}

	bus.Publish(NewEventWithAmount(EventCardsDrawn, "round1", "bob", 2))
	if playedCount != 1 || drawnCount != 1 {
		t.Fatalf("expected counts 1/1, got %d/%d", playedCount, drawnCount)
	}

	bus.UnsubscribeTyped(handle1)
	bus.Publish(NewEvent(EventCardPlayed, "round1", "alice"))
	if playedCount != 1 {
		t.Fatalf("expected played count still 1 after unsubscribe, got %d", playedCount)
	}

	bus.Unsubscribe(handle2)
	bus.Publish(NewEvent(EventCardsDrawn, "round1", "bob"))
	if drawnCount != 1 {
		t.Fatalf("expected drawn count still 1 after unsubscribe, got %d", drawnCount)
	}
}

func TestEventBusSubscribeAllInOrder(t *testing.T) {
	bus := NewEventBus()

	var order []string
	bus.Subscribe(func(e Event) { order = append(order, "first:"+string(e.Type)) })
	bus.Subscribe(func(e Event) { order = append(order, "second:"+string(e.Type)) })

	bus.PublishBatch([]Event{
		NewEvent(EventRoundStarted, "r", ""),
		NewEvent(EventGameOver, "r", "alice"),
	})

	want := []string{
		"first:ROUND_STARTED", "second:ROUND_STARTED",
		"first:GAME_OVER", "second:GAME_OVER",
	}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestEventBusListenerCanUnsubscribeItself(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	var handle int
	handle = bus.Subscribe(func(e Event) {
		calls++
		bus.Unsubscribe(handle)
	})

	bus.Publish(NewEvent(EventTurnAdvanced, "r", "alice"))
	bus.Publish(NewEvent(EventTurnAdvanced, "r", "bob"))
	if calls != 1 {
		t.Fatalf("expected listener to run once, got %d", calls)
	}
}

func TestEventBusNilListeners(t *testing.T) {
	bus := NewEventBus()
	if h := bus.Subscribe(nil); h != -1 {
		t.Fatalf("expected -1 for nil listener, got %d", h)
	}
	if h := bus.SubscribeTyped(EventGameOver, nil); h != -1 {
		t.Fatalf("expected -1 for nil typed listener, got %d", h)
	}
}

func TestNewCardEvent(t *testing.T) {
	w, err := cards.NewWild(cards.KindWild)
	if err != nil {
		t.Fatalf("new wild: %v", err)
	}
	if err := w.ResolveWild(cards.ColorGreen); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	before := time.Now()
	evt := NewCardEvent(EventCardPlayed, "r", "alice", w)
	if evt.Card != w || evt.Color != cards.ColorGreen {
		t.Fatalf("expected event to carry card and colour, got %+v", evt)
	}
	if evt.Timestamp.Before(before) {
		t.Fatalf("expected timestamp to be set")
	}
	if evt.Metadata == nil {
		t.Fatalf("expected metadata map")
	}
}
