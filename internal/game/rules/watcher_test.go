package rules

import "testing"

type countingWatcher struct {
	*BaseWatcher
	seen int
}

func newCountingWatcher(key string) *countingWatcher {
	return &countingWatcher{BaseWatcher: NewBaseWatcher(key)}
}

func (w *countingWatcher) Watch(event Event) {
	w.seen++
	w.SetCondition(true)
}

func (w *countingWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.seen = 0
}

func TestWatcherRegistryFansOut(t *testing.T) {
	reg := NewWatcherRegistry()
	a := newCountingWatcher("a")
	b := newCountingWatcher("b")
	reg.AddWatcher(a)
	reg.AddWatcher(b)
	reg.AddWatcher(nil)

	reg.Watch(NewEvent(EventCardPlayed, "r", "alice"))
	if a.seen != 1 || b.seen != 1 {
		t.Fatalf("expected both watchers to see the event, got %d/%d", a.seen, b.seen)
	}
	if !a.ConditionMet() {
		t.Fatalf("expected condition to be met")
	}

	reg.ResetAll()
	if a.seen != 0 || a.ConditionMet() {
		t.Fatalf("expected reset watcher, got seen=%d condition=%t", a.seen, a.ConditionMet())
	}

	reg.RemoveWatcher("b")
	if reg.GetWatcher("b") != nil {
		t.Fatalf("expected watcher b to be removed")
	}
	keys := reg.Keys()
	if len(keys) != 1 || keys[0] != "a" {
		t.Fatalf("expected keys [a], got %v", keys)
	}
}
