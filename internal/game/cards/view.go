package cards

// View is the wire representation of a card.
type View struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	Color string `json:"color,omitempty"`
	Rank  *int   `json:"rank,omitempty"`
}

// View returns the wire representation of c.
func (c *Card) View() View {
	v := View{ID: c.id, Kind: c.kind.String()}
	if c.color != ColorNone {
		v.Color = c.color.String()
	}
	if rank, ok := c.Rank(); ok {
		v.Rank = &rank
	}
	return v
}

// Views converts a slice of cards.
func Views(cs []*Card) []View {
	out := make([]View, len(cs))
	for i, c := range cs {
		out[i] = c.View()
	}
	return out
}

// Record is the full state of a card for snapshots. Unlike View it keeps the
// typed kind and colour and round-trips through gob without loss.
type Record struct {
	ID    string
	Kind  Kind
	Color Color
	Rank  int
}

// Record returns the snapshot form of c.
func (c *Card) Record() Record {
	return Record{ID: c.id, Kind: c.kind, Color: c.color, Rank: c.rank}
}

// Records converts a slice of cards.
func Records(cs []*Card) []Record {
	out := make([]Record, len(cs))
	for i, c := range cs {
		out[i] = c.Record()
	}
	return out
}
