package match

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unotable/uno-server-go/internal/game"
)

var (
	ErrMatchFinished  = errors.New("match already finished")
	ErrPlayerNotFound = errors.New("player not in match")
	ErrUnknownWinner  = errors.New("round winner is not in the match")
)

// State represents the state of a match
type State int

const (
	StateWaiting State = iota
	StateInProgress
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Player is one participant's running total.
type Player struct {
	Name         string
	Points       int
	RoundsWon    int
	RoundsPlayed int
	Quit         bool
}

// RoundRecord is one finished round of the match.
type RoundRecord struct {
	Number     int
	RoundID    string
	Winner     string
	Points     int
	FinishedAt time.Time
}

// PlayerSnapshot captures a player's standing for external use.
type PlayerSnapshot struct {
	Name         string `json:"name"`
	Points       int    `json:"points"`
	RoundsWon    int    `json:"roundsWon"`
	RoundsPlayed int    `json:"roundsPlayed"`
	Quit         bool   `json:"quit,omitempty"`
}

// RoundSnapshot captures a finished round for external use.
type RoundSnapshot struct {
	Number  int    `json:"number"`
	RoundID string `json:"roundId"`
	Winner  string `json:"winner"`
	Points  int    `json:"points"`
}

// Snapshot captures a consistent view of a match.
type Snapshot struct {
	ID          string           `json:"id"`
	RoomID      string           `json:"roomId"`
	State       string           `json:"state"`
	TargetScore int              `json:"targetScore"`
	Players     []PlayerSnapshot `json:"players"`
	Rounds      []RoundSnapshot  `json:"rounds"`
	Winner      string           `json:"winner,omitempty"`
	CreateTime  time.Time        `json:"createTime"`
	StartTime   *time.Time       `json:"startTime,omitempty"`
	EndTime     *time.Time       `json:"endTime,omitempty"`
}

// Match is a series of rounds in one room. Each round's winner scores the
// cards left in the other hands; the first player to reach TargetScore
// wins the match.
type Match struct {
	ID          string
	RoomID      string
	TargetScore int
	State       State
	Players     map[string]*Player
	PlayerOrder []string // Maintains insertion order
	Rounds      []RoundRecord
	Winner      string
	CreateTime  time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	mu          sync.RWMutex
}

// New creates a match for a room.
func New(roomID string, targetScore int) *Match {
	return &Match{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		TargetScore: targetScore,
		State:       StateWaiting,
		Players:     make(map[string]*Player),
		PlayerOrder: make([]string, 0),
		Rounds:      make([]RoundRecord, 0),
		CreateTime:  time.Now(),
	}
}

// AddPlayer adds a player to the match. A player who quit earlier is
// taken back with their points.
func (m *Match) AddPlayer(playerName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State == StateFinished {
		return ErrMatchFinished
	}

	if player, exists := m.Players[playerName]; exists {
		player.Quit = false
		return nil
	}

	m.Players[playerName] = &Player{Name: playerName}
	m.PlayerOrder = append(m.PlayerOrder, playerName)
	return nil
}

// QuitPlayer marks a player as having left. Their points stay on the board.
func (m *Match) QuitPlayer(playerName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	player, exists := m.Players[playerName]
	if !exists {
		return ErrPlayerNotFound
	}
	player.Quit = true
	return nil
}

// GetState returns the current match state
func (m *Match) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.State
}

// RecordRound adds a won round to the totals and reports whether it
// decided the match.
func (m *Match) RecordRound(result *game.Result) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State == StateFinished {
		return false, ErrMatchFinished
	}
	winner, ok := m.Players[result.WinnerID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownWinner, result.WinnerID)
	}

	if m.State == StateWaiting {
		now := time.Now()
		m.StartTime = &now
		m.State = StateInProgress
	}

	for _, line := range result.Players {
		if p, ok := m.Players[line.PlayerID]; ok {
			p.RoundsPlayed++
		}
	}
	winner.RoundsWon++
	winner.Points += result.Score

	m.Rounds = append(m.Rounds, RoundRecord{
		Number:     len(m.Rounds) + 1,
		RoundID:    result.RoundID,
		Winner:     winner.Name,
		Points:     result.Score,
		FinishedAt: result.FinishedAt,
	})

	if m.TargetScore > 0 && winner.Points >= m.TargetScore {
		now := time.Now()
		m.EndTime = &now
		m.State = StateFinished
		m.Winner = winner.Name
		return true, nil
	}
	return false, nil
}

// Standings returns every player ordered by points, then rounds won, then
// name.
func (m *Match) Standings() []PlayerSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.standings()
}

func (m *Match) standings() []PlayerSnapshot {
	players := make([]PlayerSnapshot, 0, len(m.PlayerOrder))
	for _, name := range m.PlayerOrder {
		if player, ok := m.Players[name]; ok {
			players = append(players, PlayerSnapshot{
				Name:         player.Name,
				Points:       player.Points,
				RoundsWon:    player.RoundsWon,
				RoundsPlayed: player.RoundsPlayed,
				Quit:         player.Quit,
			})
		}
	}
	slices.SortStableFunc(players, func(a, b PlayerSnapshot) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		if a.RoundsWon != b.RoundsWon {
			return b.RoundsWon - a.RoundsWon
		}
		return strings.Compare(a.Name, b.Name)
	})
	return players
}

// Snapshot returns a consistent copy of the match state.
func (m *Match) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rounds := make([]RoundSnapshot, 0, len(m.Rounds))
	for _, r := range m.Rounds {
		rounds = append(rounds, RoundSnapshot{
			Number:  r.Number,
			RoundID: r.RoundID,
			Winner:  r.Winner,
			Points:  r.Points,
		})
	}

	return Snapshot{
		ID:          m.ID,
		RoomID:      m.RoomID,
		State:       m.State.String(),
		TargetScore: m.TargetScore,
		Players:     m.standings(),
		Rounds:      rounds,
		Winner:      m.Winner,
		CreateTime:  m.CreateTime,
		StartTime:   cloneTime(m.StartTime),
		EndTime:     cloneTime(m.EndTime),
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}
