package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unotable/uno-server-go/internal/game"
)

func result(winner string, score int, seated ...string) *game.Result {
	res := &game.Result{RoundID: "round-" + winner, WinnerID: winner, Score: score}
	for _, id := range seated {
		res.Players = append(res.Players, game.PlayerResult{PlayerID: id})
	}
	return res
}

func TestRecordRoundAccumulates(t *testing.T) {
	m := New("room-1", 100)
	require.NoError(t, m.AddPlayer("alice"))
	require.NoError(t, m.AddPlayer("bob"))
	assert.Equal(t, StateWaiting, m.GetState())

	done, err := m.RecordRound(result("alice", 40, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StateInProgress, m.GetState())

	done, err = m.RecordRound(result("bob", 30, "alice", "bob"))
	require.NoError(t, err)
	assert.False(t, done)

	standings := m.Standings()
	require.Len(t, standings, 2)
	assert.Equal(t, PlayerSnapshot{Name: "alice", Points: 40, RoundsWon: 1, RoundsPlayed: 2}, standings[0])
	assert.Equal(t, PlayerSnapshot{Name: "bob", Points: 30, RoundsWon: 1, RoundsPlayed: 2}, standings[1])
}

func TestReachingTargetFinishesMatch(t *testing.T) {
	m := New("room-1", 50)
	require.NoError(t, m.AddPlayer("alice"))
	require.NoError(t, m.AddPlayer("bob"))

	_, err := m.RecordRound(result("bob", 20, "alice", "bob"))
	require.NoError(t, err)
	done, err := m.RecordRound(result("bob", 30, "alice", "bob"))
	require.NoError(t, err)
	assert.True(t, done)

	snap := m.Snapshot()
	assert.Equal(t, "FINISHED", snap.State)
	assert.Equal(t, "bob", snap.Winner)
	assert.NotNil(t, snap.StartTime)
	assert.NotNil(t, snap.EndTime)
	require.Len(t, snap.Rounds, 2)
	assert.Equal(t, 2, snap.Rounds[1].Number)

	_, err = m.RecordRound(result("alice", 10, "alice", "bob"))
	assert.True(t, errors.Is(err, ErrMatchFinished))
	assert.True(t, errors.Is(m.AddPlayer("carol"), ErrMatchFinished))
}

func TestZeroTargetNeverFinishes(t *testing.T) {
	m := New("room-1", 0)
	require.NoError(t, m.AddPlayer("alice"))
	for i := 0; i < 5; i++ {
		done, err := m.RecordRound(result("alice", 1000, "alice"))
		require.NoError(t, err)
		assert.False(t, done)
	}
	assert.Equal(t, 5000, m.Standings()[0].Points)
}

func TestUnknownWinner(t *testing.T) {
	m := New("room-1", 500)
	require.NoError(t, m.AddPlayer("alice"))

	_, err := m.RecordRound(result("mallory", 10, "alice", "mallory"))
	assert.True(t, errors.Is(err, ErrUnknownWinner))
	assert.Equal(t, StateWaiting, m.GetState())
	assert.Empty(t, m.Snapshot().Rounds)
}

func TestQuitKeepsPoints(t *testing.T) {
	m := New("room-1", 500)
	require.NoError(t, m.AddPlayer("alice"))
	require.NoError(t, m.AddPlayer("bob"))
	_, err := m.RecordRound(result("bob", 25, "alice", "bob"))
	require.NoError(t, err)

	require.NoError(t, m.QuitPlayer("bob"))
	assert.True(t, errors.Is(m.QuitPlayer("carol"), ErrPlayerNotFound))

	bob := m.Standings()[0]
	assert.Equal(t, "bob", bob.Name)
	assert.True(t, bob.Quit)
	assert.Equal(t, 25, bob.Points)

	// Coming back clears the flag.
	require.NoError(t, m.AddPlayer("bob"))
	assert.False(t, m.Standings()[0].Quit)
	assert.Len(t, m.Standings(), 2)
}

func TestStandingsTieBreak(t *testing.T) {
	m := New("room-1", 0)
	for _, name := range []string{"carol", "bob", "alice"} {
		require.NoError(t, m.AddPlayer(name))
	}
	_, err := m.RecordRound(result("carol", 10, "alice", "bob", "carol"))
	require.NoError(t, err)

	names := []string{}
	for _, p := range m.Standings() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"carol", "alice", "bob"}, names)
}
