package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T) (*Manager, *recordingSender) {
	t.Helper()
	sender := newRecordingSender()
	m := NewManager(testGameConfig(), sender, zaptest.NewLogger(t))
	t.Cleanup(m.CloseAll)
	return m, sender
}

func TestManagerJoinCreatesRoom(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	r, created, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, r.ID())

	same, created, err := m.Join(ctx, r.ID(), "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, r, same)

	found, ok := m.FindByPlayer("bob")
	require.True(t, ok)
	assert.Same(t, r, found)

	got, err := m.Get(r.ID())
	require.NoError(t, err)
	assert.Same(t, r, got)

	info, err := r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", info.HostID)
}

func TestManagerJoinUnknownRoomCreatesNewOne(t *testing.T) {
	m, _ := newTestManager(t)

	r, created, err := m.Join(context.Background(), "does-not-exist", "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "does-not-exist", r.ID())
	assert.Equal(t, 1, m.Count())
}

func TestManagerOneRoomPerPlayer(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, _, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)

	_, _, err = m.Join(ctx, "", "alice")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	again, _, err := m.Join(ctx, first.ID(), "alice")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, m.Count())
}

func TestManagerJoinStartedRoom(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	r, _, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	_, _, err = m.Join(ctx, r.ID(), "bob")
	require.NoError(t, err)
	require.NoError(t, r.Start(ctx, "alice"))

	_, _, err = m.Join(ctx, r.ID(), "carol")
	assert.ErrorIs(t, err, ErrRoundInProgress)
	_, ok := m.FindByPlayer("carol")
	assert.False(t, ok)

	// Carol is free to go elsewhere.
	_, created, err := m.Join(ctx, "", "carol")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestManagerLeaveRemovesEmptyRoom(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	r, _, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	_, _, err = m.Join(ctx, r.ID(), "bob")
	require.NoError(t, err)

	require.NoError(t, m.Leave(ctx, "alice"))
	assert.Equal(t, 1, m.Count())
	_, ok := m.FindByPlayer("alice")
	assert.False(t, ok)

	require.NoError(t, m.Leave(ctx, "bob"))
	assert.Equal(t, 0, m.Count())
	_, err = m.Get(r.ID())
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.ErrorIs(t, m.Leave(ctx, "bob"), ErrNotMember)
}

func TestManagerList(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a, _, err := m.Join(ctx, "", "alice")
	require.NoError(t, err)
	b, _, err := m.Join(ctx, "", "bob")
	require.NoError(t, err)

	infos, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	ids := []string{infos[0].ID, infos[1].ID}
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, ids)
}
