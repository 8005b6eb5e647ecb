package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unotable/uno-server-go/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	dup := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_name_key"}
	err := mapError(dup)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "users_name_key")

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}

func TestNewDBRequiresURL(t *testing.T) {
	_, err := NewDB(context.Background(), config.DatabaseConfig{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

// testDB connects to the database named by UNO_TEST_DATABASE_URL or skips.
func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("UNO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("UNO_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func uniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func TestUserRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	name := uniqueName("alice")

	created, err := users.Create(ctx, name, "hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = users.Create(ctx, name, "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := users.GetByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Nil(t, got.LastLogin)

	require.NoError(t, users.UpdateLastLogin(ctx, name))
	got, err = users.GetByName(ctx, name)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)

	_, err = users.GetByName(ctx, uniqueName("nobody"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatsRepository(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	stats := NewStatsRepository(db)

	winner, loser := uniqueName("win"), uniqueName("lose")
	for _, name := range []string{winner, loser} {
		_, err := users.Create(ctx, name, "hash")
		require.NoError(t, err)
	}

	empty, err := stats.Get(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.GamesPlayed)

	round := []GameRecord{
		{UserName: winner, Won: true, Points: 42, CardsPlayed: 7},
		{UserName: loser, CardsPlayed: 5},
	}
	require.NoError(t, stats.RecordGame(ctx, round))
	require.NoError(t, stats.RecordGame(ctx, round))

	s, err := stats.Get(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, 2, s.GamesPlayed)
	assert.Equal(t, 2, s.GamesWon)
	assert.Equal(t, int64(84), s.Points)
	assert.Equal(t, 14, s.CardsPlayed)

	s, err = stats.Get(ctx, loser)
	require.NoError(t, err)
	assert.Equal(t, 2, s.GamesPlayed)
	assert.Equal(t, 0, s.GamesWon)

	board, err := stats.Leaderboard(ctx, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, board)
}
