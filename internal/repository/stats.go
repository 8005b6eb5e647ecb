package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Stats are a user's totals over every finished round.
type Stats struct {
	UserName    string    `json:"username"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	Points      int64     `json:"points"`
	CardsPlayed int       `json:"cardsPlayed"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GameRecord is one user's part in a finished round.
type GameRecord struct {
	UserName    string
	Won         bool
	Points      int
	CardsPlayed int
}

// StatsRepository stores per-user round statistics.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a stats repository.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// RecordGame adds one finished round to every participant's totals in a
// single transaction.
func (r *StatsRepository) RecordGame(ctx context.Context, records []GameRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			won := 0
			if rec.Won {
				won = 1
			}
			batch.Queue(`
				INSERT INTO user_stats (user_name, games_played, games_won, points, cards_played)
				VALUES ($1, 1, $2, $3, $4)
				ON CONFLICT (user_name) DO UPDATE SET
					games_played = user_stats.games_played + 1,
					games_won    = user_stats.games_won + EXCLUDED.games_won,
					points       = user_stats.points + EXCLUDED.points,
					cards_played = user_stats.cards_played + EXCLUDED.cards_played,
					updated_at   = now()`,
				rec.UserName, won, rec.Points, rec.CardsPlayed,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("record game: %w", mapError(err))
	}
	return nil
}

// Get returns a user's totals. A user who never finished a round has zero totals.
func (r *StatsRepository) Get(ctx context.Context, userName string) (*Stats, error) {
	s := &Stats{UserName: userName}
	err := r.db.pool.QueryRow(ctx,
		`SELECT games_played, games_won, points, cards_played, updated_at
		   FROM user_stats WHERE user_name = $1`,
		userName,
	).Scan(&s.GamesPlayed, &s.GamesWon, &s.Points, &s.CardsPlayed, &s.UpdatedAt)
	if err != nil {
		if mapped := mapError(err); mapped == ErrNotFound {
			return s, nil
		}
		return nil, fmt.Errorf("get stats for %s: %w", userName, err)
	}
	return s, nil
}

// Leaderboard returns the users with the most points.
func (r *StatsRepository) Leaderboard(ctx context.Context, limit int) ([]Stats, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT user_name, games_played, games_won, points, cards_played, updated_at
		   FROM user_stats ORDER BY points DESC, games_won DESC, user_name LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	board, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Stats])
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return board, nil
}
