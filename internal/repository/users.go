package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// User is a registered account.
type User struct {
	ID           int64
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// UserRepository stores accounts.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken name returns an error wrapping ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, name, passwordHash string) (*User, error) {
	u := &User{Name: name, PasswordHash: passwordHash}
	err := r.db.pool.QueryRow(ctx,
		`INSERT INTO users (name, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		name, passwordHash,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", name, mapError(err))
	}
	return u, nil
}

// GetByName looks a user up by name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*User, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, name, password_hash, created_at, last_login FROM users WHERE name = $1`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", name, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[User])
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", name, mapError(err))
	}
	return u, nil
}

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, name string) error {
	tag, err := r.db.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("update last login for %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update last login for %s: %w", name, ErrNotFound)
	}
	return nil
}
