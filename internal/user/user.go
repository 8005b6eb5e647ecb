package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/unotable/uno-server-go/internal/config"
	"github.com/unotable/uno-server-go/internal/game"
	"github.com/unotable/uno-server-go/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, name, passwordHash string) (*repository.User, error)
	GetByName(ctx context.Context, name string) (*repository.User, error)
	UpdateLastLogin(ctx context.Context, name string) error
}

// StatsStore persists round statistics.
type StatsStore interface {
	RecordGame(ctx context.Context, records []repository.GameRecord) error
	Get(ctx context.Context, userName string) (*repository.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.Stats, error)
}

// Manager handles accounts and their statistics.
type Manager interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (*repository.User, error)
	RecordRoundResult(ctx context.Context, result *game.Result) error
	GetStats(ctx context.Context, username string) (*repository.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.Stats, error)
}

type manager struct {
	users  UserStore
	stats  StatsStore
	rules  config.ValidationConfig
	logger *zap.Logger
}

// NewManager creates a user manager.
func NewManager(users UserStore, stats StatsStore, rules config.ValidationConfig, logger *zap.Logger) Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rules.BcryptCost == 0 {
		rules.BcryptCost = bcrypt.DefaultCost
	}
	return &manager{
		users:  users,
		stats:  stats,
		rules:  rules,
		logger: logger.Named("user"),
	}
}

func (m *manager) validate(username, password string) error {
	if n := len(username); n < m.rules.MinUsernameLength || (m.rules.MaxUsernameLength > 0 && n > m.rules.MaxUsernameLength) {
		return fmt.Errorf("%w: must be %d to %d characters", ErrInvalidUsername, m.rules.MinUsernameLength, m.rules.MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: only letters, digits, '_' and '-' are allowed", ErrInvalidUsername)
	}
	if len(password) < m.rules.MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, m.rules.MinPasswordLength)
	}
	// bcrypt ignores everything after 72 bytes.
	if len(password) > 72 {
		return fmt.Errorf("%w: must be at most 72 bytes", ErrInvalidPassword)
	}
	return nil
}

func (m *manager) Register(ctx context.Context, username, password string) error {
	if err := m.validate(username, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.rules.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := m.users.Create(ctx, username, string(hash)); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUserExists
		}
		return fmt.Errorf("register %s: %w", username, err)
	}

	m.logger.Info("user registered", zap.String("username", username))
	return nil
}

func (m *manager) Authenticate(ctx context.Context, username, password string) (*repository.User, error) {
	u, err := m.users.GetByName(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		m.logger.Debug("password mismatch", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	if err := m.users.UpdateLastLogin(ctx, username); err != nil {
		m.logger.Warn("failed to update last login", zap.String("username", username), zap.Error(err))
	}
	return u, nil
}

// RecordRoundResult adds a finished round to every seated player's totals.
// Player IDs are usernames.
func (m *manager) RecordRoundResult(ctx context.Context, result *game.Result) error {
	if result == nil {
		return nil
	}
	records := make([]repository.GameRecord, 0, len(result.Players))
	for _, p := range result.Players {
		rec := repository.GameRecord{
			UserName:    p.PlayerID,
			CardsPlayed: p.CardsPlayed,
		}
		if p.PlayerID == result.WinnerID {
			rec.Won = true
			rec.Points = result.Score
		}
		records = append(records, rec)
	}

	if err := m.stats.RecordGame(ctx, records); err != nil {
		return fmt.Errorf("record round %s: %w", result.RoundID, err)
	}

	m.logger.Info("round recorded",
		zap.String("round_id", result.RoundID),
		zap.String("winner", result.WinnerID),
		zap.Int("score", result.Score),
	)
	return nil
}

func (m *manager) GetStats(ctx context.Context, username string) (*repository.Stats, error) {
	if _, err := m.users.GetByName(ctx, username); err != nil {
		return nil, err
	}
	return m.stats.Get(ctx, username)
}

func (m *manager) Leaderboard(ctx context.Context, limit int) ([]repository.Stats, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return m.stats.Leaderboard(ctx, limit)
}
