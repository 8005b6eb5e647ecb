package user

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/unotable/uno-server-go/internal/repository"
)

// MemoryStore keeps accounts and statistics in process memory. It serves
// as both stores when the server runs without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]*repository.User
	stats  map[string]*repository.Stats
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*repository.User),
		stats: make(map[string]*repository.Stats),
	}
}

func (s *MemoryStore) Create(_ context.Context, name, passwordHash string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; ok {
		return nil, fmt.Errorf("create user %s: %w", name, repository.ErrDuplicate)
	}
	s.nextID++
	u := &repository.User{
		ID:           s.nextID,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[name] = u
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) GetByName(_ context.Context, name string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[name]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", name, repository.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[name]
	if !ok {
		return fmt.Errorf("update last login for %s: %w", name, repository.ErrNotFound)
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func (s *MemoryStore) RecordGame(_ context.Context, records []repository.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		st, ok := s.stats[rec.UserName]
		if !ok {
			st = &repository.Stats{UserName: rec.UserName}
			s.stats[rec.UserName] = st
		}
		st.GamesPlayed++
		if rec.Won {
			st.GamesWon++
		}
		st.Points += int64(rec.Points)
		st.CardsPlayed += rec.CardsPlayed
		st.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userName string) (*repository.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.stats[userName]; ok {
		copied := *st
		return &copied, nil
	}
	return &repository.Stats{UserName: userName}, nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, limit int) ([]repository.Stats, error) {
	s.mu.RLock()
	board := make([]repository.Stats, 0, len(s.stats))
	for _, st := range s.stats {
		board = append(board, *st)
	}
	s.mu.RUnlock()

	slices.SortFunc(board, func(a, b repository.Stats) int {
		if a.Points != b.Points {
			if a.Points > b.Points {
				return -1
			}
			return 1
		}
		if a.GamesWon != b.GamesWon {
			return b.GamesWon - a.GamesWon
		}
		return strings.Compare(a.UserName, b.UserName)
	})
	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}
