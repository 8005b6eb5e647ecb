package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrTooManySessions = errors.New("too many sessions")
)

// Session is a logged-in connection. It outlives neither its lease nor the
// server process.
type Session struct {
	ID        string
	Host      string
	CreatedAt time.Time

	mu           sync.RWMutex
	userID       string
	lastActivity time.Time
}

// SetUserID binds the session to a user.
func (s *Session) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
}

// GetUserID returns the bound user, or "" before login.
func (s *Session) GetUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// UpdateActivity renews the lease.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns when the lease was last renewed.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) expired(now time.Time, lease time.Duration) bool {
	return now.Sub(s.LastActivity()) > lease
}

// Manager tracks sessions and expires the ones whose lease ran out.
type Manager interface {
	CreateSession(sessionID, host string) (*Session, error)
	GetSession(sessionID string) (*Session, bool)
	// Validate returns the session if it exists and its lease has not run out.
	Validate(sessionID string) (*Session, error)
	RemoveSession(sessionID string)
	UpdateActivity(sessionID string)
	GetActiveSessions() int
	// OnExpire registers a callback run for every session removed by the sweeper.
	OnExpire(fn func(*Session))
	CleanupExpiredSessions(ctx context.Context)
	CloseAll()
}

type manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	leasePeriod time.Duration
	maxSessions int
	onExpire    []func(*Session)
	logger      *zap.Logger
}

// NewManager creates a session manager. maxSessions <= 0 means no limit.
func NewManager(leasePeriod time.Duration, maxSessions int, logger *zap.Logger) Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &manager{
		sessions:    make(map[string]*Session),
		leasePeriod: leasePeriod,
		maxSessions: maxSessions,
		logger:      logger.Named("session"),
	}
}

func (m *manager) CreateSession(sessionID, host string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists && m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, ErrTooManySessions
	}

	now := time.Now()
	sess := &Session{
		ID:           sessionID,
		Host:         host,
		CreatedAt:    now,
		lastActivity: now,
	}
	m.sessions[sessionID] = sess

	m.logger.Debug("session created",
		zap.String("session_id", sessionID),
		zap.String("host", host),
	)
	return sess, nil
}

func (m *manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

func (m *manager) Validate(sessionID string) (*Session, error) {
	sess, ok := m.GetSession(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.expired(time.Now(), m.leasePeriod) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (m *manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		delete(m.sessions, sessionID)
		m.logger.Debug("session removed", zap.String("session_id", sessionID))
	}
}

func (m *manager) UpdateActivity(sessionID string) {
	if sess, ok := m.GetSession(sessionID); ok {
		sess.UpdateActivity()
	}
}

func (m *manager) GetActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *manager) OnExpire(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = append(m.onExpire, fn)
}

// CleanupExpiredSessions sweeps expired sessions until ctx is done. The
// sweep runs at half the lease period.
func (m *manager) CleanupExpiredSessions(ctx context.Context) {
	interval := m.leasePeriod / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *manager) sweep(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if sess.expired(now, m.leasePeriod) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	callbacks := append([]func(*Session){}, m.onExpire...)
	m.mu.Unlock()

	for _, sess := range expired {
		m.logger.Info("session expired",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.GetUserID()),
		)
		for _, fn := range callbacks {
			fn(sess)
		}
	}
	return len(expired)
}

func (m *manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.logger.Info("closed all sessions", zap.Int("count", count))
}
