package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/models"
)

// SessionManager owns the in-memory edit sessions of all managers.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*EditSession
	schedule *ScheduleService
	ttl      time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewSessionManager creates a manager whose sessions expire after ttl of
// inactivity.
func NewSessionManager(schedule *ScheduleService, ttl time.Duration, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*EditSession),
		schedule: schedule,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create opens a session on the week containing weekStart.
func (m *SessionManager) Create(ctx context.Context, userID uuid.UUID, terminal int, weekStart time.Time) (*EditSession, error) {
	if err := m.schedule.checkTerminal(terminal); err != nil {
		return nil, err
	}

	session := &EditSession{
		ID:       uuid.New(),
		UserID:   userID,
		Terminal: terminal,
		schedule: m.schedule,
		logger:   m.logger,
		pending:  make(map[time.Time][]models.StaffWeek),
		now:      m.now,
	}
	if err := session.Open(ctx, weekStart); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"user_id":    userID,
		"terminal":   terminal,
	}).Info("Edit session opened")

	return session, nil
}

// Get returns a session owned by userID.
func (m *SessionManager) Get(id, userID uuid.UUID) (*EditSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete discards a session and any edits it still buffers.
func (m *SessionManager) Delete(id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok || session.UserID != userID {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// DiscardUser drops every session of a user, as on sign-out.
func (m *SessionManager) DiscardUser(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Sweep drops sessions idle for longer than the TTL.
func (m *SessionManager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.LastUsed().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.WithField("count", removed).Info("Expired idle edit sessions")
	}
	return removed
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
