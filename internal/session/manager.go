package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// ErrNotFound is returned for unknown, submitted or expired session IDs.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an unsubmitted session is kept.
const DefaultTTL = 2 * time.Hour

// Manager keeps sessions in memory, keyed by ID. A session is dropped once
// it is submitted, or when it is older than the TTL.
type Manager struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager that starts sessions from loader. A ttl of
// zero or less keeps unsubmitted sessions until they are submitted.
func NewManager(loader Loader, ttl time.Duration) *Manager {
	return &Manager{
		loader:   loader,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Start loads the stored question set and opens a new session on it. The
// loader's error, such as store.ErrNoQuestions, is returned unchanged.
// Expired sessions are swept first.
func (m *Manager) Start() (*Session, error) {
	set, err := m.loader.Load()
	if err != nil {
		return nil, err
	}
	s := New(set)
	s.CreatedAt = m.now()

	m.mu.Lock()
	m.sweepLocked()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expiredLocked(s) {
		return nil, ErrNotFound
	}
	return s, nil
}

// Submit applies the answers and evaluates the session, then forgets it.
// A concurrent second submit of the same session waits for the first and
// then fails with ErrNotFound.
func (m *Manager) Submit(ctx context.Context, id string, subs []model.AnswerSubmission, ev Evaluator) (*Results, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	res, err := s.SubmitAnswers(ctx, subs, ev)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	_, open := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !open {
		return nil, ErrNotFound
	}
	return res, nil
}

// Delete forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) expiredLocked(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.CreatedAt) > m.ttl
}

func (m *Manager) sweepLocked() {
	for id, s := range m.sessions {
		if m.expiredLocked(s) {
			delete(m.sessions, id)
		}
	}
	if n := len(m.sessions); n > 0 {
		slog.Debug("open test sessions", "count", n)
	}
}
