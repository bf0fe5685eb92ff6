package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-reader/app/reader"
)

var ErrNotFound = errors.New("session not found")

const defaultTTL = 30 * time.Minute

// Manager is the registry of live sessions. Sessions idle for longer than the
// TTL are closed by a background reaper.
type Manager struct {
	parser reader.ParserInterface
	runner reader.FetchRunner
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(parser reader.ParserInterface, runner reader.FetchRunner, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		parser:   parser,
		runner:   runner,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) Create() (*Session, error) {
	if err := m.ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := slog.Default().With("session", id)
	controller := reader.NewController(reader.NewStore(), m.parser, m.runner).WithLogger(logger)
	s := newSession(m.ctx, id, controller)

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	slog.Info("Session created", "session", id, "active", count)
	return s, nil
}

// Get returns the session and marks it as in use.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	slog.Info("Session removed", "session", id)
	return nil
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start runs the reaper. It checks at a tenth of the TTL, at least once a
// second.
func (m *Manager) Start() {
	interval := m.ttl / 10
	if interval < time.Second {
		interval = time.Second
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.reap(time.Now())
			}
		}
	}()
}

// Stop closes every session and waits for the reaper.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	slog.Debug("Sessions closed", "count", len(sessions))
}

// reap closes sessions idle since before now-ttl and returns how many.
func (m *Manager) reap(now time.Time) int {
	cutoff := now.Add(-m.ttl)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		slog.Info("Session expired", "session", s.ID, "last_seen", s.LastSeen())
	}
	return len(expired)
}
