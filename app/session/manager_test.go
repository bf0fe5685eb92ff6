package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/reader"
)

const sampleRSS = `<rss version="2.0"><channel><title>T</title><description>D</description>
<item><title>A</title><description>B</description><link>http://example.com/a</link></item>
</channel></rss>`

// MockRunner answers every fetch with the same body, off the caller's goroutine
type MockRunner struct {
	mu   sync.Mutex
	body []byte
	err  error
	urls []string
}

func (m *MockRunner) RunFetch(ctx context.Context, url string, done func([]byte, error)) error {
	m.mu.Lock()
	m.urls = append(m.urls, url)
	body, err := m.body, m.err
	m.mu.Unlock()

	go done(body, err)
	return nil
}

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(feed.NewParser(), &MockRunner{body: []byte(sampleRSS)}, ttl)
}

func waitPhase(t *testing.T, s *Session, phase reader.FormPhase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Snapshot().FormPhase == phase {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for phase %s, have %s", phase, s.Snapshot().FormPhase)
}

func TestManagerCreateGetRemove(t *testing.T) {
	m := newTestManager(time.Minute)
	defer m.Stop()

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if s.ID == "" {
		t.Error("Expected session id")
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", m.Count())
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Errorf("Expected to get created session, got %v, %v", got, err)
	}

	if err := m.Remove(s.ID); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Expected session loop to be stopped after remove")
	}

	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := m.Remove(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second remove, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager(time.Minute)
	defer m.Stop()

	a, _ := m.Create()
	b, _ := m.Create()
	ctx := context.Background()

	if err := a.SetInput(ctx, "http://example.com/rss"); err != nil {
		t.Fatalf("SetInput failed: %v", err)
	}
	if err := a.Submit(ctx); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitPhase(t, a, reader.PhaseEmpty)

	if got := len(a.Snapshot().Feeds); got != 1 {
		t.Errorf("Expected 1 feed in session a, got %d", got)
	}
	if got := len(b.Snapshot().Feeds); got != 0 {
		t.Errorf("Expected no feeds in session b, got %d", got)
	}
	if a.Input() != "" {
		t.Errorf("Expected input cleared after add, got %q", a.Input())
	}

	// The same URL is only a duplicate where it was added
	b.SetInput(ctx, "http://example.com/rss")
	if phase := b.Snapshot().FormPhase; phase != reader.PhaseValid {
		t.Errorf("Expected valid in session b, got %s", phase)
	}
	a.SetInput(ctx, "http://example.com/rss")
	if kind := a.Snapshot().Error; kind == nil || kind.Code != reader.CodeDuplicateURL {
		t.Errorf("Expected duplicate in session a, got %+v", kind)
	}
	if a.Input() != "http://example.com/rss" {
		t.Errorf("Expected input to be tracked, got %q", a.Input())
	}
}

func TestManagerReap(t *testing.T) {
	m := newTestManager(time.Minute)
	defer m.Stop()

	idle, _ := m.Create()
	fresh, _ := m.Create()

	idle.mu.Lock()
	idle.lastSeen = time.Now().Add(-2 * time.Minute)
	idle.mu.Unlock()

	if n := m.reap(time.Now()); n != 1 {
		t.Errorf("Expected 1 session reaped, got %d", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected idle session to be gone")
	}
	if _, err := m.Get(fresh.ID); err != nil {
		t.Errorf("Expected fresh session to survive, got %v", err)
	}

	if err := idle.SetInput(context.Background(), "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected closed session to refuse events, got %v", err)
	}
}

func TestManagerStop(t *testing.T) {
	m := newTestManager(time.Minute)
	m.Start()

	s, _ := m.Create()
	m.Stop()

	select {
	case <-s.Done():
	default:
		t.Error("Expected session loop to be stopped")
	}
	if m.Count() != 0 {
		t.Errorf("Expected no sessions after stop, got %d", m.Count())
	}
	if _, err := m.Create(); err == nil {
		t.Error("Expected Create to fail after stop")
	}
}
