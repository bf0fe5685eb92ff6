package session

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/rss-reader/app/reader"
)

// Session is one reader: a Store, the Controller that owns it and the loop
// goroutine running that controller.
type Session struct {
	ID        string
	CreatedAt time.Time

	controller *reader.Controller
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	mu       sync.Mutex
	input    string
	lastSeen time.Time
}

func newSession(parent context.Context, id string, controller *reader.Controller) *Session {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()

	s := &Session{
		ID:         id,
		CreatedAt:  now,
		controller: controller,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		lastSeen:   now,
	}

	// Empty means the control was cleared, either by the user or by a
	// successful add.
	controller.Store().Subscribe(reader.FieldFormPhase, func(_ reader.Field, state reader.State) {
		if state.FormPhase == reader.PhaseEmpty {
			s.mu.Lock()
			s.input = ""
			s.mu.Unlock()
		}
	})

	go func() {
		defer close(s.done)
		controller.Run(ctx)
	}()

	return s
}

func (s *Session) Store() *reader.Store {
	return s.controller.Store()
}

func (s *Session) Snapshot() reader.State {
	return s.controller.Store().Snapshot()
}

// Input returns the text last sent to the session's input control.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput delivers InputChanged and waits for it to be applied.
func (s *Session) SetInput(ctx context.Context, text string) error {
	s.Touch()
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()

	return s.send(ctx, reader.InputChanged{Text: text})
}

// Submit delivers SubmitClicked. The fetch itself completes later.
func (s *Session) Submit(ctx context.Context) error {
	s.Touch()
	return s.send(ctx, reader.SubmitClicked{})
}

func (s *Session) send(ctx context.Context, ev reader.Event) error {
	ctx, cancel := mergeDone(ctx, s.ctx)
	defer cancel()
	return s.controller.Send(ctx, ev)
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Context is cancelled when the session is closed.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) close() {
	s.cancel()
	<-s.done
}

// mergeDone returns a context cancelled when either a or b is.
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
