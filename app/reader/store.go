package reader

import (
	"sync"
)

// Field names one independently observable part of State.
type Field string

const (
	FieldFormPhase Field = "form"
	FieldError     Field = "error"
	FieldFeeds     Field = "feeds"
	FieldArticles  Field = "articles"
)

var Fields = []Field{FieldFormPhase, FieldError, FieldFeeds, FieldArticles}

// Listener receives a snapshot of the state taken right after the change.
type Listener func(field Field, state State)

type subscription struct {
	id int
	fn Listener
}

// Store holds one session's State. Mutations go through the transition
// methods below and are expected to come from a single goroutine (the
// controller loop); Snapshot may be called from anywhere.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[Field][]subscription
	nextID    int
}

func NewStore() *Store {
	return &Store{
		state:     NewState(),
		listeners: make(map[Field][]subscription),
	}
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (s *Store) formPhase() FormPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FormPhase
}

// feeds returns the live slice; only the mutating goroutine may use it.
func (s *Store) feeds() []Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Feeds
}

// Subscribe registers fn for changes of field and returns a function that
// removes the registration.
func (s *Store) Subscribe(field Field, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[field] = append(s.listeners[field], subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		subs := s.listeners[field]
		for i, sub := range subs {
			if sub.id == id {
				s.listeners[field] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers fn for every field.
func (s *Store) SubscribeAll(fn Listener) func() {
	cancels := make([]func(), 0, len(Fields))
	for _, field := range Fields {
		cancels = append(cancels, s.Subscribe(field, fn))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (s *Store) setFormPhase(phase FormPhase) {
	s.mu.Lock()
	if s.state.FormPhase == phase {
		s.mu.Unlock()
		return
	}
	s.state.FormPhase = phase
	s.mu.Unlock()

	s.notify(FieldFormPhase)
}

func (s *Store) setError(kind *ErrorKind) {
	s.mu.Lock()
	if sameError(s.state.Error, kind) {
		s.mu.Unlock()
		return
	}
	if kind != nil {
		e := *kind
		kind = &e
	}
	s.state.Error = kind
	s.mu.Unlock()

	s.notify(FieldError)
}

// appendFeed adds the feed and its articles. Feeds and articles notify
// separately; articles only when there is something to add.
func (s *Store) appendFeed(feed Feed, articles []Article) {
	s.mu.Lock()
	s.state.Feeds = append(s.state.Feeds, feed)
	s.mu.Unlock()
	s.notify(FieldFeeds)

	if len(articles) == 0 {
		return
	}

	s.mu.Lock()
	s.state.Articles = append(s.state.Articles, articles...)
	s.mu.Unlock()
	s.notify(FieldArticles)
}

func (s *Store) notify(field Field) {
	s.mu.RLock()
	subs := append([]subscription(nil), s.listeners[field]...)
	snapshot := s.state.clone()
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.fn(field, snapshot)
	}
}
