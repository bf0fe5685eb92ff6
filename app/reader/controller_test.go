package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/rss-reader/app/feed"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>T</title><description>D</description>
<item><title>A</title><description>B</description><link>http://example.com/a</link></item>
<item><title>C</title><description>E</description><link>http://example.com/c</link></item>
</channel></rss>`

// syncRunner records requests; tests complete them by hand.
type syncRunner struct {
	mu    sync.Mutex
	urls  []string
	dones []func([]byte, error)
	err   error
}

func (r *syncRunner) RunFetch(ctx context.Context, url string, done func([]byte, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.urls = append(r.urls, url)
	r.dones = append(r.dones, done)
	return nil
}

func (r *syncRunner) complete(i int, body []byte, err error) {
	r.mu.Lock()
	done := r.dones[i]
	r.mu.Unlock()
	done(body, err)
}

func (r *syncRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

func newTestController() *Controller {
	return NewController(NewStore(), feed.NewParser(), &syncRunner{})
}

func submitValid(t *testing.T, c *Controller, url string) *FetchRequest {
	t.Helper()
	c.Dispatch(InputChanged{Text: url})
	if phase := c.Store().Snapshot().FormPhase; phase != PhaseValid {
		t.Fatalf("Expected phase valid before submit, got %s", phase)
	}
	req := c.Dispatch(SubmitClicked{})
	if req == nil {
		t.Fatal("Expected fetch request on submit")
	}
	return req
}

func TestControllerInputClassification(t *testing.T) {
	c := newTestController()

	c.Dispatch(InputChanged{Text: "not a url"})
	state := c.Store().Snapshot()
	if state.FormPhase != PhaseInvalid || state.Error == nil || state.Error.Code != CodeInvalidURL {
		t.Errorf("Expected invalid/invalid_url, got %s/%+v", state.FormPhase, state.Error)
	}

	c.Dispatch(InputChanged{Text: "http://example.com/rss"})
	state = c.Store().Snapshot()
	if state.FormPhase != PhaseValid || state.Error != nil {
		t.Errorf("Expected valid/nil, got %s/%+v", state.FormPhase, state.Error)
	}

	c.Dispatch(InputChanged{Text: ""})
	state = c.Store().Snapshot()
	if state.FormPhase != PhaseEmpty || state.Error != nil {
		t.Errorf("Expected empty/nil, got %s/%+v", state.FormPhase, state.Error)
	}
}

func TestControllerSubmitSuccess(t *testing.T) {
	c := newTestController()
	counts := make(map[Field]int)
	c.Store().SubscribeAll(func(field Field, _ State) { counts[field]++ })

	req := submitValid(t, c, "http://example.com/rss")
	if req.URL != "http://example.com/rss" {
		t.Errorf("Expected request for submitted URL, got %s", req.URL)
	}
	if phase := c.Store().Snapshot().FormPhase; phase != PhaseWaiting {
		t.Fatalf("Expected phase waiting, got %s", phase)
	}

	clear(counts)
	c.Dispatch(FetchSucceeded{URL: req.URL, Body: []byte(sampleRSS)})

	state := c.Store().Snapshot()
	if state.FormPhase != PhaseEmpty {
		t.Errorf("Expected phase empty, got %s", state.FormPhase)
	}
	if state.Error != nil {
		t.Errorf("Expected no error, got %+v", state.Error)
	}
	if len(state.Feeds) != 1 {
		t.Fatalf("Expected 1 feed, got %d", len(state.Feeds))
	}
	want := Feed{Title: "T", Description: "D", SourceURL: "http://example.com/rss"}
	if state.Feeds[0] != want {
		t.Errorf("Expected feed %+v, got %+v", want, state.Feeds[0])
	}
	if len(state.Articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(state.Articles))
	}
	if state.Articles[0] != (Article{Title: "A", Description: "B", Link: "http://example.com/a"}) {
		t.Errorf("Unexpected first article: %+v", state.Articles[0])
	}
	if c.Input() != "" {
		t.Errorf("Expected input cleared, got %q", c.Input())
	}

	if counts[FieldFeeds] != 1 || counts[FieldArticles] != 1 || counts[FieldFormPhase] != 1 {
		t.Errorf("Expected one notification per changed field, got %v", counts)
	}
	if counts[FieldError] != 0 {
		t.Errorf("Expected no error notification when error was already clear, got %d", counts[FieldError])
	}
}

func TestControllerDuplicateAfterSuccess(t *testing.T) {
	c := newTestController()
	req := submitValid(t, c, "http://example.com/rss")
	c.Dispatch(FetchSucceeded{URL: req.URL, Body: []byte(sampleRSS)})

	c.Dispatch(InputChanged{Text: "http://example.com/rss"})
	state := c.Store().Snapshot()
	if state.FormPhase != PhaseInvalid || state.Error == nil || state.Error.Code != CodeDuplicateURL {
		t.Errorf("Expected invalid/duplicate_url, got %s/%+v", state.FormPhase, state.Error)
	}

	if req := c.Dispatch(SubmitClicked{}); req != nil {
		t.Error("Expected submit of duplicate to be ignored")
	}
}

func TestControllerArticlesAccumulate(t *testing.T) {
	c := newTestController()

	first := submitValid(t, c, "http://example.com/one")
	c.Dispatch(FetchSucceeded{URL: first.URL, Body: []byte(sampleRSS)})

	second := submitValid(t, c, "http://example.com/two")
	c.Dispatch(FetchSucceeded{URL: second.URL, Body: []byte(`<rss version="2.0"><channel><title>Two</title><description>Second</description>
<item><title>X</title><link>http://example.com/x</link></item></channel></rss>`)})

	state := c.Store().Snapshot()
	if len(state.Feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(state.Feeds))
	}
	if len(state.Articles) != 3 {
		t.Fatalf("Expected 3 articles, got %d", len(state.Articles))
	}
	titles := []string{state.Articles[0].Title, state.Articles[1].Title, state.Articles[2].Title}
	if fmt.Sprint(titles) != "[A C X]" {
		t.Errorf("Expected completion then document order [A C X], got %v", titles)
	}
}

func TestControllerMalformedFeed(t *testing.T) {
	c := newTestController()
	req := submitValid(t, c, "http://example.com/rss")

	c.Dispatch(FetchSucceeded{URL: req.URL, Body: []byte("<html>not a feed</html>")})

	state := c.Store().Snapshot()
	if state.FormPhase != PhaseError {
		t.Errorf("Expected phase error, got %s", state.FormPhase)
	}
	if state.Error == nil || state.Error.Code != CodeMalformedFeed {
		t.Errorf("Expected malformed_feed, got %+v", state.Error)
	}
	if len(state.Feeds) != 0 || len(state.Articles) != 0 {
		t.Errorf("Expected lists unchanged, got %d feeds and %d articles", len(state.Feeds), len(state.Articles))
	}
}

func TestControllerBrokenMarkupKeepsLists(t *testing.T) {
	c := newTestController()

	first := submitValid(t, c, "http://example.com/one")
	c.Dispatch(FetchSucceeded{URL: first.URL, Body: []byte(sampleRSS)})

	second := submitValid(t, c, "http://example.com/two")
	c.Dispatch(FetchSucceeded{URL: second.URL, Body: []byte(`<rss version="2.0"><channel><title>T</title><description>D</description>
<item><title>X</title><link>http://example.com/x</link></item></chanel></rss>`)})

	state := c.Store().Snapshot()
	if state.FormPhase != PhaseError {
		t.Errorf("Expected phase error, got %s", state.FormPhase)
	}
	if state.Error == nil || state.Error.Code != CodeMalformedFeed {
		t.Errorf("Expected malformed_feed, got %+v", state.Error)
	}
	if len(state.Feeds) != 1 || len(state.Articles) != 2 {
		t.Errorf("Expected 1 feed and 2 articles, got %d feeds and %d articles", len(state.Feeds), len(state.Articles))
	}
}

func TestControllerFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    ErrorCode
		message string
	}{
		{"not found", &feed.HTTPError{StatusCode: http.StatusNotFound, URL: "x"}, CodeNotFound, ""},
		{"gone", fmt.Errorf("wrapped: %w", &feed.HTTPError{StatusCode: http.StatusGone, URL: "x"}), CodeNotFound, ""},
		{"server error", &feed.HTTPError{StatusCode: http.StatusBadGateway, URL: "x"}, CodeUnknown, "HTTP error 502 fetching x"},
		{"network", errors.New("connection refused"), CodeUnknown, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			req := submitValid(t, c, "http://example.com/rss")

			c.Dispatch(FetchFailed{URL: req.URL, Err: tt.err})

			state := c.Store().Snapshot()
			if state.FormPhase != PhaseError {
				t.Errorf("Expected phase error, got %s", state.FormPhase)
			}
			if state.Error == nil || state.Error.Code != tt.code {
				t.Fatalf("Expected %s, got %+v", tt.code, state.Error)
			}
			if state.Error.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, state.Error.Message)
			}
			if len(state.Feeds) != 0 {
				t.Error("Expected feeds unchanged after failure")
			}
		})
	}
}

func TestControllerRecoversAfterError(t *testing.T) {
	c := newTestController()
	req := submitValid(t, c, "http://example.com/rss")
	c.Dispatch(FetchFailed{URL: req.URL, Err: &feed.HTTPError{StatusCode: 404, URL: req.URL}})

	if req := c.Dispatch(SubmitClicked{}); req != nil {
		t.Error("Expected submit in error phase to be ignored")
	}

	// Retyping the same URL makes it submittable again
	req = submitValid(t, c, "http://example.com/rss")
	if req.URL != "http://example.com/rss" {
		t.Errorf("Unexpected request URL %s", req.URL)
	}
}

func TestControllerSubmitGuard(t *testing.T) {
	c := newTestController()

	if req := c.Dispatch(SubmitClicked{}); req != nil {
		t.Error("Expected submit in empty phase to be ignored")
	}

	c.Dispatch(InputChanged{Text: "bad"})
	if req := c.Dispatch(SubmitClicked{}); req != nil {
		t.Error("Expected submit in invalid phase to be ignored")
	}

	submitValid(t, c, "http://example.com/rss")
	if req := c.Dispatch(SubmitClicked{}); req != nil {
		t.Error("Expected second submit while waiting to be ignored")
	}
}

func TestControllerInputWhileWaiting(t *testing.T) {
	c := newTestController()
	req := submitValid(t, c, "http://example.com/rss")

	c.Dispatch(InputChanged{Text: "garbage"})
	if phase := c.Store().Snapshot().FormPhase; phase != PhaseWaiting {
		t.Fatalf("Expected phase to stay waiting, got %s", phase)
	}

	c.Dispatch(FetchSucceeded{URL: req.URL, Body: []byte(sampleRSS)})
	state := c.Store().Snapshot()
	if state.Feeds[0].SourceURL != "http://example.com/rss" {
		t.Errorf("Expected submitted URL as source, got %s", state.Feeds[0].SourceURL)
	}
}

func TestControllerDropsStaleResults(t *testing.T) {
	c := newTestController()

	// Nothing in flight
	c.Dispatch(FetchSucceeded{URL: "http://example.com/rss", Body: []byte(sampleRSS)})
	if len(c.Store().Snapshot().Feeds) != 0 {
		t.Error("Expected result without a pending fetch to be dropped")
	}

	req := submitValid(t, c, "http://example.com/rss")
	c.Dispatch(FetchFailed{URL: "http://example.com/other", Err: errors.New("boom")})
	if phase := c.Store().Snapshot().FormPhase; phase != PhaseWaiting {
		t.Errorf("Expected result for another URL to be dropped, phase %s", phase)
	}

	c.Dispatch(FetchSucceeded{URL: req.URL, Body: []byte(sampleRSS)})
	if len(c.Store().Snapshot().Feeds) != 1 {
		t.Error("Expected pending result to be applied")
	}
}

func TestControllerRunLoop(t *testing.T) {
	runner := &syncRunner{}
	c := NewController(NewStore(), feed.NewParser(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	phases := make(chan FormPhase, 8)
	c.Store().Subscribe(FieldFormPhase, func(_ Field, state State) { phases <- state.FormPhase })

	if err := c.Send(ctx, InputChanged{Text: "http://example.com/rss"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := c.Send(ctx, SubmitClicked{}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if runner.count() != 1 {
		t.Fatalf("Expected 1 fetch started, got %d", runner.count())
	}

	runner.complete(0, []byte(sampleRSS), nil)

	want := []FormPhase{PhaseValid, PhaseWaiting, PhaseEmpty}
	for _, expected := range want {
		select {
		case got := <-phases:
			if got != expected {
				t.Fatalf("Expected phase %s, got %s", expected, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for phase %s", expected)
		}
	}

	if len(c.Store().Snapshot().Feeds) != 1 {
		t.Error("Expected feed appended by loop")
	}
}

func TestControllerRunnerRefusal(t *testing.T) {
	runner := &syncRunner{err: errors.New("task queue is full")}
	c := NewController(NewStore(), feed.NewParser(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	errs := make(chan *ErrorKind, 4)
	c.Store().Subscribe(FieldError, func(_ Field, state State) { errs <- state.Error })

	c.Send(ctx, InputChanged{Text: "http://example.com/rss"})
	c.Send(ctx, SubmitClicked{})

	select {
	case kind := <-errs:
		if kind == nil || kind.Code != CodeUnknown || kind.Message != "task queue is full" {
			t.Errorf("Expected unknown error from refusal, got %+v", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for refusal to surface")
	}
}

func TestSendAfterCancel(t *testing.T) {
	c := newTestController()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Send(ctx, SubmitClicked{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
