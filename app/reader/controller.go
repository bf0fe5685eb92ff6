package reader

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/rss-reader/app/feed"
)

type ParserInterface interface {
	Run(data []byte) (*feed.Metadata, []feed.Item, error)
}

var _ ParserInterface = (*feed.Parser)(nil)

// FetchRunner executes a fetch off the controller loop and reports the
// outcome through done.
type FetchRunner interface {
	RunFetch(ctx context.Context, url string, done func(body []byte, err error)) error
}

type envelope struct {
	event Event
	done  chan struct{}
}

// Controller is the only writer of its Store. Dispatch is the reducer; Run
// serializes events from any goroutine onto one loop.
type Controller struct {
	store   *Store
	parser  ParserInterface
	runner  FetchRunner
	logger  *slog.Logger
	input   string
	pending string
	events  chan envelope
}

func NewController(store *Store, parser ParserInterface, runner FetchRunner) *Controller {
	return &Controller{
		store:  store,
		parser: parser,
		runner: runner,
		logger: slog.Default(),
		events: make(chan envelope, 16),
	}
}

func (c *Controller) WithLogger(logger *slog.Logger) *Controller {
	c.logger = logger
	return c
}

func (c *Controller) Store() *Store {
	return c.store
}

// Input returns the text the controller last saw in the input control.
func (c *Controller) Input() string {
	return c.input
}

func (c *Controller) Dispatch(ev Event) *FetchRequest {
	switch ev := ev.(type) {
	case InputChanged:
		c.handleInput(ev)
	case SubmitClicked:
		return c.handleSubmit()
	case FetchSucceeded:
		c.handleFetchSucceeded(ev)
	case FetchFailed:
		c.handleFetchFailed(ev)
	default:
		c.logger.Warn("Unknown event ignored", "event", ev)
	}
	return nil
}

func (c *Controller) handleInput(ev InputChanged) {
	c.input = ev.Text

	// The input control is read-only while a fetch is in flight.
	if c.store.formPhase() == PhaseWaiting {
		return
	}

	c.classify()
}

func (c *Controller) handleSubmit() *FetchRequest {
	if phase := c.store.formPhase(); phase != PhaseValid {
		c.logger.Debug("Submit ignored", "phase", phase)
		return nil
	}

	if phase := c.classify(); phase != PhaseValid {
		return nil
	}

	c.pending = c.input
	c.store.setFormPhase(PhaseWaiting)

	c.logger.Debug("Fetch requested", "url", c.pending)
	return &FetchRequest{URL: c.pending}
}

func (c *Controller) handleFetchSucceeded(ev FetchSucceeded) {
	if !c.accepts(ev.URL) {
		return
	}

	metadata, items, err := c.parser.Run(ev.Body)
	if err != nil {
		c.logger.Info("Feed rejected", "url", ev.URL, "error", err)
		c.fail(ErrMalformedFeed())
		return
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, Article{
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
		})
	}

	c.store.appendFeed(Feed{
		Title:       metadata.Title,
		Description: metadata.Description,
		SourceURL:   ev.URL,
	}, articles)
	c.store.setError(nil)

	c.pending = ""
	c.input = ""
	c.store.setFormPhase(PhaseEmpty)

	c.logger.Info("Feed added", "url", ev.URL, "title", metadata.Title, "articles", len(articles))
}

func (c *Controller) handleFetchFailed(ev FetchFailed) {
	if !c.accepts(ev.URL) {
		return
	}

	c.logger.Info("Feed fetch failed", "url", ev.URL, "error", ev.Err)

	if code, ok := feed.StatusCode(ev.Err); ok && (code == http.StatusNotFound || code == http.StatusGone) {
		c.fail(ErrNotFound())
		return
	}

	msg := "unknown error"
	if ev.Err != nil {
		msg = ev.Err.Error()
	}
	c.fail(ErrUnknown(msg))
}

func (c *Controller) accepts(url string) bool {
	phase := c.store.formPhase()
	if phase != PhaseWaiting || url != c.pending {
		c.logger.Debug("Stale fetch result dropped", "url", url, "pending", c.pending, "phase", phase)
		return false
	}
	return true
}

func (c *Controller) fail(kind *ErrorKind) {
	c.pending = ""
	c.store.setError(kind)
	c.store.setFormPhase(PhaseError)
}

func (c *Controller) classify() FormPhase {
	phase, kind := Classify(c.input, c.store.feeds())
	c.store.setError(kind)
	c.store.setFormPhase(phase)
	return phase
}

// Run processes events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.events:
			if req := c.Dispatch(env.event); req != nil {
				c.startFetch(ctx, req)
			}
			if env.done != nil {
				close(env.done)
			}
		}
	}
}

// Send enqueues ev and waits until the loop has reduced it.
func (c *Controller) Send(ctx context.Context, ev Event) error {
	done := make(chan struct{})
	select {
	case c.events <- envelope{event: ev, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Post enqueues ev without waiting. It gives up once ctx is done.
func (c *Controller) Post(ctx context.Context, ev Event) {
	select {
	case c.events <- envelope{event: ev}:
	case <-ctx.Done():
	}
}

func (c *Controller) startFetch(ctx context.Context, req *FetchRequest) {
	url := req.URL
	err := c.runner.RunFetch(ctx, url, func(body []byte, err error) {
		c.Post(ctx, ResultEvent(url, body, err))
	})
	if err == nil {
		return
	}

	c.logger.Warn("Fetch not started", "url", url, "error", err)
	if errors.Is(err, context.Canceled) {
		return
	}
	// The loop is busy running this event; the failure is handled in a later turn.
	go c.Post(ctx, FetchFailed{URL: url, Err: err})
}
