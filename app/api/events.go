package api

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-reader/app/reader"
	"github.com/lysyi3m/rss-reader/app/render"
)

type fieldUpdate struct {
	field reader.Field
	state reader.State
}

// fieldQueue buffers store notifications for one stream without ever
// blocking the session loop. Repeated notifications of a field that has not
// been sent yet collapse into the latest one.
type fieldQueue struct {
	mu      sync.Mutex
	order   []reader.Field
	pending map[reader.Field]reader.State
	ready   chan struct{}
}

func newFieldQueue() *fieldQueue {
	return &fieldQueue{
		pending: make(map[reader.Field]reader.State),
		ready:   make(chan struct{}, 1),
	}
}

func (q *fieldQueue) push(field reader.Field, state reader.State) {
	q.mu.Lock()
	if _, ok := q.pending[field]; !ok {
		q.order = append(q.order, field)
	}
	q.pending[field] = state
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *fieldQueue) drain() []fieldUpdate {
	q.mu.Lock()
	defer q.mu.Unlock()

	updates := make([]fieldUpdate, 0, len(q.order))
	for _, field := range q.order {
		updates = append(updates, fieldUpdate{field: field, state: q.pending[field]})
	}
	q.order = q.order[:0]
	clear(q.pending)
	return updates
}

// StreamEvents pushes one named event per store notification: form, error,
// feeds or articles. The stream opens with the current value of every field.
func (h *Handler) StreamEvents(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	lang := h.catalog.Negotiate(c.GetHeader("Accept-Language"))
	if q := c.Query("lang"); q != "" {
		lang = h.catalog.Negotiate(q)
	}

	queue := newFieldQueue()
	unsubscribe := s.Store().SubscribeAll(queue.push)
	defer unsubscribe()

	initial := s.Snapshot()
	for _, field := range reader.Fields {
		queue.push(field, initial)
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	slog.Debug("Event stream opened", "session", s.ID, "lang", lang.String())

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false

		case <-s.Done():
			c.SSEvent("closed", gin.H{"id": s.ID})
			return false

		case <-ticker.C:
			s.Touch()
			c.SSEvent("ping", time.Now().Unix())
			return true

		case <-queue.ready:
			for _, update := range queue.drain() {
				payload, err := render.Payload(h.catalog, update.field, update.state, lang)
				if err != nil {
					slog.Error("Event render error", "session", s.ID, "field", string(update.field), "error", err)
					continue
				}
				c.SSEvent(string(update.field), payload)
			}
			return true
		}
	})

	slog.Debug("Event stream closed", "session", s.ID)
}
