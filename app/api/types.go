package api

import (
	"time"

	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/reader"
	"github.com/lysyi3m/rss-reader/app/render"
	"github.com/lysyi3m/rss-reader/app/session"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, entries []feed.Entry) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type SessionManagerInterface interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Remove(id string) error
	Count() int
}

var _ SessionManagerInterface = (*session.Manager)(nil)

type Handler struct {
	sessions  SessionManagerInterface
	catalog   *render.Catalog
	generator GeneratorInterface
	baseURL   string
	keepAlive time.Duration
}

type InputRequest struct {
	Text *string `json:"text" binding:"required"`
}

type SessionResponse struct {
	ID       string            `json:"id"`
	Phase    reader.FormPhase  `json:"phase"`
	Form     render.FormView   `json:"form"`
	Input    string            `json:"input"`
	Error    *reader.ErrorKind `json:"error"`
	Message  string            `json:"message,omitempty"`
	Feeds    []reader.Feed     `json:"feeds"`
	Articles []reader.Article  `json:"articles"`
}
