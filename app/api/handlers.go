package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-reader/app/cfg"
	"github.com/lysyi3m/rss-reader/app/feed"
	"github.com/lysyi3m/rss-reader/app/reader"
	"github.com/lysyi3m/rss-reader/app/render"
	"github.com/lysyi3m/rss-reader/app/session"
)

const defaultKeepAlive = 15 * time.Second

func NewHandler(sessions SessionManagerInterface, catalog *render.Catalog, baseURL string) *Handler {
	return &Handler{
		sessions:  sessions,
		catalog:   catalog,
		generator: feed.NewGenerator(),
		baseURL:   baseURL,
		keepAlive: defaultKeepAlive,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
		"sessions":  h.sessions.Count(),
	})
}

func (h *Handler) CreateSession(c *gin.Context) {
	s, err := h.sessions.Create()
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is shutting down"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     s.ID,
		"events": "/api/sessions/" + s.ID + "/events",
		"page":   "/sessions/" + s.ID,
	})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(c, s))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PostInput(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if err := s.SetInput(c.Request.Context(), *req.Text); err != nil {
		h.eventError(c, s, err)
		return
	}

	c.JSON(http.StatusOK, h.sessionResponse(c, s))
}

// PostSubmit answers once the submit has been reduced. The fetch outcome
// arrives later on the event stream.
func (h *Handler) PostSubmit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	if err := s.Submit(c.Request.Context()); err != nil {
		h.eventError(c, s, err)
		return
	}

	resp := h.sessionResponse(c, s)
	status := http.StatusOK
	if resp.Phase == reader.PhaseWaiting {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

func (h *Handler) GetSessionRSS(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	state := s.Snapshot()
	entries := make([]feed.Entry, 0, len(state.Articles))
	for _, article := range state.Articles {
		entries = append(entries, feed.Entry{Item: feed.Item{
			Title:       article.Title,
			Description: article.Description,
			Link:        article.Link,
		}})
	}

	lang := h.catalog.Negotiate(c.GetHeader("Accept-Language"))
	channel := feed.Channel{
		Title:    h.catalog.Label("title", lang),
		Link:     h.publicURL(c, "/sessions/"+s.ID),
		SelfLink: h.publicURL(c, "/api/sessions/"+s.ID+"/rss"),
	}

	rss, err := h.generator.Run(channel, entries)
	if err != nil {
		slog.Error("RSS generation error", "session", s.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	c.String(http.StatusOK, rss)
}

// NewPage starts a session and sends the browser to it.
func (h *Handler) NewPage(c *gin.Context) {
	s, err := h.sessions.Create()
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		c.String(http.StatusServiceUnavailable, "Service is shutting down")
		return
	}

	target := "/sessions/" + s.ID
	if key := c.Query("key"); key != "" {
		target += "?key=" + url.QueryEscape(key)
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *Handler) GetPage(c *gin.Context) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, "Session not found")
		return
	}

	data := render.NewPageData(h.catalog, s.Snapshot(), c.GetHeader("Accept-Language"))
	data.SessionID = s.ID
	data.APIBase = "/api/sessions/" + s.ID
	data.Input = s.Input()

	var buf bytes.Buffer
	if err := render.RenderPage(&buf, data); err != nil {
		slog.Error("Page render error", "session", s.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return s, true
}

func (h *Handler) sessionResponse(c *gin.Context, s *session.Session) SessionResponse {
	state := s.Snapshot()
	lang := h.catalog.Negotiate(c.GetHeader("Accept-Language"))

	return SessionResponse{
		ID:       s.ID,
		Phase:    state.FormPhase,
		Form:     render.NewFormView(state.FormPhase),
		Input:    s.Input(),
		Error:    state.Error,
		Message:  h.catalog.Message(state.Error, lang),
		Feeds:    state.Feeds,
		Articles: state.Articles,
	}
}

// eventError reports an event that could not be delivered: either the
// client went away or the session closed underneath it.
func (h *Handler) eventError(c *gin.Context, s *session.Session, err error) {
	if s.Context().Err() != nil {
		c.JSON(http.StatusGone, gin.H{"error": "Session closed"})
		return
	}
	if errors.Is(err, c.Request.Context().Err()) {
		slog.Debug("Client went away", "session", s.ID, "error", err)
		c.Status(499)
		return
	}
	slog.Error("Event delivery failed", "session", s.ID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Event delivery failed"})
}

func (h *Handler) publicURL(c *gin.Context, path string) string {
	if h.baseURL != "" {
		return h.baseURL + path
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + path
}
