package render

import (
	"bytes"
	"fmt"

	"golang.org/x/text/language"

	"github.com/lysyi3m/rss-reader/app/reader"
)

type FormPayload struct {
	Phase  reader.FormPhase `json:"phase"`
	Form   FormView         `json:"form"`
	Status string           `json:"status,omitempty"`
}

type ErrorPayload struct {
	Error   *reader.ErrorKind `json:"error"`
	Message string            `json:"message"`
}

// ListPayload carries a complete replacement list, never a delta.
type ListPayload struct {
	Count int    `json:"count"`
	HTML  string `json:"html"`
}

// Payload renders the part of state named by field for a push to a client.
func Payload(c *Catalog, field reader.Field, state reader.State, lang language.Tag) (any, error) {
	switch field {
	case reader.FieldFormPhase:
		p := FormPayload{Phase: state.FormPhase, Form: NewFormView(state.FormPhase)}
		if state.FormPhase == reader.PhaseWaiting {
			p.Status = c.Label("loading", lang)
		}
		return p, nil

	case reader.FieldError:
		return ErrorPayload{Error: state.Error, Message: c.Message(state.Error, lang)}, nil

	case reader.FieldFeeds, reader.FieldArticles:
		data := PageData{
			Lang:     lang.String(),
			Labels:   c.Labels(lang),
			Feeds:    state.Feeds,
			Articles: state.Articles,
		}

		var buf bytes.Buffer
		if field == reader.FieldFeeds {
			if err := RenderFeeds(&buf, data); err != nil {
				return nil, err
			}
			return ListPayload{Count: len(state.Feeds), HTML: buf.String()}, nil
		}
		if err := RenderArticles(&buf, data); err != nil {
			return nil, err
		}
		return ListPayload{Count: len(state.Articles), HTML: buf.String()}, nil
	}

	return nil, fmt.Errorf("unknown field %q", field)
}
