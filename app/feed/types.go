package feed

import (
	"errors"
	"fmt"
)

// Feed processing types

type Metadata struct {
	Title       string
	Description string
}

type Item struct {
	Title       string
	Description string
	Link        string
}

// ErrMalformedFeed is returned by Parser.Run for documents that are not a
// usable feed: broken XML, an unknown format or a missing required element.
var ErrMalformedFeed = errors.New("malformed feed")

// HTTPError reports a non-200 response from the feed source.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error %d fetching %s", e.StatusCode, e.URL)
}

// StatusCode extracts the HTTP status from an error chain, if any.
func StatusCode(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	return 0, false
}
