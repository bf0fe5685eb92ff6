package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	// gofeed recovers from broken markup, so structure is checked up front.
	if err := checkWellFormed(data); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	// JSON Feed is detected by gofeed as well, but only XML documents are accepted.
	if feed.FeedType != "rss" && feed.FeedType != "atom" {
		return nil, nil, fmt.Errorf("%w: unsupported feed type %q", ErrMalformedFeed, feed.FeedType)
	}

	metadata := &Metadata{
		Title:       strings.TrimSpace(feed.Title),
		Description: strings.TrimSpace(feed.Description),
	}
	if metadata.Title == "" {
		return nil, nil, fmt.Errorf("%w: channel has no title", ErrMalformedFeed)
	}
	if metadata.Description == "" {
		return nil, nil, fmt.Errorf("%w: channel has no description", ErrMalformedFeed)
	}

	items := make([]Item, 0, len(feed.Items))
	for i, item := range feed.Items {
		normalized, err := p.normalizeItem(item)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: item %d: %v", ErrMalformedFeed, i, err)
		}
		items = append(items, normalized)
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) (Item, error) {
	if item == nil {
		return Item{}, fmt.Errorf("empty item")
	}

	normalized := Item{
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		Link:        strings.TrimSpace(item.Link),
	}

	if normalized.Title == "" {
		return Item{}, fmt.Errorf("missing title")
	}
	if normalized.Link == "" {
		return Item{}, fmt.Errorf("missing link")
	}

	return normalized, nil
}

func checkWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	decoder.CharsetReader = charset.NewReaderLabel

	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
