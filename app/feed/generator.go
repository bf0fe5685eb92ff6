package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/rss-reader/app/cfg"
)

// Channel describes the aggregated output feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}

// Entry is an item together with the feed it came from.
type Entry struct {
	Item
	SourceTitle string
	SourceURL   string
}

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Run writes channel and entries as an RSS 2.0 document, entries in the
// order given.
func (g *Generator) Run(channel Channel, entries []Entry) (string, error) {
	if channel.Title == "" {
		return "", fmt.Errorf("channel title is required")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, fmt.Sprintf("Aggregated from %d items", len(entries))), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	g.writeElement(&buf, "lastBuildDate", g.now().In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Reader/%s", cfg.GetVersion()), 4)

	for _, entry := range entries {
		g.writeEntry(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, entry Entry) {
	buf.WriteString("    <item>\n")

	if entry.Link != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(entry.Link)))
		xml.EscapeText(buf, []byte(entry.Link))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", entry.Title, 6)
	g.writeElement(buf, "link", entry.Link, 6)
	g.writeElement(buf, "description", cmp.Or(entry.Description, "No description available"), 6)

	if entry.SourceURL != "" {
		buf.WriteString(fmt.Sprintf("      <source url=\"%s\">", html.EscapeString(entry.SourceURL)))
		xml.EscapeText(buf, []byte(cmp.Or(entry.SourceTitle, entry.SourceURL)))
		buf.WriteString("</source>\n")
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
