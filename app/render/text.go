package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from a feed description and collapses whitespace.
// Feeds commonly ship HTML in description elements.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}

	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
