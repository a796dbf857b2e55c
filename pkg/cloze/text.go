package cloze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Ellipsis marks truncated text.
const Ellipsis = "..."

// DefaultTruncate is the visible length kept by Truncate in previews.
const DefaultTruncate = 30

// Text returns the visible text of an HTML fragment, entities decoded.
func Text(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// TextWithoutSpans drops <span> elements and joins the remaining text
// nodes with a space.
func TextWithoutSpans(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("span").Remove()

	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "#text" {
				parts = append(parts, s.Text())
				return
			}
			walk(s)
		})
	}
	walk(doc.Selection)
	return strings.Join(parts, " ")
}

// Truncate returns the visible text of field, cut to max runes followed by
// an ellipsis when it is longer than max+3 runes.
func Truncate(field string, max int) string {
	text := Text(field)
	r := []rune(text)
	if len(r) > max+len(Ellipsis) {
		return string(r[:max]) + Ellipsis
	}
	return text
}

// FirstLine returns the first non-blank line of text.
func FirstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
