// Package cloze extracts answers out of cloze-deletion markup and turns HTML
// field content into plain text.
package cloze

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrClozeNotFound is returned when a field has no deletion for the marker.
var ErrClozeNotFound = errors.New("cloze deletion not found")

var (
	markerRe   = regexp.MustCompile(`\{\{(c\d+)::`)
	isMarkerRe = regexp.MustCompile(`^c\d+$`)
)

// Pattern returns the expression used to extract the answer of a marker.
// The answer stops at the first '}' or ':' so hints ("::hint") are dropped.
func Pattern(marker string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{` + regexp.QuoteMeta(marker) + `::([^}:]*):?:?.*\}\}`)
}

// Extract returns the answer enclosed by {{marker::answer}} in text.
func Extract(text, marker string) (string, error) {
	m := Pattern(marker).FindStringSubmatch(text)
	if m == nil {
		return "", fmt.Errorf("%w: %s in %q", ErrClozeNotFound, marker, text)
	}
	return m[1], nil
}

// Markers lists the distinct markers present in text, in order of appearance.
func Markers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// IsMarker reports whether s names a cloze marker such as "c1".
func IsMarker(s string) bool {
	return isMarkerRe.MatchString(s)
}
