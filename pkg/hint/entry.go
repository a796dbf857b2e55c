// Package hint writes a shared hint into every note of a group: the sorted
// list of what each note of the group asks for, with the line of the note
// itself masked.
package hint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

// MaxLineLength bounds the hint line of a standard note.
const MaxLineLength = 60

var (
	// ErrTooFewNotes is returned when a group has fewer than two notes.
	ErrTooFewNotes = errors.New("a hint needs at least two notes")
	// ErrSortKey is returned when the sorting values do not fit the sort key.
	ErrSortKey = errors.New("invalid sort value")
)

// Entry is the contribution of one note to the hint.
type Entry struct {
	Note     core.Note
	Content  string
	SortInfo string
}

// Build computes the entry of every note. For cloze types fields and
// sortField name cloze markers such as "c1"; missing deletions are counted
// in the returned error count and leave an empty part.
func Build(nt core.NoteType, notes []core.Note, clozeField string, fields []string, sep, sortField string) ([]Entry, int, error) {
	entries := make([]Entry, 0, len(notes))
	failures := 0
	for _, n := range notes {
		var e Entry
		var err error
		if nt.IsCloze() {
			e, err = clozeEntry(nt, n, clozeField, fields, sep, sortField, &failures)
		} else {
			e, err = standardEntry(nt, n, fields, sep, sortField)
		}
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, failures, nil
}

func clozeEntry(nt core.NoteType, n core.Note, clozeField string, markers []string, sep, sortMarker string, failures *int) (Entry, error) {
	text, err := n.Value(nt, clozeField)
	if err != nil {
		return Entry{}, err
	}
	var b strings.Builder
	for _, m := range markers {
		answer, err := cloze.Extract(text, m)
		if err != nil {
			*failures++
		}
		b.WriteString(answer)
		b.WriteString(sep)
	}
	e := Entry{Note: n, Content: strings.TrimSuffix(b.String(), sep)}
	if sortMarker != "" {
		if e.SortInfo, err = cloze.Extract(text, sortMarker); err != nil {
			*failures++
		}
	}
	return e, nil
}

func standardEntry(nt core.NoteType, n core.Note, fields []string, sep, sortField string) (Entry, error) {
	var b strings.Builder
	for _, name := range fields {
		v, err := n.Value(nt, name)
		if err != nil {
			return Entry{}, err
		}
		line := cloze.FirstLine(cloze.TextWithoutSpans(v))
		b.WriteString(cut(line, MaxLineLength))
		b.WriteString(sep)
	}
	e := Entry{Note: n, Content: strings.TrimSuffix(b.String(), sep)}
	if sortField != "" {
		v, err := n.Value(nt, sortField)
		if err != nil {
			return Entry{}, fmt.Errorf("sort field: %w", err)
		}
		e.SortInfo = cloze.Text(v)
	}
	return e, nil
}

func cut(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
