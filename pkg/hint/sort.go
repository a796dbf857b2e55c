package hint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/clozekit/pkg/core"
)

// SortKey selects how entries are ordered.
type SortKey string

const (
	// SortAuto sorts numerically when every sort value is an integer,
	// otherwise by content then sort value.
	SortAuto SortKey = ""
	// SortContent sorts by content then sort value.
	SortContent SortKey = "content"
	// SortField sorts by sort value then content.
	SortField SortKey = "field"
	// SortNumeric sorts by the integer sort value.
	SortNumeric SortKey = "numeric"
	// SortRomanic sorts by the main words of the content, stop words of
	// the language removed.
	SortRomanic SortKey = "romanic"
)

// Sort orders entries in place.
func Sort(entries []Entry, key SortKey, lang string) error {
	switch key {
	case SortAuto:
		if allNumeric(entries) {
			return Sort(entries, SortNumeric, lang)
		}
		return Sort(entries, SortContent, lang)
	case SortContent:
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.Content != b.Content {
				return a.Content < b.Content
			}
			return a.SortInfo < b.SortInfo
		})
	case SortField:
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.SortInfo != b.SortInfo {
				return a.SortInfo < b.SortInfo
			}
			return a.Content < b.Content
		})
	case SortNumeric:
		values := make(map[core.NoteID]int, len(entries))
		for _, e := range entries {
			v, err := strconv.Atoi(strings.TrimSpace(e.SortInfo))
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer (note %d)", ErrSortKey, e.SortInfo, e.Note.ID)
			}
			values[e.Note.ID] = v
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return values[entries[i].Note.ID] < values[entries[j].Note.ID]
		})
	case SortRomanic:
		keys := make(map[core.NoteID]string, len(entries))
		for _, e := range entries {
			keys[e.Note.ID] = RomanicKey(e.Content, lang)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return keys[entries[i].Note.ID] < keys[entries[j].Note.ID]
		})
	default:
		return fmt.Errorf("%w: unknown sort key %q", ErrSortKey, key)
	}
	return nil
}

func allNumeric(entries []Entry) bool {
	for _, e := range entries {
		if _, err := strconv.Atoi(strings.TrimSpace(e.SortInfo)); err != nil {
			return false
		}
	}
	return len(entries) > 0
}

// RomanicKey is the sort key of a romance or germanic text: its main words
// joined by spaces, lowercased.
func RomanicKey(text, lang string) string {
	return strings.ToLower(strings.Join(MainWords(text, lang), " "))
}

// Lines returns the content of the sorted entries. With breaks, an empty
// line separates entries whose third character differs, which splits
// years by decade.
//
// positions maps each note to its line.
func Lines(entries []Entry, breaks bool) (lines []string, positions map[core.NoteID]int) {
	positions = make(map[core.NoteID]int, len(entries))
	var prev string
	for i, e := range entries {
		if breaks && i > 0 {
			if cur := thirdRune(e.Content); cur != prev {
				lines = append(lines, "")
			}
		}
		prev = thirdRune(e.Content)
		positions[e.Note.ID] = len(lines)
		lines = append(lines, e.Content)
	}
	return lines, positions
}

func thirdRune(s string) string {
	r := []rune(s)
	if len(r) < 3 {
		return ""
	}
	return string(r[2])
}
