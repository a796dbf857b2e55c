package hint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

// LineSeparator joins hint lines in a field.
const LineSeparator = "<br>"

// AppendSeparator precedes a hint appended to an existing field value.
const AppendSeparator = "<br><br>"

// DefaultMask hides the line of the note when no mask field is set.
const DefaultMask = "?"

// MaskFunc derives the visible part of a masked line from a field text.
type MaskFunc func(text string) string

// Mask functions by name.
var maskFuncs = map[string]func(lang string) MaskFunc{
	"":      func(string) MaskFunc { return FirstRune },
	"first": func(string) MaskFunc { return FirstRune },
	"romanic": func(lang string) MaskFunc {
		return func(text string) string { return RomanicInitial(text, lang) }
	},
}

// LookupMask returns the mask function registered under name.
func LookupMask(name, lang string) (MaskFunc, error) {
	f, ok := maskFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown mask function %q", name)
	}
	return f(lang), nil
}

// FirstRune returns the first character of text.
func FirstRune(text string) string {
	for _, r := range text {
		return string(r)
	}
	return DefaultMask
}

// RomanicInitial returns the first letter of the first main word of text.
func RomanicInitial(text, lang string) string {
	if words := MainWords(text, lang); len(words) > 0 {
		return FirstRune(words[0])
	}
	return FirstRune(strings.TrimSpace(text))
}

// MaskOf computes the mask of a note. Without a mask field it is
// DefaultMask. For cloze types maskField names a cloze marker.
func MaskOf(nt core.NoteType, n core.Note, clozeField, maskField string, fn MaskFunc) (string, error) {
	if maskField == "" {
		return DefaultMask, nil
	}
	var raw string
	if nt.IsCloze() {
		text, err := n.Value(nt, clozeField)
		if err != nil {
			return "", err
		}
		if raw, err = cloze.Extract(text, maskField); err != nil {
			return "", fmt.Errorf("mask of note %d: %w", n.ID, err)
		}
	} else {
		v, err := n.Value(nt, maskField)
		if err != nil {
			return "", fmt.Errorf("mask field: %w", err)
		}
		raw = v
	}
	if fn == nil {
		fn = FirstRune
	}
	return fn(cloze.Text(raw)), nil
}

// Compose joins lines with LineSeparator, line idx replaced by mask.
func Compose(lines []string, idx int, mask string) string {
	out := make([]string, len(lines))
	copy(out, lines)
	if idx >= 0 && idx < len(out) {
		out[idx] = mask
	}
	return strings.Join(out, LineSeparator)
}

// ShouldReplace decides whether the hint of group replaces the field or is
// appended to it. A note listed in several groups (groups joined by sep in
// groupValue) is replaced only by its smallest group so every other group
// appends. Without sep the replace flag decides.
func ShouldReplace(groupValue, sep string, group int, replace bool) bool {
	if sep == "" || !replace || !strings.Contains(groupValue, sep) {
		return replace
	}
	groups, err := ParseGroups(groupValue, sep)
	if err != nil || len(groups) == 0 {
		return replace
	}
	smallest, member := groups[0], false
	for _, g := range groups {
		if g < smallest {
			smallest = g
		}
		if g == group {
			member = true
		}
	}
	if group == smallest {
		return true
	}
	if member {
		return false
	}
	return replace
}

// ParseGroups splits a group field into its integer IDs.
func ParseGroups(value, sep string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Apply writes hint into the hint field of n.
func Apply(nt core.NoteType, n *core.Note, hintField, hint string, replace bool) error {
	if replace {
		return n.SetValue(nt, hintField, hint)
	}
	current, err := n.Value(nt, hintField)
	if err != nil {
		return err
	}
	return n.SetValue(nt, hintField, current+AppendSeparator+hint)
}
