package group

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

// Manual discovery modes.
const (
	ModeHan     = "han"
	ModeRomanic = "romanic"
)

var (
	hanRun = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	brTag  = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// segmentEnd ends the key part of a romanic hint line.
var segmentEnd = regexp.MustCompile(`\s*[|,;(:/]`)

var languages = map[string]whatlanggo.Lang{
	"german":  whatlanggo.Deu,
	"french":  whatlanggo.Fra,
	"english": whatlanggo.Eng,
	"spanish": whatlanggo.Spa,
	"italian": whatlanggo.Ita,
}

func lookupLanguage(name string) (whatlanggo.Lang, error) {
	lang, ok := languages[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("group: unsupported language %q", name)
	}
	return lang, nil
}

// keyText is the comparable form of a key field value.
func keyText(v string) string {
	return strings.TrimSpace(cloze.Text(v))
}

// lineKeys extracts the note keys listed in one line of a hint.
type lineKeys func(line string) []string

// HanKeys returns the runs of CJK ideographs of line.
func HanKeys(line string) []string {
	return hanRun.FindAllString(line, -1)
}

// RomanicKeys returns a function keeping the first segment of lines detected
// as lang, among the candidate languages.
func RomanicKeys(lang string, candidates []string) (func(line string) []string, error) {
	target, err := lookupLanguage(lang)
	if err != nil {
		return nil, err
	}
	opts := whatlanggo.Options{Whitelist: map[whatlanggo.Lang]bool{target: true}}
	for _, c := range candidates {
		l, err := lookupLanguage(c)
		if err != nil {
			return nil, err
		}
		opts.Whitelist[l] = true
	}
	return func(line string) []string {
		key := strings.TrimSpace(segmentEnd.Split(line, 2)[0])
		if key == "" {
			return nil
		}
		if len(opts.Whitelist) > 1 && whatlanggo.DetectWithOptions(line, opts).Lang != target {
			return nil
		}
		return []string{key}
	}, nil
}

func (o Options) lineKeys() (lineKeys, error) {
	switch o.Mode {
	case "", ModeHan:
		return HanKeys, nil
	case ModeRomanic:
		lang := o.Language
		if lang == "" {
			lang = "german"
		}
		return RomanicKeys(lang, o.Languages)
	default:
		return nil, fmt.Errorf("group: unknown mode %q", o.Mode)
	}
}

// Manual turns hints written by hand into groups. Every note of the query
// with a hint but no group contributes one set per hint line: the note and
// the notes whose key field equals a key of the line. Keys matching no note
// or several notes are logged and skipped.
func (g *Grouper) Manual(ctx context.Context, opts Options) ([]Set, error) {
	if opts.GroupField == "" {
		return nil, ErrNoGroupField
	}
	keysOf, err := opts.lineKeys()
	if err != nil {
		return nil, err
	}

	ids, nt, err := g.svc.FindNotes(ctx, opts.query(), opts.TypeName)
	if err != nil {
		if errors.Is(err, core.ErrNoNotesFound) {
			return nil, nil
		}
		return nil, err
	}
	for _, f := range []string{opts.HintField, opts.GroupField, opts.KeyField} {
		if _, err := nt.FieldIndex(f); err != nil {
			return nil, err
		}
	}
	index, err := g.keyIndex(ctx, opts)
	if err != nil {
		return nil, err
	}
	notes, err := g.svc.Notes(ctx, ids)
	if err != nil {
		return nil, err
	}

	grouped := make(map[core.NoteID]bool)
	var sets []Set
	for _, n := range notes {
		hintValue, _ := n.Value(nt, opts.HintField)
		groupValue, _ := n.Value(nt, opts.GroupField)
		if strings.TrimSpace(hintValue) == "" || strings.TrimSpace(groupValue) != "" {
			continue
		}
		if grouped[n.ID] {
			g.logger.Warn("note already grouped by another hint, skipped", "note", n.ID)
			continue
		}

		for _, line := range hintLines(hintValue) {
			set := Set{Notes: []core.NoteID{n.ID}}
			for _, key := range keysOf(line) {
				found := index[key]
				switch {
				case len(found) == 0:
					g.logger.Warn("no note for key", "key", key, "note", n.ID)
				case len(found) > 1:
					g.logger.Warn("several notes share the key", "key", key, "notes", found)
				case found[0] != n.ID && !contains(set.Notes, found[0]):
					set.Notes = append(set.Notes, found[0])
					set.Keys = append(set.Keys, key)
				}
			}
			if len(set.Notes) < 2 {
				continue
			}
			for _, id := range set.Notes {
				grouped[id] = true
			}
			sets = append(sets, set)
		}
	}
	if len(sets) > 0 {
		sortSets(sets)
	}
	g.logger.Info("manual groups found", "groups", len(sets))
	return sets, nil
}

// hintLines splits the visible text of a hint into its non-blank lines.
// <br> tags count as line breaks.
func hintLines(value string) []string {
	value = brTag.ReplaceAllString(value, "\n")
	var out []string
	for _, line := range strings.Split(cloze.Text(value), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func contains(ids []core.NoteID, id core.NoteID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
