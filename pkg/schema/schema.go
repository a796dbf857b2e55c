// Package schema builds the note types and field maps used when notes move
// from a cloze type to a field-per-concept type.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

// OriginalClozeField receives the untouched cloze text when no mapping
// keeps it.
const OriginalClozeField = "Original cloze text"

// ErrTooFewMappings is returned when fewer than two fields are mapped.
var ErrTooFewMappings = errors.New("at least two fields must be mapped")

// ErrInvalidMapping reports a mapping line that is not "Target,Source".
var ErrInvalidMapping = errors.New("invalid field mapping")

// Mapping fills the Target field of the new note type from Source, which is
// either a field of the original note type or a cloze marker such as "c1".
type Mapping struct {
	Target string `yaml:"target" json:"target"`
	Source string `yaml:"source" json:"source"`
}

func (m Mapping) String() string {
	return m.Target + " <- " + m.Source
}

// ParseMapping parses "Album,c1".
func ParseMapping(line string) (Mapping, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Mapping{}, fmt.Errorf("%w: %q, expected 'Name of field,c1'", ErrInvalidMapping, line)
	}
	m := Mapping{Target: strings.TrimSpace(parts[0]), Source: strings.TrimSpace(parts[1])}
	if m.Target == "" || m.Source == "" {
		return Mapping{}, fmt.Errorf("%w: %q", ErrInvalidMapping, line)
	}
	return m, nil
}

// Extracted reports whether the mapping is filled by extraction rather than
// by copying a field of the original type.
func (m Mapping) Extracted(original core.NoteType) bool {
	return !original.HasField(m.Source)
}

// EnsureClozeField appends a mapping keeping the cloze text field unless a
// mapping already reads from it.
func EnsureClozeField(mappings []Mapping, clozeField string) []Mapping {
	for _, m := range mappings {
		if strings.Contains(m.Source, clozeField) {
			return mappings
		}
	}
	return append(mappings, Mapping{Target: OriginalClozeField, Source: clozeField})
}

// FieldMap maps old field ordinals to new ones. Targets filled by extraction
// or from an unknown source stay unmapped and are reported on the logger.
func FieldMap(old, updated core.NoteType, mappings []Mapping, logger *slog.Logger) (map[int]int, error) {
	if len(mappings) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewMappings, len(mappings))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fmap := make(map[int]int)
	for _, m := range mappings {
		target, err := updated.FieldIndex(m.Target)
		if err != nil {
			logger.Error("target field is missing from the new note type", "field", m.Target)
			continue
		}
		source, err := old.FieldIndex(m.Source)
		if err == nil {
			fmap[source] = target
			logger.Info("target field mapped from field", "target", m.Target, "source", m.Source)
			continue
		}
		if cloze.IsMarker(m.Source) {
			logger.Info("target field extracts a cloze deletion", "target", m.Target, "cloze", m.Source)
			continue
		}
		logger.Error("source field not found, the target field will be empty",
			"target", m.Target, "source", m.Source, "fields", old.FieldNames())
	}
	return fmap, nil
}

// NewBasicType creates a standard note type with one field per mapping and
// one card template per extracted field. Each template asks with the next
// mapped field and answers with its own.
func NewBasicType(name string, mappings []Mapping, original core.NoteType) core.NoteType {
	nt := core.NoteType{Name: name, Kind: core.KindStandard, CSS: DefaultCSS}
	for _, m := range mappings {
		nt.AddField(m.Target)
	}
	for i, m := range mappings {
		if !m.Extracted(original) {
			continue
		}
		next := mappings[(i+1)%len(mappings)].Target
		nt.AddTemplate("Answer: "+m.Target, "{{"+next+"}}", "{{"+m.Target+"}}")
	}
	if len(nt.Templates) == 0 && len(mappings) > 0 {
		first := mappings[0].Target
		nt.AddTemplate("Card 1", "{{"+first+"}}", "{{FrontSide}}<hr id=answer>")
	}
	return nt
}

// AddMissingFields adds the targets absent from nt and returns their names.
func AddMissingFields(nt *core.NoteType, mappings []Mapping) []string {
	var added []string
	for _, m := range mappings {
		if !nt.HasField(m.Target) {
			nt.AddField(m.Target)
			added = append(added, m.Target)
		}
	}
	return added
}

// DefaultCSS is the stylesheet of newly created note types.
const DefaultCSS = `.card {
    font-family: arial;
    font-size: 20px;
    text-align: center;
    color: black;
    background-color: white;
}
`
