// Package convert turns cloze notes into notes of a standard type whose
// fields are filled from the cloze deletions.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/prompt"
	"github.com/aretw0/clozekit/pkg/schema"
)

// Defaults of a conversion job.
const (
	DefaultOriginalType = "Cloze"
	DefaultClozeField   = "Text"
)

// ErrNoNewType is returned when a cloze conversion names no target type.
var ErrNoNewType = errors.New("convert: no new note type name")

// Options describe one conversion.
type Options struct {
	Query        string           `yaml:"query"`
	OriginalType string           `yaml:"original_type"`
	NewType      string           `yaml:"new_type"`
	ClozeField   string           `yaml:"cloze_field"`
	Mappings     []schema.Mapping `yaml:"mappings"`
	// Permute lists targets whose cloze markers are tried in every
	// combination of distinct Markers.
	Permute []string `yaml:"permute"`
	Markers []string `yaml:"markers"`
}

func (o Options) originalType() string {
	if o.OriginalType == "" {
		return DefaultOriginalType
	}
	return o.OriginalType
}

func (o Options) clozeField() string {
	if o.ClozeField == "" {
		return DefaultClozeField
	}
	return o.ClozeField
}

// Result reports a conversion.
type Result struct {
	Notes     int
	NoteType  string
	Converted bool
	Failures  int
	Saved     bool
}

// Converter runs conversions.
type Converter struct {
	svc     *core.Service
	confirm prompt.Confirmer
	logger  *slog.Logger
	// Lines reads mappings interactively when a job has none.
	Lines prompt.LineReader
	// Report, when set, receives the converted notes before the save is
	// confirmed.
	Report func(nt core.NoteType, notes []core.Note)
}

// NewConverter creates a Converter.
func NewConverter(svc *core.Service, confirm prompt.Confirmer) *Converter {
	return &Converter{svc: svc, confirm: confirm, logger: svc.Logger()}
}

// Run converts the notes of the original type matching the query. A cloze
// original is moved to the new type first, created when missing; a
// standard original only has its fields extracted.
func (c *Converter) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result
	clozeField := opts.clozeField()

	ids, original, err := c.svc.FindNotes(ctx, opts.Query, opts.originalType())
	if err != nil {
		return res, err
	}
	res.Notes = len(ids)
	notes, err := c.svc.Notes(ctx, ids)
	if err != nil {
		return res, err
	}
	c.svc.LogPreviews(original, notes, clozeField)
	if err := c.confirm.Confirm(fmt.Sprintf("Convert these %d notes?", len(ids))); err != nil {
		return res, err
	}

	mappings := append([]schema.Mapping(nil), opts.Mappings...)
	if len(mappings) == 0 {
		if mappings, err = c.AskMappings(); err != nil {
			return res, err
		}
	}

	target := original
	source := clozeField
	if original.IsCloze() {
		mappings = schema.EnsureClozeField(mappings, clozeField)
		if target, err = c.prepareType(ctx, opts, original, mappings); err != nil {
			return res, err
		}
		fmap, err := schema.FieldMap(original, target, mappings, c.logger)
		if err != nil {
			return res, err
		}
		if err := c.confirm.Confirm("Change the note type with this field map?"); err != nil {
			return res, err
		}
		if err := c.svc.Collection().ChangeNoteType(ctx, original, ids, target, fmap); err != nil {
			if errors.Is(err, core.ErrReadOnly) {
				c.logger.Warn("collection is read-only, note type not changed")
				return res, nil
			}
			return res, fmt.Errorf("change note type: %w", err)
		}
		res.Converted = true
		c.logger.Warn("the notes were converted even if the extraction is not validated")
		source = clozeSource(mappings, clozeField)
	} else if !original.HasField(source) && original.HasField(schema.OriginalClozeField) {
		// Resuming a conversion: the cloze text was moved to its own field.
		source = schema.OriginalClozeField
	}
	res.NoteType = target.Name

	if notes, err = c.svc.Notes(ctx, ids); err != nil {
		return res, err
	}
	if res.Failures, err = extract(target, original, notes, mappings, source, c.logger); err != nil {
		return res, err
	}

	if c.Report != nil {
		c.Report(target, notes)
	}
	if err := c.confirm.Confirm("Confirm the mappings and save notes?"); err != nil {
		if res.Converted {
			c.logger.Warn("the field extraction was not saved but the notes were already converted; "+
				"rerun with the new type as original type to resume", "new_type", target.Name,
				"cloze_field", clozeSource(mappings, clozeField))
		}
		return res, err
	}
	if err := c.svc.Collection().UpdateNotes(ctx, notes); err != nil {
		if errors.Is(err, core.ErrReadOnly) {
			c.logger.Warn("collection is read-only, notes not saved")
			return res, nil
		}
		return res, fmt.Errorf("save notes: %w", err)
	}
	res.Saved = true
	c.logger.Info("notes converted and saved", "notes", len(notes), "note_type", target.Name)
	return res, nil
}

// prepareType reuses the new type by name or creates it, then adds the
// fields it lacks.
func (c *Converter) prepareType(ctx context.Context, opts Options, original core.NoteType, mappings []schema.Mapping) (core.NoteType, error) {
	if opts.NewType == "" {
		return core.NoteType{}, ErrNoNewType
	}
	coll := c.svc.Collection()
	target, err := coll.NoteTypeByName(ctx, opts.NewType)
	switch {
	case errors.Is(err, core.ErrNoteTypeNotFound):
		target = schema.NewBasicType(opts.NewType, mappings, original)
		c.logger.Info("creating note type", "name", target.Name, "fields", target.FieldNames())
	case err != nil:
		return core.NoteType{}, err
	default:
		c.logger.Info("resuming with existing note type", "name", target.Name)
	}

	added := schema.AddMissingFields(&target, mappings)
	for _, f := range added {
		c.logger.Warn("creating field missing from the new note type", "field", f)
	}
	if target.ID == 0 || len(added) > 0 {
		if err := coll.SaveNoteType(ctx, &target); err != nil {
			return core.NoteType{}, fmt.Errorf("save note type: %w", err)
		}
	}
	return target, nil
}

// clozeSource names the field of the new type holding the cloze text.
func clozeSource(mappings []schema.Mapping, clozeField string) string {
	for _, m := range mappings {
		if m.Source == clozeField {
			return m.Target
		}
	}
	for _, m := range mappings {
		if strings.Contains(m.Source, clozeField) {
			return m.Target
		}
	}
	return clozeField
}

// extract fills the extracted targets of notes from the cloze text held in
// source. Missing deletions are logged and counted.
func extract(nt, original core.NoteType, notes []core.Note, mappings []schema.Mapping, source string, logger *slog.Logger) (int, error) {
	idx, err := nt.FieldIndex(source)
	if err != nil {
		return 0, fmt.Errorf("cloze text: %w", err)
	}
	failures := 0
	for i := range notes {
		n := &notes[i]
		text := ""
		if idx < len(n.Fields) {
			text = n.Fields[idx]
		}
		for _, m := range mappings {
			if !m.Extracted(original) {
				continue
			}
			answer, err := cloze.Extract(text, m.Source)
			if err != nil {
				failures++
				logger.Info("cloze deletion not found, field left untouched", "note", n.ID, "target", m.Target, "cloze", m.Source)
				continue
			}
			if err := n.SetValue(nt, m.Target, answer); err != nil {
				return failures, err
			}
		}
		logger.Info("final fields", "note", n.ID, "fields", truncated(n.Fields))
	}
	return failures, nil
}

func truncated(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = cloze.Truncate(f, cloze.DefaultTruncate)
	}
	return out
}

// AskMappings reads "Name of field,c1" lines until "stop", an empty line or
// an invalid line.
func (c *Converter) AskMappings() ([]schema.Mapping, error) {
	if c.Lines == nil {
		return nil, fmt.Errorf("%w: no mappings given", schema.ErrTooFewMappings)
	}
	c.logger.Info("no mappings given for the new note type, enter them one per line")
	var mappings []schema.Mapping
	for {
		line, err := c.Lines.ReadLine("Field information as 'Name of field,c1' (stop to finish): ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if line == "stop" || line == "" {
			break
		}
		m, err := schema.ParseMapping(line)
		if err != nil {
			c.logger.Warn("mapping entry ended", "error", err)
			break
		}
		mappings = append(mappings, m)
		c.logger.Info("mapping added", "mapping", m.String())
	}
	return mappings, nil
}
