package hint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/prompt"
	"github.com/aretw0/clozekit/pkg/query"
)

// DefaultSeparator joins the fields of one note in its hint line.
const DefaultSeparator = ", "

// Options describe a hint job.
type Options struct {
	TypeName string `yaml:"note_type"`
	// Query selects the notes of a single group. Ignored by RunGroups.
	Query string `yaml:"query"`
	// Fields contribute to each hint line. Cloze markers for cloze types.
	Fields     []string `yaml:"fields"`
	Separator  string   `yaml:"separator"`
	HintField  string   `yaml:"hint_field"`
	ClozeField string   `yaml:"cloze_field"`
	SortField  string   `yaml:"sort_field"`
	SortKey    SortKey  `yaml:"sort_key"`
	// MaskField shows a hint of the hidden line instead of DefaultMask.
	MaskField  string `yaml:"mask_field"`
	MaskFunc   string `yaml:"mask_func"`
	Language   string `yaml:"language"`
	BreakLines bool   `yaml:"break_lines"`
	Replace    bool   `yaml:"replace"`
	// GroupField holds the group IDs of a note, joined by GroupSeparator.
	GroupField     string `yaml:"group_field"`
	GroupSeparator string `yaml:"group_separator"`
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

func (o Options) clozeField() string {
	if o.ClozeField == "" {
		return "Text"
	}
	return o.ClozeField
}

func (o Options) validate(nt core.NoteType) error {
	if len(o.Fields) == 0 {
		return errors.New("hint: no fields to build the hint from")
	}
	if o.HintField == "" {
		return errors.New("hint: no hint field")
	}
	if _, err := nt.FieldIndex(o.HintField); err != nil {
		return fmt.Errorf("hint field: %w", err)
	}
	if nt.IsCloze() {
		if _, err := nt.FieldIndex(o.clozeField()); err != nil {
			return fmt.Errorf("cloze field: %w", err)
		}
	}
	return nil
}

// NoteHint is the hint written to one note.
type NoteHint struct {
	Note     core.NoteID
	Preview  string
	Hint     string
	Replaced bool
}

// Result reports a hint job for one group.
type Result struct {
	Query string
	Group int
	Lines []string
	Notes []NoteHint
	Saved bool
}

// Generator writes hints into groups of notes.
type Generator struct {
	svc     *core.Service
	confirm prompt.Confirmer
	logger  *slog.Logger
	// Report, when set, receives each result before the save is confirmed.
	Report func(Result)
}

// NewGenerator creates a Generator.
func NewGenerator(svc *core.Service, confirm prompt.Confirmer) *Generator {
	return &Generator{svc: svc, confirm: confirm, logger: svc.Logger()}
}

// Run writes the hint of the notes matching q. group is the ID of the group
// q selects, or 0 when unknown.
func (g *Generator) Run(ctx context.Context, opts Options, q string, group int) (Result, error) {
	res := Result{Query: q, Group: group}

	ids, nt, err := g.svc.FindNotes(ctx, q, opts.TypeName)
	if err != nil {
		return res, err
	}
	if len(ids) < 2 {
		return res, fmt.Errorf("%w: %q matches %d note", ErrTooFewNotes, q, len(ids))
	}
	if err := opts.validate(nt); err != nil {
		return res, err
	}
	maskFn, err := LookupMask(opts.MaskFunc, opts.Language)
	if err != nil {
		return res, err
	}

	notes, err := g.svc.Notes(ctx, ids)
	if err != nil {
		return res, err
	}
	entries, failures, err := Build(nt, notes, opts.clozeField(), opts.Fields, opts.separator(), opts.SortField)
	if err != nil {
		return res, err
	}
	if failures > 0 {
		g.logger.Warn("some cloze deletions are missing from the hint", "missing", failures)
		if err := g.confirm.Confirm("Continue with an incomplete hint?"); err != nil {
			return res, err
		}
	}
	if err := Sort(entries, opts.SortKey, opts.Language); err != nil {
		return res, err
	}

	lines, positions := Lines(entries, opts.BreakLines)
	res.Lines = lines
	g.logger.Info("global hint", "query", q, "lines", len(lines))
	for _, l := range lines {
		g.logger.Debug(l)
	}

	updated := make([]core.Note, 0, len(entries))
	for _, e := range entries {
		n := e.Note.Clone()
		mask, err := MaskOf(nt, n, opts.clozeField(), opts.MaskField, maskFn)
		if err != nil {
			return res, err
		}
		text := Compose(lines, positions[n.ID], mask)

		replace := opts.Replace
		if opts.GroupField != "" {
			value, err := n.Value(nt, opts.GroupField)
			if err != nil {
				return res, fmt.Errorf("group field: %w", err)
			}
			replace = ShouldReplace(value, opts.GroupSeparator, group, opts.Replace)
		}
		if err := Apply(nt, &n, opts.HintField, text, replace); err != nil {
			return res, err
		}
		updated = append(updated, n)
		res.Notes = append(res.Notes, NoteHint{
			Note:     n.ID,
			Preview:  core.Preview(nt, n, opts.clozeField()),
			Hint:     text,
			Replaced: replace,
		})
	}

	if g.Report != nil {
		g.Report(res)
	}
	if err := g.confirm.Confirm("Confirm the hint generation and save notes?"); err != nil {
		return res, err
	}
	if err := g.svc.Collection().UpdateNotes(ctx, updated); err != nil {
		if errors.Is(err, core.ErrReadOnly) {
			g.logger.Warn("collection is read-only, hints not saved", "query", q)
			return res, nil
		}
		return res, fmt.Errorf("save hints: %w", err)
	}
	res.Saved = true
	g.logger.Info("hints saved", "notes", len(updated), "query", q)
	return res, nil
}

// GroupQuery selects the notes whose group field lists group.
func GroupQuery(field, sep string, group int) string {
	if sep == "" {
		return query.Quote(fmt.Sprintf("%s:re:^%d$", field, group))
	}
	re := regexp.QuoteMeta(sep)
	return query.Quote(fmt.Sprintf("%s:re:(^|%s)%d(%s|$)", field, re, group, re))
}

// DecadeQueries selects the notes of each decade of the given centuries,
// such as "Year:19" for the 1900s, through field.
func DecadeQueries(field string, centuries []string) []string {
	var out []string
	for _, c := range centuries {
		for d := 0; d <= 9; d++ {
			out = append(out, query.Quote(fmt.Sprintf("%s:%s%d*", field, c, d)))
		}
	}
	return out
}
