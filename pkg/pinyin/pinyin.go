// Package pinyin fills a note field with the tone-marked pinyin of another.
package pinyin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	gopinyin "github.com/mozillazg/go-pinyin"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/prompt"
)

// Convert returns the tone-marked pinyin of the visible text of field.
// Syllables are separated by spaces; text outside Han runs is kept.
func Convert(field string) string {
	args := gopinyin.NewArgs()
	args.Style = gopinyin.Tone

	var out []string
	var han, other []rune
	flushHan := func() {
		if len(han) > 0 {
			out = append(out, strings.Join(gopinyin.LazyPinyin(string(han), args), " "))
			han = han[:0]
		}
	}
	flushOther := func() {
		if s := strings.TrimSpace(string(other)); s != "" {
			out = append(out, s)
		}
		other = other[:0]
	}
	for _, r := range cloze.Text(field) {
		if unicode.Is(unicode.Han, r) {
			flushOther()
			han = append(han, r)
			continue
		}
		flushHan()
		other = append(other, r)
	}
	flushHan()
	flushOther()
	return strings.Join(out, " ")
}

// Options select the notes to fill.
type Options struct {
	TypeName string `yaml:"note_type"`
	Source   string `yaml:"source_field"`
	Target   string `yaml:"target_field"`
	// Query defaults to the notes whose target field is empty.
	Query string `yaml:"query"`
}

func (o Options) query() string {
	if o.Query != "" {
		return o.Query
	}
	return fmt.Sprintf("%q", o.Target+":")
}

// Filler writes pinyin into notes.
type Filler struct {
	svc     *core.Service
	confirm prompt.Confirmer
	logger  *slog.Logger
}

// NewFiller creates a Filler.
func NewFiller(svc *core.Service, confirm prompt.Confirmer) *Filler {
	return &Filler{svc: svc, confirm: confirm, logger: svc.Logger()}
}

// Run fills the target field of every matching note and returns the number
// of notes saved.
func (f *Filler) Run(ctx context.Context, opts Options) (int, error) {
	ids, nt, err := f.svc.FindNotes(ctx, opts.query(), opts.TypeName)
	if err != nil {
		return 0, err
	}
	if _, err := nt.FieldIndex(opts.Source); err != nil {
		return 0, err
	}
	if _, err := nt.FieldIndex(opts.Target); err != nil {
		return 0, err
	}

	notes, err := f.svc.Notes(ctx, ids)
	if err != nil {
		return 0, err
	}
	for i := range notes {
		source, _ := notes[i].Value(nt, opts.Source)
		value := Convert(source)
		if err := notes[i].SetValue(nt, opts.Target, value); err != nil {
			return 0, err
		}
		f.logger.Info("pinyin", "note", notes[i].ID, "source", cloze.Text(source), "pinyin", value)
	}

	if err := f.confirm.Confirm("Confirm save?"); err != nil {
		return 0, err
	}
	if err := f.svc.Collection().UpdateNotes(ctx, notes); err != nil {
		return 0, fmt.Errorf("save pinyin: %w", err)
	}
	f.logger.Info("pinyin saved", "notes", len(notes))
	return len(notes), nil
}
