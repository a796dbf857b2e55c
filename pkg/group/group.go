// Package group labels related notes with shared group IDs so hints can be
// built per group. IDs are integers listed in a group field.
package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/prompt"
)

// DefaultSeparator joins the group IDs of a note.
const DefaultSeparator = ", "

// DefaultQuery selects the notes to label during manual discovery.
const DefaultQuery = "-is:suspended tag:marked"

// ErrNoGroupField is returned when the group field is not configured.
var ErrNoGroupField = errors.New("group: no group field")

// Set is a group of notes. ID is zero until one is assigned.
type Set struct {
	ID    int           `json:"id"`
	Notes []core.NoteID `json:"notes"`
	Keys  []string      `json:"keys,omitempty"`
}

// Options describe a group job.
type Options struct {
	TypeName   string `yaml:"note_type"`
	GroupField string `yaml:"group_field"`
	Separator  string `yaml:"separator"`
	// KeyField identifies a note, e.g. its word.
	KeyField  string `yaml:"key_field"`
	HintField string `yaml:"hint_field"`
	Query     string `yaml:"query"`
	// Mode of manual discovery: "han" (default) or "romanic".
	Mode      string   `yaml:"mode"`
	Language  string   `yaml:"language"`
	Languages []string `yaml:"languages"`
	// Neighbors and Threshold tune embedding discovery.
	Neighbors int     `yaml:"neighbors"`
	Threshold float32 `yaml:"threshold"`
	Vectors   string  `yaml:"vectors"`
}

func (o Options) separator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}
	return o.Separator
}

func (o Options) query() string {
	if o.Query == "" {
		return DefaultQuery
	}
	return o.Query
}

// LastID returns the highest group ID listed in values.
func LastID(values []string, sep string) int {
	last := 0
	for _, v := range values {
		for _, part := range strings.Split(v, sep) {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil && id > last {
				last = id
			}
		}
	}
	return last
}

// Assign appends id to the group field of n.
func Assign(nt core.NoteType, n *core.Note, field string, id int, sep string) error {
	current, err := n.Value(nt, field)
	if err != nil {
		return err
	}
	if current != "" {
		current += sep
	}
	return n.SetValue(nt, field, current+strconv.Itoa(id))
}

// Grouper discovers and assigns groups.
type Grouper struct {
	svc     *core.Service
	confirm prompt.Confirmer
	logger  *slog.Logger
}

// NewGrouper creates a Grouper.
func NewGrouper(svc *core.Service, confirm prompt.Confirmer) *Grouper {
	return &Grouper{svc: svc, confirm: confirm, logger: svc.Logger()}
}

// LastID returns the highest group ID in use among the notes of the type.
func (g *Grouper) LastID(ctx context.Context, opts Options) (int, error) {
	if opts.GroupField == "" {
		return 0, ErrNoGroupField
	}
	values, err := g.svc.FieldValues(ctx, "", opts.TypeName, opts.GroupField)
	if err != nil {
		return 0, err
	}
	all := make([]string, 0, len(values))
	for _, v := range values {
		all = append(all, v)
	}
	return LastID(all, opts.separator()), nil
}

// Number gives an ID to the sets without one, after the last ID in use.
func (g *Grouper) Number(ctx context.Context, opts Options, sets []Set) error {
	last, err := g.LastID(ctx, opts)
	if err != nil {
		return err
	}
	for _, s := range sets {
		if s.ID > last {
			last = s.ID
		}
	}
	for i := range sets {
		if sets[i].ID == 0 {
			last++
			sets[i].ID = last
		}
	}
	return nil
}

// Apply writes the group IDs of sets into their notes and returns the
// number of notes saved. Sets without an ID are numbered first.
func (g *Grouper) Apply(ctx context.Context, opts Options, sets []Set) (int, error) {
	if len(sets) == 0 {
		g.logger.Info("no group to apply")
		return 0, nil
	}
	if err := g.Number(ctx, opts, sets); err != nil {
		return 0, err
	}

	var ids []core.NoteID
	byID := make(map[core.NoteID]*core.Note)
	var nt core.NoteType
	for _, s := range sets {
		for _, id := range s.Notes {
			n, ok := byID[id]
			if !ok {
				loaded, err := g.svc.Collection().GetNote(ctx, id)
				if err != nil {
					return 0, fmt.Errorf("group %d: %w", s.ID, err)
				}
				if nt.ID != loaded.TypeID {
					if nt, err = g.svc.Collection().NoteType(ctx, loaded.TypeID); err != nil {
						return 0, err
					}
				}
				n = &loaded
				byID[id] = n
				ids = append(ids, id)
			}
			if err := Assign(nt, n, opts.GroupField, s.ID, opts.separator()); err != nil {
				return 0, err
			}
		}
		g.logger.Info("group", "id", s.ID, "notes", s.Notes, "keys", s.Keys)
	}

	if err := g.confirm.Confirm("Confirm the groups and save notes?"); err != nil {
		return 0, err
	}
	core.SortIDs(ids)
	notes := make([]core.Note, 0, len(ids))
	for _, id := range ids {
		notes = append(notes, *byID[id])
	}
	if err := g.svc.Collection().UpdateNotes(ctx, notes); err != nil {
		if errors.Is(err, core.ErrReadOnly) {
			g.logger.Warn("collection is read-only, groups not saved")
			return 0, nil
		}
		return 0, fmt.Errorf("save groups: %w", err)
	}
	g.logger.Info("groups saved", "groups", len(sets), "notes", len(notes))
	return len(notes), nil
}

// keyIndex maps the visible text of the key field to note IDs.
func (g *Grouper) keyIndex(ctx context.Context, opts Options) (map[string][]core.NoteID, error) {
	values, err := g.svc.FieldValues(ctx, "", opts.TypeName, opts.KeyField)
	if err != nil {
		return nil, err
	}
	index := make(map[string][]core.NoteID)
	for id, v := range values {
		key := keyText(v)
		if key != "" {
			index[key] = append(index[key], id)
		}
	}
	for _, ids := range index {
		core.SortIDs(ids)
	}
	return index, nil
}

func sortSets(sets []Set) {
	for i := range sets {
		core.SortIDs(sets[i].Notes)
	}
	sort.SliceStable(sets, func(i, j int) bool { return sets[i].Notes[0] < sets[j].Notes[0] })
}
