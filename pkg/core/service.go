package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aretw0/clozekit/pkg/cloze"
)

// Service handles the note lookups shared by every workflow.
type Service struct {
	coll   Collection
	logger *slog.Logger
}

// NewService creates a new Service. A nil logger discards output.
func NewService(coll Collection, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{coll: coll, logger: logger}
}

// Collection exposes the underlying collection.
func (s *Service) Collection() Collection {
	return s.coll
}

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

// Close closes the underlying collection.
func (s *Service) Close() error {
	return s.coll.Close()
}

// TypeQuery restricts query to the notes of one note type.
func TypeQuery(query, typeName string) string {
	q := strings.TrimSpace(query)
	if typeName == "" {
		return q
	}
	restriction := fmt.Sprintf("note:%q", typeName)
	if q == "" {
		return restriction
	}
	return q + " " + restriction
}

// FindNotes returns the notes of typeName matching query together with
// their common note type. An empty result yields ErrNoNotesFound.
func (s *Service) FindNotes(ctx context.Context, query, typeName string) ([]NoteID, NoteType, error) {
	full := TypeQuery(query, typeName)
	ids, err := s.coll.FindNotes(ctx, full)
	if err != nil {
		return nil, NoteType{}, fmt.Errorf("search %s: %w", full, err)
	}
	if len(ids) == 0 {
		return nil, NoteType{}, fmt.Errorf("%w for %s: review the query and the note type", ErrNoNotesFound, full)
	}

	nt, err := s.singleNoteType(ctx, ids)
	if err != nil {
		return nil, NoteType{}, err
	}

	s.logger.Info("notes found", "count", len(ids), "note_type", nt.Name, "query", full)
	return ids, nt, nil
}

func (s *Service) singleNoteType(ctx context.Context, ids []NoteID) (NoteType, error) {
	var typeID NoteTypeID
	for i, id := range ids {
		n, err := s.coll.GetNote(ctx, id)
		if err != nil {
			return NoteType{}, err
		}
		if i == 0 {
			typeID = n.TypeID
			continue
		}
		if n.TypeID != typeID {
			return NoteType{}, fmt.Errorf("%w: %d and %d", ErrMixedNoteTypes, typeID, n.TypeID)
		}
	}
	return s.coll.NoteType(ctx, typeID)
}

// Notes loads the notes with the given IDs, keeping their order.
func (s *Service) Notes(ctx context.Context, ids []NoteID) ([]Note, error) {
	notes := make([]Note, 0, len(ids))
	for _, id := range ids {
		n, err := s.coll.GetNote(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load note %d: %w", id, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// LogPreviews logs a short description of each note. For standard note
// types it warns that existing field values may be replaced.
func (s *Service) LogPreviews(nt NoteType, notes []Note, clozeField string) {
	if !nt.IsCloze() {
		s.logger.Warn("the fields of notes of a standard type are not empty and might be replaced")
	}
	for _, n := range notes {
		s.logger.Info(Preview(nt, n, clozeField), "note", n.ID)
	}
}

// Preview describes a note: the cloze text for cloze types, otherwise the
// truncated non-empty fields other than clozeField.
func Preview(nt NoteType, n Note, clozeField string) string {
	if nt.IsCloze() {
		if v, err := n.Value(nt, clozeField); err == nil {
			return v
		}
	}

	var parts []string
	for _, f := range nt.Fields {
		if f.Name == clozeField || f.Ord >= len(n.Fields) || n.Fields[f.Ord] == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, cloze.Truncate(n.Fields[f.Ord], cloze.DefaultTruncate)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FieldValues collects the value of field for every note of the query,
// keyed by note ID. Missing fields are reported as ErrFieldNotFound.
func (s *Service) FieldValues(ctx context.Context, query, typeName, field string) (map[NoteID]string, error) {
	ids, nt, err := s.FindNotes(ctx, query, typeName)
	if err != nil {
		if errors.Is(err, ErrNoNotesFound) {
			return map[NoteID]string{}, nil
		}
		return nil, err
	}
	idx, err := nt.FieldIndex(field)
	if err != nil {
		return nil, err
	}
	notes, err := s.Notes(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[NoteID]string, len(notes))
	for _, n := range notes {
		if idx < len(n.Fields) {
			out[n.ID] = n.Fields[idx]
		}
	}
	return out, nil
}

// SortIDs sorts note IDs in place, oldest first.
func SortIDs(ids []NoteID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
