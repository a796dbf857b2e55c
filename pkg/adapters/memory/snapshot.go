package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/clozekit/pkg/core"
)

// Snapshot is the YAML layout of a collection. Note fields are keyed by
// field name so snapshots stay readable and editable by hand.
type Snapshot struct {
	NoteTypes []NoteTypeRecord `yaml:"note_types"`
	Notes     []NoteRecord     `yaml:"notes"`
}

// NoteTypeRecord is a note type inside a snapshot.
type NoteTypeRecord struct {
	ID        core.NoteTypeID  `yaml:"id"`
	Name      string           `yaml:"name"`
	Kind      string           `yaml:"kind,omitempty"`
	Fields    []string         `yaml:"fields"`
	Templates []TemplateRecord `yaml:"templates,omitempty"`
	CSS       string           `yaml:"css,omitempty"`
}

// TemplateRecord is a card template inside a snapshot.
type TemplateRecord struct {
	Name     string `yaml:"name"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// NoteRecord is a note inside a snapshot.
type NoteRecord struct {
	ID     core.NoteID       `yaml:"id"`
	Type   string            `yaml:"type"`
	Fields map[string]string `yaml:"fields"`
	Tags   []string          `yaml:"tags,omitempty"`
	Cards  []int             `yaml:"cards,omitempty"`
}

// DecodeSnapshot parses a YAML snapshot, rejecting unknown keys.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	return snap, nil
}

// EncodeSnapshot renders a snapshot as YAML.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore replaces the content of the collection with the snapshot.
func (c *Collection) Restore(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.types = make(map[core.NoteTypeID]core.NoteType)
	c.notes = make(map[core.NoteID]core.Note)
	c.order = nil

	byName := make(map[string]core.NoteType)
	for _, rec := range snap.NoteTypes {
		nt := rec.noteType()
		if nt.ID == 0 {
			nt.ID = c.nextTypeID()
		}
		if _, dup := c.types[nt.ID]; dup {
			return fmt.Errorf("duplicate note type id %d", nt.ID)
		}
		c.types[nt.ID] = nt
		if _, seen := byName[nt.Name]; !seen {
			byName[nt.Name] = nt
		}
	}

	for _, rec := range snap.Notes {
		nt, ok := byName[rec.Type]
		if !ok {
			return fmt.Errorf("%w: %q used by note %d", core.ErrNoteTypeNotFound, rec.Type, rec.ID)
		}
		n := core.Note{ID: rec.ID, TypeID: nt.ID, Tags: rec.Tags, CardQueues: rec.Cards}
		if n.ID == 0 {
			n.ID = c.nextNoteID()
		}
		if _, dup := c.notes[n.ID]; dup {
			return fmt.Errorf("duplicate note id %d", n.ID)
		}
		n.Fields = make([]string, len(nt.Fields))
		for name, value := range rec.Fields {
			idx, err := nt.FieldIndex(name)
			if err != nil {
				return fmt.Errorf("note %d: %w", n.ID, err)
			}
			n.Fields[idx] = value
		}
		if len(n.CardQueues) == 0 {
			n.CardQueues = []int{0}
		}
		c.notes[n.ID] = n
		c.order = append(c.order, n.ID)
	}
	return nil
}

// Snapshot returns the content of the collection.
func (c *Collection) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Collection) snapshotLocked() Snapshot {
	var snap Snapshot
	for _, id := range c.typeIDs() {
		snap.NoteTypes = append(snap.NoteTypes, typeRecord(c.types[id]))
	}
	for _, id := range c.order {
		n := c.notes[id]
		snap.Notes = append(snap.Notes, noteRecord(c.types[n.TypeID], n))
	}
	return snap
}

// Capture copies the notes of any collection matching search, and the note
// types they use, into a snapshot. An empty search also keeps the unused
// note types of collections implementing core.TypeLister.
func Capture(ctx context.Context, coll core.Collection, search string) (Snapshot, error) {
	ids, err := coll.FindNotes(ctx, search)
	if err != nil {
		return Snapshot{}, err
	}

	types := make(map[core.NoteTypeID]core.NoteType)
	if lister, ok := coll.(core.TypeLister); ok && search == "" {
		all, err := lister.NoteTypes(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		for _, nt := range all {
			types[nt.ID] = nt
		}
	}
	var snap Snapshot
	for _, id := range ids {
		n, err := coll.GetNote(ctx, id)
		if err != nil {
			return Snapshot{}, err
		}
		nt, ok := types[n.TypeID]
		if !ok {
			nt, err = coll.NoteType(ctx, n.TypeID)
			if err != nil {
				return Snapshot{}, err
			}
			types[n.TypeID] = nt
		}
		snap.Notes = append(snap.Notes, noteRecord(nt, n))
	}

	typeIDs := make([]core.NoteTypeID, 0, len(types))
	for id := range types {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })
	for _, id := range typeIDs {
		snap.NoteTypes = append(snap.NoteTypes, typeRecord(types[id]))
	}
	return snap, nil
}

func (rec NoteTypeRecord) noteType() core.NoteType {
	nt := core.NoteType{ID: rec.ID, Name: rec.Name, CSS: rec.CSS}
	if rec.Kind == core.KindCloze.String() {
		nt.Kind = core.KindCloze
	}
	for _, f := range rec.Fields {
		nt.AddField(f)
	}
	for _, t := range rec.Templates {
		nt.AddTemplate(t.Name, t.Question, t.Answer)
	}
	return nt
}

func typeRecord(nt core.NoteType) NoteTypeRecord {
	rec := NoteTypeRecord{
		ID:     nt.ID,
		Name:   nt.Name,
		Kind:   nt.Kind.String(),
		Fields: nt.FieldNames(),
		CSS:    nt.CSS,
	}
	for _, t := range nt.Templates {
		rec.Templates = append(rec.Templates, TemplateRecord{Name: t.Name, Question: t.QuestionFormat, Answer: t.AnswerFormat})
	}
	return rec
}

func noteRecord(nt core.NoteType, n core.Note) NoteRecord {
	rec := NoteRecord{
		ID:     n.ID,
		Type:   nt.Name,
		Fields: make(map[string]string, len(nt.Fields)),
		Tags:   n.Tags,
		Cards:  n.CardQueues,
	}
	for _, f := range nt.Fields {
		if f.Ord < len(n.Fields) {
			rec.Fields[f.Name] = n.Fields[f.Ord]
		}
	}
	return rec
}
