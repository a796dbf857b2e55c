// Package memory implements core.Collection in memory, optionally backed by
// a YAML snapshot file written back on Close.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/query"
)

// Config holds the configuration of a memory collection.
type Config struct {
	// Path of the YAML snapshot. Empty keeps the collection in memory only.
	Path string
	// MustExist fails Open when the snapshot file is missing.
	MustExist bool
	Logger    *slog.Logger
}

// Collection is an in-memory core.Collection.
type Collection struct {
	config Config
	logger *slog.Logger

	mu     sync.RWMutex
	types  map[core.NoteTypeID]core.NoteType
	notes  map[core.NoteID]core.Note
	order  []core.NoteID
	dirty  bool
	writes int
	closed bool
}

// NewCollection creates an empty collection.
func NewCollection(config Config) *Collection {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collection{
		config: config,
		logger: logger,
		types:  make(map[core.NoteTypeID]core.NoteType),
		notes:  make(map[core.NoteID]core.Note),
	}
}

// Open creates a collection and loads its snapshot when one exists.
func Open(config Config) (*Collection, error) {
	c := NewCollection(config)
	if config.Path == "" {
		return c, nil
	}
	data, err := os.ReadFile(config.Path)
	if os.IsNotExist(err) && !config.MustExist {
		c.logger.Debug("snapshot not found, starting empty", "path", config.Path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", config.Path, err)
	}
	if err := c.Restore(snap); err != nil {
		return nil, err
	}
	c.logger.Debug("snapshot loaded", "path", config.Path, "notes", len(c.notes), "note_types", len(c.types))
	return c, nil
}

// AddNoteType inserts a note type, assigning an ID when zero.
func (c *Collection) AddNoteType(nt core.NoteType) core.NoteType {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nt.ID == 0 {
		nt.ID = c.nextTypeID()
	}
	c.types[nt.ID] = nt.Clone()
	return nt
}

// AddNote inserts a note, assigning an ID when zero. A note without cards
// gets one active card.
func (c *Collection) AddNote(n core.Note) core.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n.ID == 0 {
		n.ID = c.nextNoteID()
	}
	if len(n.CardQueues) == 0 {
		n.CardQueues = []int{0}
	}
	if nt, ok := c.types[n.TypeID]; ok {
		for len(n.Fields) < len(nt.Fields) {
			n.Fields = append(n.Fields, "")
		}
	}
	if _, exists := c.notes[n.ID]; !exists {
		c.order = append(c.order, n.ID)
	}
	c.notes[n.ID] = n.Clone()
	return n
}

func (c *Collection) nextTypeID() core.NoteTypeID {
	var max core.NoteTypeID
	for id := range c.types {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (c *Collection) nextNoteID() core.NoteID {
	var max core.NoteID
	for id := range c.notes {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// FindNotes implements core.Collection.
func (c *Collection) FindNotes(ctx context.Context, search string) ([]core.NoteID, error) {
	q, err := query.Parse(search)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []core.NoteID
	for _, id := range c.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := c.notes[id]
		if q.Match(c.types[n.TypeID], n) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetNote implements core.Collection.
func (c *Collection) GetNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.notes[id]
	if !ok {
		return core.Note{}, fmt.Errorf("%w: %d", core.ErrNoteNotFound, id)
	}
	return n.Clone(), nil
}

// UpdateNotes implements core.Collection.
func (c *Collection) UpdateNotes(ctx context.Context, notes []core.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range notes {
		if _, ok := c.notes[n.ID]; !ok {
			return fmt.Errorf("%w: %d", core.ErrNoteNotFound, n.ID)
		}
	}
	now := time.Now().Unix()
	for _, n := range notes {
		stored := c.notes[n.ID]
		stored.Fields = append([]string(nil), n.Fields...)
		stored.Tags = append([]string(nil), n.Tags...)
		stored.Modified = now
		c.notes[n.ID] = stored
	}
	c.touch()
	return nil
}

// NoteType implements core.Collection.
func (c *Collection) NoteType(ctx context.Context, id core.NoteTypeID) (core.NoteType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nt, ok := c.types[id]
	if !ok {
		return core.NoteType{}, fmt.Errorf("%w: %d", core.ErrNoteTypeNotFound, id)
	}
	return nt.Clone(), nil
}

// NoteTypeByName implements core.Collection. Ties resolve to the oldest ID.
func (c *Collection) NoteTypeByName(ctx context.Context, name string) (core.NoteType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.typeIDs() {
		if c.types[id].Name == name {
			return c.types[id].Clone(), nil
		}
	}
	return core.NoteType{}, fmt.Errorf("%w: %q", core.ErrNoteTypeNotFound, name)
}

// NoteTypes implements core.TypeLister.
func (c *Collection) NoteTypes(ctx context.Context) ([]core.NoteType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.NoteType, 0, len(c.types))
	for _, id := range c.typeIDs() {
		out = append(out, c.types[id].Clone())
	}
	return out, nil
}

func (c *Collection) typeIDs() []core.NoteTypeID {
	ids := make([]core.NoteTypeID, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SaveNoteType implements core.Collection. Notes of an updated type grow
// to its field count.
func (c *Collection) SaveNoteType(ctx context.Context, nt *core.NoteType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nt.ID == 0 {
		nt.ID = c.nextTypeID()
	}
	nt.Modified = time.Now().Unix()
	c.types[nt.ID] = nt.Clone()

	for id, n := range c.notes {
		if n.TypeID != nt.ID {
			continue
		}
		for len(n.Fields) < len(nt.Fields) {
			n.Fields = append(n.Fields, "")
		}
		c.notes[id] = n
	}
	c.touch()
	return nil
}

// ChangeNoteType implements core.Collection.
func (c *Collection) ChangeNoteType(ctx context.Context, from core.NoteType, ids []core.NoteID, to core.NoteType, fieldMap map[int]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.types[to.ID]; !ok {
		return fmt.Errorf("%w: %d", core.ErrNoteTypeNotFound, to.ID)
	}
	for _, id := range ids {
		n, ok := c.notes[id]
		if !ok {
			return fmt.Errorf("%w: %d", core.ErrNoteNotFound, id)
		}
		if n.TypeID != from.ID {
			return fmt.Errorf("%w: note %d is not a %q note", core.ErrMixedNoteTypes, id, from.Name)
		}
	}

	now := time.Now().Unix()
	for _, id := range ids {
		n := c.notes[id]
		n.Fields = RemapFields(n.Fields, len(to.Fields), fieldMap)
		n.CardQueues = remapCards(n.CardQueues, to)
		n.TypeID = to.ID
		n.Modified = now
		c.notes[id] = n
	}
	c.touch()
	c.logger.Debug("note type changed", "from", from.Name, "to", to.Name, "notes", len(ids))
	return nil
}

// RemapFields moves values from old ordinals to new ones; unmapped fields of
// the new layout are empty.
func RemapFields(old []string, size int, fieldMap map[int]int) []string {
	fields := make([]string, size)
	for src, dst := range fieldMap {
		if src < len(old) && dst >= 0 && dst < size {
			fields[dst] = old[src]
		}
	}
	return fields
}

// Cards beyond the templates of a standard type are dropped; a note always
// keeps at least one card.
func remapCards(queues []int, to core.NoteType) []int {
	out := append([]int(nil), queues...)
	if !to.IsCloze() && len(to.Templates) > 0 && len(out) > len(to.Templates) {
		out = out[:len(to.Templates)]
	}
	if len(out) == 0 {
		out = []int{0}
	}
	return out
}

func (c *Collection) touch() {
	c.dirty = true
	c.writes++
}

// Close writes the snapshot back when the collection changed.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.config.Path == "" || !c.dirty {
		return nil
	}
	data, err := EncodeSnapshot(c.snapshotLocked())
	if err != nil {
		return err
	}
	if err := writeFileAtomic(c.config.Path, data, 0644); err != nil {
		return err
	}
	c.logger.Debug("snapshot saved", "path", c.config.Path)
	return nil
}

var (
	_ core.Collection = (*Collection)(nil)
	_ core.TypeLister = (*Collection)(nil)
)
