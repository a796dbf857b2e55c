// Package readonly wraps a collection so that every write fails with
// core.ErrReadOnly. Reads pass through unchanged.
package readonly

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/introspection"

	"github.com/aretw0/clozekit/pkg/core"
)

// Collection is a read-only view of another collection.
type Collection struct {
	inner  core.Collection
	logger *slog.Logger
}

// Wrap returns a read-only view of inner.
func Wrap(inner core.Collection, logger *slog.Logger) *Collection {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collection{inner: inner, logger: logger}
}

// Unwrap returns the wrapped collection.
func (c *Collection) Unwrap() core.Collection {
	return c.inner
}

func (c *Collection) FindNotes(ctx context.Context, query string) ([]core.NoteID, error) {
	return c.inner.FindNotes(ctx, query)
}

func (c *Collection) GetNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	return c.inner.GetNote(ctx, id)
}

func (c *Collection) NoteType(ctx context.Context, id core.NoteTypeID) (core.NoteType, error) {
	return c.inner.NoteType(ctx, id)
}

func (c *Collection) NoteTypeByName(ctx context.Context, name string) (core.NoteType, error) {
	return c.inner.NoteTypeByName(ctx, name)
}

func (c *Collection) UpdateNotes(ctx context.Context, notes []core.Note) error {
	c.logger.Info("read-only: skipping note update", "notes", len(notes))
	return core.ErrReadOnly
}

func (c *Collection) SaveNoteType(ctx context.Context, nt *core.NoteType) error {
	c.logger.Info("read-only: skipping note type save", "note_type", nt.Name)
	return core.ErrReadOnly
}

func (c *Collection) ChangeNoteType(ctx context.Context, from core.NoteType, ids []core.NoteID, to core.NoteType, fieldMap map[int]int) error {
	c.logger.Info("read-only: skipping note type change", "from", from.Name, "to", to.Name, "notes", len(ids))
	return core.ErrReadOnly
}

func (c *Collection) Close() error {
	return c.inner.Close()
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	if in, ok := c.inner.(introspection.Introspectable); ok {
		return in.State()
	}
	return nil
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	if comp, ok := c.inner.(introspection.Component); ok {
		return comp.ComponentType() + " (read-only)"
	}
	return "read-only"
}

// NoteTypes implements core.TypeLister when the wrapped collection does.
func (c *Collection) NoteTypes(ctx context.Context) ([]core.NoteType, error) {
	lister, ok := c.inner.(core.TypeLister)
	if !ok {
		return nil, fmt.Errorf("%s cannot list note types", c.ComponentType())
	}
	return lister.NoteTypes(ctx)
}

var _ core.Collection = (*Collection)(nil)
var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)
