package core

import "context"

// Collection defines the contract of the host application's collection as
// clozekit uses it. Adhering to this interface keeps the workflows
// independent of the storage (SQLite collection file, YAML snapshot, memory).
type Collection interface {
	// FindNotes returns the IDs of the notes matching a search query.
	FindNotes(ctx context.Context, query string) ([]NoteID, error)

	// GetNote retrieves a note by its ID.
	GetNote(ctx context.Context, id NoteID) (Note, error)

	// UpdateNotes persists the field values and tags of existing notes.
	UpdateNotes(ctx context.Context, notes []Note) error

	// NoteType retrieves a note type by its ID.
	NoteType(ctx context.Context, id NoteTypeID) (NoteType, error)

	// NoteTypeByName retrieves a note type by its name.
	NoteTypeByName(ctx context.Context, name string) (NoteType, error)

	// SaveNoteType creates or updates a note type. A zero ID is replaced by
	// a freshly assigned one.
	SaveNoteType(ctx context.Context, nt *NoteType) error

	// ChangeNoteType moves notes from one note type to another. fieldMap maps
	// old field ordinals to new ones; unmapped new fields are left empty.
	ChangeNoteType(ctx context.Context, from NoteType, ids []NoteID, to NoteType, fieldMap map[int]int) error

	// Close releases the collection.
	Close() error
}

// TypeLister is implemented by collections able to list every note type,
// including those without notes.
type TypeLister interface {
	NoteTypes(ctx context.Context) ([]NoteType, error)
}
