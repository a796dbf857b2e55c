package core

import "errors"

// Common errors.
var (
	ErrReadOnly         = errors.New("collection is in read-only mode")
	ErrNoNotesFound     = errors.New("no notes found")
	ErrNoteNotFound     = errors.New("note not found")
	ErrNoteTypeNotFound = errors.New("note type not found")
	ErrFieldNotFound    = errors.New("field not found")
	ErrMixedNoteTypes   = errors.New("notes belong to several note types")
)
