package anki

import (
	"sort"

	"github.com/aretw0/introspection"
)

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Path         string   `json:"path"`
	Schema       int      `json:"schema"`
	NoteTypes    []string `json:"note_types"`
	NotesWritten int      `json:"notes_written"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.models))
	for _, m := range c.models {
		if nt, err := m.noteType(); err == nil {
			names = append(names, nt.Name)
		}
	}
	sort.Strings(names)
	return CollectionState{
		Path:         c.config.Path,
		Schema:       SchemaVersion,
		NoteTypes:    names,
		NotesWritten: c.written,
	}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "anki"
}

var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)
