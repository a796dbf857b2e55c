package memory

import (
	"github.com/aretw0/introspection"
)

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Path      string `json:"path,omitempty"`
	Notes     int    `json:"notes"`
	NoteTypes int    `json:"note_types"`
	Writes    int    `json:"writes"`
	Dirty     bool   `json:"dirty"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CollectionState{
		Path:      c.config.Path,
		Notes:     len(c.notes),
		NoteTypes: len(c.types),
		Writes:    c.writes,
		Dirty:     c.dirty,
	}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "memory"
}

var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)
