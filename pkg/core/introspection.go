package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	CollectionType string `json:"collection_type"`
	Collection     any    `json:"collection,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	state := ServiceState{CollectionType: "unknown"}
	if s.coll != nil {
		state.CollectionType = "collection"
		if comp, ok := s.coll.(introspection.Component); ok {
			state.CollectionType = comp.ComponentType()
		}
		if in, ok := s.coll.(introspection.Introspectable); ok {
			state.Collection = in.State()
		}
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
