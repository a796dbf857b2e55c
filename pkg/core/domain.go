// Package core holds the domain of clozekit: notes, note types and the
// Collection port every adapter implements.
package core

import (
	"fmt"
	"strings"
)

// NoteID identifies a note inside a collection.
type NoteID int64

// NoteTypeID identifies a note type (a "model" in the host application).
type NoteTypeID int64

// Kind tells whether a note type renders one card per template or one card
// per cloze marker.
type Kind int

const (
	KindStandard Kind = 0
	KindCloze    Kind = 1
)

func (k Kind) String() string {
	if k == KindCloze {
		return "cloze"
	}
	return "standard"
}

// Field is a named slot of a note type.
type Field struct {
	Name string
	Ord  int
}

// Template is a card template. QuestionFormat and AnswerFormat use the
// host application's mustache-like syntax ("{{Field}}").
type Template struct {
	Name           string
	Ord            int
	QuestionFormat string
	AnswerFormat   string
}

// NoteType is the schema shared by a set of notes.
type NoteType struct {
	ID        NoteTypeID
	Name      string
	Kind      Kind
	Fields    []Field
	Templates []Template
	CSS       string
	SortField int
	Modified  int64
}

// IsCloze reports whether the note type is a cloze type.
func (nt NoteType) IsCloze() bool {
	return nt.Kind == KindCloze
}

// FieldIndex returns the ordinal of the named field.
func (nt NoteType) FieldIndex(name string) (int, error) {
	for _, f := range nt.Fields {
		if f.Name == name {
			return f.Ord, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in note type %q (fields: %s)",
		ErrFieldNotFound, name, nt.Name, strings.Join(nt.FieldNames(), ", "))
}

// HasField reports whether the note type has a field with that name.
func (nt NoteType) HasField(name string) bool {
	_, err := nt.FieldIndex(name)
	return err == nil
}

// FieldNames returns the field names ordered by ordinal.
func (nt NoteType) FieldNames() []string {
	names := make([]string, len(nt.Fields))
	for i, f := range nt.Fields {
		names[i] = f.Name
	}
	return names
}

// AddField appends a field with the next ordinal.
func (nt *NoteType) AddField(name string) {
	nt.Fields = append(nt.Fields, Field{Name: name, Ord: len(nt.Fields)})
}

// AddTemplate appends a card template with the next ordinal.
func (nt *NoteType) AddTemplate(name, question, answer string) {
	nt.Templates = append(nt.Templates, Template{
		Name:           name,
		Ord:            len(nt.Templates),
		QuestionFormat: question,
		AnswerFormat:   answer,
	})
}

// Clone returns a deep copy.
func (nt NoteType) Clone() NoteType {
	c := nt
	c.Fields = append([]Field(nil), nt.Fields...)
	c.Templates = append([]Template(nil), nt.Templates...)
	return c
}
