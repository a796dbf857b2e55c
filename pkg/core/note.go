package core

import "fmt"

// QueueSuspended is the card queue value of a suspended card.
const QueueSuspended = -1

// Note is an ordered list of field values belonging to exactly one note type.
// CardQueues holds the scheduling queue of each of its cards; it is read-only
// and only used for searching.
type Note struct {
	ID         NoteID
	TypeID     NoteTypeID
	Fields     []string
	Tags       []string
	Modified   int64
	CardQueues []int
}

// Value returns the content of the named field.
func (n Note) Value(nt NoteType, name string) (string, error) {
	idx, err := nt.FieldIndex(name)
	if err != nil {
		return "", err
	}
	if idx >= len(n.Fields) {
		return "", nil
	}
	return n.Fields[idx], nil
}

// SetValue replaces the content of the named field.
func (n *Note) SetValue(nt NoteType, name, value string) error {
	idx, err := nt.FieldIndex(name)
	if err != nil {
		return err
	}
	n.grow(len(nt.Fields))
	n.Fields[idx] = value
	return nil
}

// Suspended reports whether any card of the note is suspended.
func (n Note) Suspended() bool {
	for _, q := range n.CardQueues {
		if q == QueueSuspended {
			return true
		}
	}
	return false
}

// HasActiveCard reports whether any card of the note is not suspended.
func (n Note) HasActiveCard() bool {
	for _, q := range n.CardQueues {
		if q != QueueSuspended {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (n Note) Clone() Note {
	c := n
	c.Fields = append([]string(nil), n.Fields...)
	c.Tags = append([]string(nil), n.Tags...)
	c.CardQueues = append([]int(nil), n.CardQueues...)
	return c
}

func (n *Note) grow(size int) {
	for len(n.Fields) < size {
		n.Fields = append(n.Fields, "")
	}
}

func (n Note) String() string {
	return fmt.Sprintf("note %d", n.ID)
}
