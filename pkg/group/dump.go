package group

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Dump is a reviewable record of discovered groups.
type Dump struct {
	RunID    string    `json:"run_id"`
	TypeName string    `json:"note_type"`
	Field    string    `json:"group_field"`
	Method   string    `json:"method"`
	Created  time.Time `json:"created"`
	Groups   []Set     `json:"groups"`
}

// NewDump records sets found by method.
func NewDump(opts Options, method string, sets []Set, now time.Time) Dump {
	return Dump{
		RunID:    uuid.NewString(),
		TypeName: opts.TypeName,
		Field:    opts.GroupField,
		Method:   method,
		Created:  now.UTC(),
		Groups:   sets,
	}
}

// WriteDump encodes d as indented JSON.
func WriteDump(w io.Writer, d Dump) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// ReadDump decodes a dump written by WriteDump.
func ReadDump(r io.Reader) (Dump, error) {
	var d Dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Dump{}, fmt.Errorf("decode dump: %w", err)
	}
	return d, nil
}

// SaveDump writes d to path.
func SaveDump(path string, d Dump) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDump(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadDump reads the dump at path.
func LoadDump(path string) (Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dump{}, err
	}
	defer f.Close()
	return ReadDump(f)
}
