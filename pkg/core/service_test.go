package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/clozekit/pkg/core"
)

// MockCollection implements core.Collection in memory. FindNotes treats the
// query as a plain substring of the first field, honouring a trailing
// note:"Type" restriction.
type MockCollection struct {
	types map[core.NoteTypeID]core.NoteType
	notes map[core.NoteID]core.Note
	order []core.NoteID
}

func NewMockCollection() *MockCollection {
	return &MockCollection{
		types: make(map[core.NoteTypeID]core.NoteType),
		notes: make(map[core.NoteID]core.Note),
	}
}

func (m *MockCollection) add(n core.Note) {
	m.notes[n.ID] = n
	m.order = append(m.order, n.ID)
}

func (m *MockCollection) FindNotes(ctx context.Context, query string) ([]core.NoteID, error) {
	typeName := ""
	if i := strings.Index(query, `note:"`); i >= 0 {
		typeName = strings.TrimSuffix(query[i+len(`note:"`):], `"`)
		query = strings.TrimSpace(query[:i])
	}
	var ids []core.NoteID
	for _, id := range m.order {
		n := m.notes[id]
		if typeName != "" && m.types[n.TypeID].Name != typeName {
			continue
		}
		if query != "" && !strings.Contains(n.Fields[0], query) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MockCollection) GetNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return core.Note{}, core.ErrNoteNotFound
	}
	return n, nil
}

func (m *MockCollection) UpdateNotes(ctx context.Context, notes []core.Note) error {
	for _, n := range notes {
		m.notes[n.ID] = n
	}
	return nil
}

func (m *MockCollection) NoteType(ctx context.Context, id core.NoteTypeID) (core.NoteType, error) {
	nt, ok := m.types[id]
	if !ok {
		return core.NoteType{}, core.ErrNoteTypeNotFound
	}
	return nt, nil
}

func (m *MockCollection) NoteTypeByName(ctx context.Context, name string) (core.NoteType, error) {
	for _, nt := range m.types {
		if nt.Name == name {
			return nt, nil
		}
	}
	return core.NoteType{}, core.ErrNoteTypeNotFound
}

func (m *MockCollection) SaveNoteType(ctx context.Context, nt *core.NoteType) error {
	if nt.ID == 0 {
		nt.ID = core.NoteTypeID(len(m.types) + 1)
	}
	m.types[nt.ID] = *nt
	return nil
}

func (m *MockCollection) ChangeNoteType(ctx context.Context, from core.NoteType, ids []core.NoteID, to core.NoteType, fieldMap map[int]int) error {
	return errors.New("not supported")
}

func (m *MockCollection) Close() error { return nil }

func fixture() *MockCollection {
	m := NewMockCollection()
	m.types[1] = core.NoteType{
		ID: 1, Name: "Cloze", Kind: core.KindCloze,
		Fields: []core.Field{{Name: "Text", Ord: 0}, {Name: "Extra", Ord: 1}},
	}
	m.types[2] = core.NoteType{
		ID: 2, Name: "Basic",
		Fields: []core.Field{{Name: "Front", Ord: 0}, {Name: "Back", Ord: 1}},
	}
	m.add(core.Note{ID: 10, TypeID: 1, Fields: []string{"{{c1::Abbey Road}} by {{c2::The Beatles}}", ""}})
	m.add(core.Note{ID: 11, TypeID: 1, Fields: []string{"{{c1::Thriller}} by {{c2::Michael Jackson}}", ""}})
	m.add(core.Note{ID: 20, TypeID: 2, Fields: []string{"by the sea", "au bord de la mer"}})
	return m
}

func TestService_FindNotes(t *testing.T) {
	svc := core.NewService(fixture(), nil)
	ctx := context.Background()

	ids, nt, err := svc.FindNotes(ctx, "by", "Cloze")
	if err != nil {
		t.Fatalf("FindNotes failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 notes, got %d", len(ids))
	}
	if nt.Name != "Cloze" {
		t.Errorf("expected note type Cloze, got %q", nt.Name)
	}
}

func TestService_FindNotes_Empty(t *testing.T) {
	svc := core.NewService(fixture(), nil)

	_, _, err := svc.FindNotes(context.Background(), "Nevermind", "Cloze")
	if !errors.Is(err, core.ErrNoNotesFound) {
		t.Fatalf("expected ErrNoNotesFound, got %v", err)
	}
	if !strings.Contains(err.Error(), `note:"Cloze"`) {
		t.Errorf("error should name the full query, got %q", err.Error())
	}
}

func TestService_FindNotes_MixedTypes(t *testing.T) {
	svc := core.NewService(fixture(), nil)

	_, _, err := svc.FindNotes(context.Background(), "by", "")
	if !errors.Is(err, core.ErrMixedNoteTypes) {
		t.Fatalf("expected ErrMixedNoteTypes, got %v", err)
	}
}

func TestTypeQuery(t *testing.T) {
	cases := map[string][2]string{
		`tag:music note:"Cloze"`: {"tag:music", "Cloze"},
		`note:"Cloze"`:           {"  ", "Cloze"},
		"tag:music":              {"tag:music", ""},
	}
	for want, in := range cases {
		if got := core.TypeQuery(in[0], in[1]); got != want {
			t.Errorf("TypeQuery(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	m := fixture()

	cloze := m.types[1]
	if got := core.Preview(cloze, m.notes[10], "Text"); got != "{{c1::Abbey Road}} by {{c2::The Beatles}}" {
		t.Errorf("unexpected cloze preview %q", got)
	}

	basic := m.types[2]
	got := core.Preview(basic, m.notes[20], "")
	if got != "{Front: by the sea, Back: au bord de la mer}" {
		t.Errorf("unexpected basic preview %q", got)
	}

	got = core.Preview(basic, core.Note{Fields: []string{"only front", ""}}, "")
	if got != "{Front: only front}" {
		t.Errorf("empty fields should be skipped, got %q", got)
	}
}

func TestService_FieldValues(t *testing.T) {
	svc := core.NewService(fixture(), nil)
	ctx := context.Background()

	values, err := svc.FieldValues(ctx, "", "Basic", "Back")
	if err != nil {
		t.Fatalf("FieldValues failed: %v", err)
	}
	if values[20] != "au bord de la mer" {
		t.Errorf("unexpected value %q", values[20])
	}

	_, err = svc.FieldValues(ctx, "", "Basic", "Missing")
	if !errors.Is(err, core.ErrFieldNotFound) {
		t.Errorf("expected ErrFieldNotFound, got %v", err)
	}

	values, err = svc.FieldValues(ctx, "zzz", "Basic", "Back")
	if err != nil || len(values) != 0 {
		t.Errorf("expected no values and no error, got %v, %v", values, err)
	}
}

func TestNoteType_FieldIndex(t *testing.T) {
	nt := fixture().types[2]

	idx, err := nt.FieldIndex("Back")
	if err != nil || idx != 1 {
		t.Errorf("FieldIndex(Back) = %d, %v", idx, err)
	}

	_, err = nt.FieldIndex("Nope")
	if !errors.Is(err, core.ErrFieldNotFound) {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "Front, Back") {
		t.Errorf("error should list the available fields, got %q", err.Error())
	}
}

func TestNote_SetValue(t *testing.T) {
	nt := core.NoteType{Fields: []core.Field{{Name: "A", Ord: 0}, {Name: "B", Ord: 1}, {Name: "C", Ord: 2}}}
	n := core.Note{Fields: []string{"a"}}

	if err := n.SetValue(nt, "C", "c"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if len(n.Fields) != 3 || n.Fields[2] != "c" {
		t.Errorf("unexpected fields %v", n.Fields)
	}
}

func TestNote_Queues(t *testing.T) {
	n := core.Note{CardQueues: []int{core.QueueSuspended, 0}}
	if !n.Suspended() || !n.HasActiveCard() {
		t.Errorf("expected suspended and active cards")
	}
	n.CardQueues = []int{core.QueueSuspended}
	if n.HasActiveCard() {
		t.Errorf("expected no active card")
	}
}

func TestService_State(t *testing.T) {
	svc := core.NewService(fixture(), nil)

	state, ok := svc.State().(core.ServiceState)
	if !ok {
		t.Fatalf("unexpected state %T", svc.State())
	}
	if state.CollectionType != "collection" {
		t.Errorf("expected a plain collection, got %q", state.CollectionType)
	}
	if svc.ComponentType() != "service" {
		t.Errorf("unexpected component type %q", svc.ComponentType())
	}
}

func TestService_FindNotes_ErrorNamesQuery(t *testing.T) {
	svc := core.NewService(fixture(), nil)

	_, _, err := svc.FindNotes(context.Background(), `"Text:Nevermind*"`, "Cloze")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), `for "Text:Nevermind*" note:"Cloze":`) {
		t.Errorf("the query should appear as typed, got %q", err.Error())
	}
}
