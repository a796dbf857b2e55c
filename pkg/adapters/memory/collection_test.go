package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/clozekit/pkg/adapters/memory"
	"github.com/aretw0/clozekit/pkg/core"
)

const fixture = `note_types:
  - id: 1
    name: Cloze
    kind: cloze
    fields: [Text, Extra]
    templates:
      - name: Cloze
        question: "{{cloze:Text}}"
        answer: "{{cloze:Text}}<br>{{Extra}}"
notes:
  - id: 100
    type: Cloze
    fields:
      Text: "{{c1::Abbey Road}} by {{c2::The Beatles}}"
    tags: [music]
  - id: 101
    type: Cloze
    fields:
      Text: "{{c1::Thriller}} by {{c2::Michael Jackson}}"
      Extra: "1982"
    cards: [0, -1]
`

func open(t *testing.T) (*memory.Collection, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0644))
	c, err := memory.Open(memory.Config{Path: path})
	require.NoError(t, err)
	return c, path
}

func TestOpen(t *testing.T) {
	c, _ := open(t)
	ctx := context.Background()

	n, err := c.GetNote(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, []string{"{{c1::Thriller}} by {{c2::Michael Jackson}}", "1982"}, n.Fields)
	assert.Equal(t, []int{0, core.QueueSuspended}, n.CardQueues)

	n, err = c.GetNote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "", n.Fields[1])
	assert.Equal(t, []int{0}, n.CardQueues, "notes without cards get one")

	_, err = c.GetNote(ctx, 7)
	assert.True(t, errors.Is(err, core.ErrNoteNotFound))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("Missing File", func(t *testing.T) {
		c, err := memory.Open(memory.Config{Path: filepath.Join(dir, "none.yaml")})
		require.NoError(t, err)
		assert.Empty(t, c.Snapshot().Notes)

		_, err = memory.Open(memory.Config{Path: filepath.Join(dir, "none.yaml"), MustExist: true})
		assert.Error(t, err)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		data := "note_types:\n  - {id: 1, name: Basic, fields: [Front]}\nnotes:\n  - {id: 1, type: Basic, fields: {Back: x}}\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		_, err := memory.Open(memory.Config{Path: path})
		assert.True(t, errors.Is(err, core.ErrFieldNotFound), "got %v", err)
	})

	t.Run("Unknown Type", func(t *testing.T) {
		path := filepath.Join(dir, "orphan.yaml")
		data := "notes:\n  - {id: 1, type: Nope, fields: {}}\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		_, err := memory.Open(memory.Config{Path: path})
		assert.True(t, errors.Is(err, core.ErrNoteTypeNotFound), "got %v", err)
	})
}

func TestFindNotes(t *testing.T) {
	c, _ := open(t)
	ctx := context.Background()

	ids, err := c.FindNotes(ctx, `tag:music note:"Cloze"`)
	require.NoError(t, err)
	assert.Equal(t, []core.NoteID{100}, ids)

	ids, err = c.FindNotes(ctx, "is:suspended")
	require.NoError(t, err)
	assert.Equal(t, []core.NoteID{101}, ids)

	ids, err = c.FindNotes(ctx, "Extra:")
	require.NoError(t, err)
	assert.Equal(t, []core.NoteID{100}, ids)

	_, err = c.FindNotes(ctx, `note:"broken`)
	assert.Error(t, err)
}

func TestChangeNoteType(t *testing.T) {
	c, _ := open(t)
	ctx := context.Background()

	from, err := c.NoteTypeByName(ctx, "Cloze")
	require.NoError(t, err)

	to := core.NoteType{Name: "Music"}
	for _, f := range []string{"Album", "Group", "Original cloze text"} {
		to.AddField(f)
	}
	to.AddTemplate("Answer: Album", "{{Group}}", "{{Album}}")
	require.NoError(t, c.SaveNoteType(ctx, &to))
	require.NotZero(t, to.ID)

	require.NoError(t, c.ChangeNoteType(ctx, from, []core.NoteID{100, 101}, to, map[int]int{0: 2}))

	n, err := c.GetNote(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, to.ID, n.TypeID)
	assert.Equal(t, []string{"", "", "{{c1::Thriller}} by {{c2::Michael Jackson}}"}, n.Fields)
	assert.Equal(t, []int{0}, n.CardQueues, "cards beyond the templates are dropped")

	err = c.ChangeNoteType(ctx, from, []core.NoteID{100}, to, nil)
	assert.True(t, errors.Is(err, core.ErrMixedNoteTypes))
}

func TestUpdateNotes(t *testing.T) {
	c, _ := open(t)
	ctx := context.Background()

	n, err := c.GetNote(ctx, 100)
	require.NoError(t, err)
	n.Fields[1] = "1969"
	require.NoError(t, c.UpdateNotes(ctx, []core.Note{n}))

	got, err := c.GetNote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "1969", got.Fields[1])

	err = c.UpdateNotes(ctx, []core.Note{{ID: 999}})
	assert.True(t, errors.Is(err, core.ErrNoteNotFound))
}

func TestClose_PersistsChanges(t *testing.T) {
	c, path := open(t)
	ctx := context.Background()

	n, err := c.GetNote(ctx, 100)
	require.NoError(t, err)
	n.Fields[1] = "1969"
	require.NoError(t, c.UpdateNotes(ctx, []core.Note{n}))
	require.NoError(t, c.Close())

	reopened, err := memory.Open(memory.Config{Path: path, MustExist: true})
	require.NoError(t, err)
	got, err := reopened.GetNote(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "1969", got.Fields[1])

	state := reopened.State().(memory.CollectionState)
	assert.Equal(t, 2, state.Notes)
	assert.False(t, state.Dirty)
}

func TestClose_UntouchedLeavesFile(t *testing.T) {
	c, path := open(t)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fixture, string(data))
}

func TestCapture(t *testing.T) {
	c, _ := open(t)

	snap, err := memory.Capture(context.Background(), c, "tag:music")
	require.NoError(t, err)
	require.Len(t, snap.Notes, 1)
	require.Len(t, snap.NoteTypes, 1)
	assert.Equal(t, "cloze", snap.NoteTypes[0].Kind)
	assert.Equal(t, "Cloze", snap.Notes[0].Type)

	data, err := memory.EncodeSnapshot(snap)
	require.NoError(t, err)
	decoded, err := memory.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)
}

func TestRemapFields(t *testing.T) {
	got := memory.RemapFields([]string{"a", "b", "c"}, 4, map[int]int{0: 3, 2: 0, 5: 1})
	assert.Equal(t, []string{"c", "", "", "a"}, got)
}
