package hint_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/clozekit/pkg/adapters/memory"
	"github.com/aretw0/clozekit/pkg/adapters/readonly"
	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/hint"
	"github.com/aretw0/clozekit/pkg/prompt"
)

func movies(t *testing.T) (*memory.Collection, core.NoteType) {
	t.Helper()
	c := memory.NewCollection(memory.Config{})
	nt := core.NoteType{Name: "Movie"}
	for _, f := range []string{"Year", "Movie winner", "Extra", "Group"} {
		nt.AddField(f)
	}
	nt.AddTemplate("Card 1", "{{Year}}", "{{Movie winner}}")
	nt = c.AddNoteType(nt)

	for i, row := range [][]string{
		{"1994", "Forrest Gump", "", "1"},
		{"1997", "<b>Titanic</b>", "", "1"},
		{"2001", "A Beautiful Mind", "", "1, 2"},
		{"2003", "The Return of the King", "", "2"},
	} {
		c.AddNote(core.Note{ID: core.NoteID(i + 1), TypeID: nt.ID, Fields: row})
	}
	return c, nt
}

func movieOptions() hint.Options {
	return hint.Options{
		TypeName:       "Movie",
		Fields:         []string{"Year", "Movie winner"},
		Separator:      " ",
		HintField:      "Extra",
		SortField:      "Year",
		MaskField:      "Movie winner",
		BreakLines:     true,
		Replace:        true,
		GroupField:     "Group",
		GroupSeparator: ", ",
	}
}

func extra(t *testing.T, c core.Collection, id core.NoteID) string {
	t.Helper()
	n, err := c.GetNote(context.Background(), id)
	require.NoError(t, err)
	nt, err := c.NoteType(context.Background(), n.TypeID)
	require.NoError(t, err)
	v, err := n.Value(nt, "Extra")
	require.NoError(t, err)
	return v
}

func TestCompose(t *testing.T) {
	lines := []string{"a", "b", "c"}
	assert.Equal(t, "?<br>b<br>c", hint.Compose(lines, 0, "?"))
	assert.Equal(t, "a<br>B<br>c", hint.Compose(lines, 1, "B"))
	assert.Equal(t, "a<br>b<br>?", hint.Compose(lines, 2, "?"))
	assert.Equal(t, []string{"a", "b", "c"}, lines, "lines are not modified")
}

func TestCompose_Idempotent(t *testing.T) {
	entries := []hint.Entry{
		{Note: core.Note{ID: 1}, Content: "1994 Forrest Gump"},
		{Note: core.Note{ID: 2}, Content: "1997 Titanic"},
		{Note: core.Note{ID: 3}, Content: "2001 A Beautiful Mind"},
	}
	lines, pos := hint.Lines(entries, true)
	require.Equal(t, "", lines[2], "decade break")

	for _, e := range entries {
		for _, mask := range []string{"?", "T"} {
			idx := pos[e.Note.ID]
			once := hint.Compose(lines, idx, mask)
			twice := hint.Compose(strings.Split(once, hint.LineSeparator), idx, mask)
			assert.Equal(t, once, twice, "note %d mask %q", e.Note.ID, mask)

			want := append([]string(nil), lines...)
			want[idx] = mask
			assert.Equal(t, strings.Join(want, hint.LineSeparator), once)
		}
	}
}

func TestMaskOf_Cloze(t *testing.T) {
	nt := core.NoteType{Name: "Cloze", Kind: core.KindCloze}
	nt.AddField("Text")
	nt.AddField("Extra")
	n := core.Note{ID: 1, Fields: []string{"{{c1::die Katze}} = {{c2::le chat}}", ""}}

	mask, err := hint.MaskOf(nt, n, "Text", "c2", hint.FirstRune)
	require.NoError(t, err)
	assert.Equal(t, "l", mask)

	_, err = hint.MaskOf(nt, n, "Text", "c3", hint.FirstRune)
	assert.True(t, errors.Is(err, cloze.ErrClozeNotFound), "got %v", err)
}

func TestBuild_MissingSortMarker(t *testing.T) {
	nt := core.NoteType{Name: "Cloze", Kind: core.KindCloze}
	nt.AddField("Text")
	nt.AddField("Extra")
	notes := []core.Note{
		{ID: 1, Fields: []string{"{{c1::1994}} {{c2::Forrest Gump}}", ""}},
		{ID: 2, Fields: []string{"{{c2::Titanic}}", ""}},
	}

	entries, failures, err := hint.Build(nt, notes, "Text", []string{"c2"}, ", ", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, failures, "the missing sort marker is counted")
	assert.Equal(t, "1994", entries[0].SortInfo)
	assert.Equal(t, "", entries[1].SortInfo)
}

func TestShouldReplace(t *testing.T) {
	assert.True(t, hint.ShouldReplace("1, 2", "", 2, true), "no separator keeps the flag")
	assert.False(t, hint.ShouldReplace("1, 2", ", ", 1, false))
	assert.True(t, hint.ShouldReplace("3", ", ", 3, true))
	assert.True(t, hint.ShouldReplace("2, 1", ", ", 1, true))
	assert.False(t, hint.ShouldReplace("1, 2", ", ", 2, true))
	assert.True(t, hint.ShouldReplace("1, 2", ", ", 5, true))
}

func TestSort(t *testing.T) {
	entries := func() []hint.Entry {
		return []hint.Entry{
			{Note: core.Note{ID: 1}, Content: "b", SortInfo: "10"},
			{Note: core.Note{ID: 2}, Content: "a", SortInfo: "9"},
			{Note: core.Note{ID: 3}, Content: "c", SortInfo: "100"},
		}
	}
	ids := func(es []hint.Entry) []core.NoteID {
		var out []core.NoteID
		for _, e := range es {
			out = append(out, e.Note.ID)
		}
		return out
	}

	es := entries()
	require.NoError(t, hint.Sort(es, hint.SortAuto, ""))
	assert.Equal(t, []core.NoteID{2, 1, 3}, ids(es), "integers sort numerically")

	es = entries()
	require.NoError(t, hint.Sort(es, hint.SortField, ""))
	assert.Equal(t, []core.NoteID{1, 3, 2}, ids(es), "field values sort as text")

	es = entries()
	require.NoError(t, hint.Sort(es, hint.SortContent, ""))
	assert.Equal(t, []core.NoteID{2, 1, 3}, ids(es))

	es = entries()
	es[0].SortInfo = "x"
	require.NoError(t, hint.Sort(es, hint.SortAuto, ""))
	assert.Equal(t, []core.NoteID{2, 1, 3}, ids(es), "falls back to content")

	err := hint.Sort(es, hint.SortNumeric, "")
	assert.True(t, errors.Is(err, hint.ErrSortKey), "got %v", err)
	assert.Error(t, hint.Sort(es, "bogus", ""))
}

func TestRomanic(t *testing.T) {
	assert.Equal(t, "hund le chien", hint.RomanicKey("der Hund | le chien", "german"))
	assert.Equal(t, "H", hint.RomanicInitial("der Hund", "german"))
	assert.Equal(t, "d", hint.RomanicInitial("der", "german"), "only stop words keeps the text")
	assert.Equal(t, "d", hint.RomanicInitial("der Hund", "klingon"))
}

func TestLines(t *testing.T) {
	entries := []hint.Entry{
		{Note: core.Note{ID: 1}, Content: "1994 Forrest Gump"},
		{Note: core.Note{ID: 2}, Content: "1997 Titanic"},
		{Note: core.Note{ID: 3}, Content: "2001 A Beautiful Mind"},
	}
	lines, pos := hint.Lines(entries, true)
	assert.Equal(t, []string{"1994 Forrest Gump", "1997 Titanic", "", "2001 A Beautiful Mind"}, lines)
	assert.Equal(t, 3, pos[3])

	lines, pos = hint.Lines(entries, false)
	assert.Len(t, lines, 3)
	assert.Equal(t, 2, pos[3])
}

func TestGroupQuery(t *testing.T) {
	assert.Equal(t, `"Group:re:(^|, )3(, |$)"`, hint.GroupQuery("Group", ", ", 3))
	assert.Equal(t, `"Group:re:(^|\|)3(\||$)"`, hint.GroupQuery("Group", "|", 3))
	assert.Equal(t, `"Group:re:^3$"`, hint.GroupQuery("Group", "", 3))
}

func TestDecadeQueries(t *testing.T) {
	qs := hint.DecadeQueries("Year", []string{"19", "20"})
	require.Len(t, qs, 20)
	assert.Equal(t, `"Year:190*"`, qs[0])
	assert.Equal(t, `"Year:209*"`, qs[19])
}

func TestRunGroups(t *testing.T) {
	c, _ := movies(t)
	g := hint.NewGenerator(core.NewService(c, nil), prompt.AutoYes{})

	var reported []hint.Result
	g.Report = func(r hint.Result) { reported = append(reported, r) }

	results, err := g.RunGroups(context.Background(), movieOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, reported, 2)
	assert.Equal(t, 1, results[0].Group)
	assert.Equal(t, []string{"1994 Forrest Gump", "1997 Titanic", "", "2001 A Beautiful Mind"}, results[0].Lines)
	assert.True(t, results[0].Saved)

	assert.Equal(t, "F<br>1997 Titanic<br><br>2001 A Beautiful Mind", extra(t, c, 1))
	assert.Equal(t, "1994 Forrest Gump<br>T<br><br>2001 A Beautiful Mind", extra(t, c, 2))
	assert.Equal(t,
		"1994 Forrest Gump<br>1997 Titanic<br><br>A<br><br>A<br>2003 The Return of the King",
		extra(t, c, 3), "the second group is appended")
	assert.Equal(t, "2001 A Beautiful Mind<br>T", extra(t, c, 4))

	// Running again rewrites the hints instead of stacking them.
	_, err = g.RunGroups(context.Background(), movieOptions())
	require.NoError(t, err)
	assert.Equal(t,
		"1994 Forrest Gump<br>1997 Titanic<br><br>A<br><br>A<br>2003 The Return of the King",
		extra(t, c, 3))
}

func TestRun_DefaultMask(t *testing.T) {
	c, _ := movies(t)
	opts := movieOptions()
	opts.MaskField = ""
	opts.GroupField = ""
	opts.BreakLines = false

	g := hint.NewGenerator(core.NewService(c, nil), prompt.AutoYes{})
	_, err := g.Run(context.Background(), opts, `"Year:199*"`, 0)
	require.NoError(t, err)
	assert.Equal(t, "?<br>1997 Titanic", extra(t, c, 1))

	opts.Replace = false
	_, err = g.Run(context.Background(), opts, `"Year:199*"`, 0)
	require.NoError(t, err)
	assert.Equal(t, "?<br>1997 Titanic<br><br>?<br>1997 Titanic", extra(t, c, 1))
}

func TestRun_Errors(t *testing.T) {
	c, _ := movies(t)
	ctx := context.Background()
	svc := core.NewService(c, nil)

	_, err := hint.NewGenerator(svc, prompt.AutoYes{}).Run(ctx, movieOptions(), `"Year:1994"`, 0)
	assert.True(t, errors.Is(err, hint.ErrTooFewNotes), "got %v", err)

	_, err = hint.NewGenerator(svc, prompt.AutoYes{}).Run(ctx, movieOptions(), `"Year:1800"`, 0)
	assert.True(t, errors.Is(err, core.ErrNoNotesFound), "got %v", err)

	opts := movieOptions()
	opts.HintField = "Nope"
	_, err = hint.NewGenerator(svc, prompt.AutoYes{}).Run(ctx, opts, `"Year:199*"`, 0)
	assert.True(t, errors.Is(err, core.ErrFieldNotFound), "got %v", err)

	_, err = hint.NewGenerator(svc, prompt.AutoNo{}).Run(ctx, movieOptions(), `"Year:199*"`, 1)
	assert.True(t, errors.Is(err, prompt.ErrAborted), "got %v", err)
	assert.Equal(t, "", extra(t, c, 1), "nothing saved when declined")
}

func TestRun_ReadOnly(t *testing.T) {
	c, _ := movies(t)
	ro := readonly.Wrap(c, nil)
	g := hint.NewGenerator(core.NewService(ro, nil), prompt.AutoYes{})

	res, err := g.Run(context.Background(), movieOptions(), `"Year:199*"`, 1)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	require.Len(t, res.Notes, 2)
	assert.Equal(t, "F<br>1997 Titanic", res.Notes[0].Hint)
	assert.Equal(t, "", extra(t, c, 1))
}

func TestRunQueries(t *testing.T) {
	c, _ := movies(t)
	opts := movieOptions()
	opts.GroupField = ""
	g := hint.NewGenerator(core.NewService(c, nil), prompt.AutoYes{})

	results, err := g.RunQueries(context.Background(), opts, hint.DecadeQueries("Year", []string{"19", "20"}))
	require.NoError(t, err)
	require.Len(t, results, 2, "only the 1990s and the 2000s have notes")
	assert.Equal(t, "F<br>1997 Titanic", extra(t, c, 1))
	assert.Equal(t, "2001 A Beautiful Mind<br>T", extra(t, c, 4))
}

func TestRun_Cloze(t *testing.T) {
	c := memory.NewCollection(memory.Config{})
	nt := core.NoteType{Name: "Cloze", Kind: core.KindCloze}
	nt.AddField("Text")
	nt.AddField("Extra")
	nt = c.AddNoteType(nt)
	c.AddNote(core.Note{ID: 1, TypeID: nt.ID, Fields: []string{"{{c1::die Katze}} = {{c2::le chat}}", ""}})
	c.AddNote(core.Note{ID: 2, TypeID: nt.ID, Fields: []string{"{{c1::der Hund}} = {{c2::le chien}}", ""}})

	opts := hint.Options{
		TypeName:  "Cloze",
		Fields:    []string{"c1", "c2"},
		Separator: " | ",
		HintField: "Extra",
		SortKey:   hint.SortRomanic,
		MaskField: "c1",
		MaskFunc:  "romanic",
		Language:  "german",
		Replace:   true,
	}
	g := hint.NewGenerator(core.NewService(c, nil), prompt.AutoYes{})
	res, err := g.Run(context.Background(), opts, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"der Hund | le chien", "die Katze | le chat"}, res.Lines)
	assert.Equal(t, "H<br>die Katze | le chat", extra(t, c, 2))
	assert.Equal(t, "der Hund | le chien<br>K", extra(t, c, 1))

	c.AddNote(core.Note{ID: 3, TypeID: nt.ID, Fields: []string{"{{c1::das Haus}}", ""}})
	_, err = hint.NewGenerator(core.NewService(c, nil), prompt.AutoNo{}).Run(context.Background(), opts, "", 0)
	assert.True(t, errors.Is(err, prompt.ErrAborted), "a missing deletion asks for confirmation")
}
