package pinyin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/clozekit/pkg/adapters/memory"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/pinyin"
	"github.com/aretw0/clozekit/pkg/prompt"
)

func TestConvert(t *testing.T) {
	assert.Equal(t, "nǐ hǎo", pinyin.Convert("你好"))
	assert.Equal(t, "zhōng guó", pinyin.Convert("<b>中国</b>"))
	assert.Equal(t, "māo , gǒu", pinyin.Convert("猫, 狗"))
	assert.Equal(t, "", pinyin.Convert(""))
}

func setup(t *testing.T) (*memory.Collection, core.NoteType) {
	t.Helper()
	c := memory.NewCollection(memory.Config{})
	nt := core.NoteType{Name: "Chinois"}
	nt.AddField("Simplified")
	nt.AddField("Pinyin.1")
	nt = c.AddNoteType(nt)
	c.AddNote(core.Note{ID: 1, TypeID: nt.ID, Fields: []string{"猫", ""}})
	c.AddNote(core.Note{ID: 2, TypeID: nt.ID, Fields: []string{"狗", "gǒu"}})
	return c, nt
}

func TestFiller_Run(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	f := pinyin.NewFiller(core.NewService(c, nil), prompt.AutoYes{})

	n, err := f.Run(ctx, pinyin.Options{TypeName: "Chinois", Source: "Simplified", Target: "Pinyin.1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only notes with an empty target are filled")

	note, err := c.GetNote(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "māo", note.Fields[1])
}

func TestFiller_Declined(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	f := pinyin.NewFiller(core.NewService(c, nil), prompt.AutoNo{})

	_, err := f.Run(ctx, pinyin.Options{TypeName: "Chinois", Source: "Simplified", Target: "Pinyin.1"})
	assert.True(t, errors.Is(err, prompt.ErrAborted))

	note, _ := c.GetNote(ctx, 1)
	assert.Equal(t, "", note.Fields[1])
}

func TestFiller_MissingField(t *testing.T) {
	c, _ := setup(t)
	f := pinyin.NewFiller(core.NewService(c, nil), prompt.AutoYes{})

	_, err := f.Run(context.Background(), pinyin.Options{
		TypeName: "Chinois", Source: "Traditional", Target: "Pinyin.1",
	})
	assert.True(t, errors.Is(err, core.ErrFieldNotFound))
}
