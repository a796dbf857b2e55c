package embed_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/embed"
)

const vectors = `5 3
高兴 1 0 0
快乐 0.9 0.1 0
高 1 1 0
兴 1 -1 0
悲伤 0 0 1
`

func TestLoadVectors(t *testing.T) {
	m, err := embed.LoadVectors(strings.NewReader(vectors))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Dim())
	assert.Equal(t, 5, m.Len())

	v, ok := m.Vector("快乐")
	require.True(t, ok)
	assert.InDelta(t, 0.9, v[0], 1e-6)
}

func TestLoadVectors_NoHeader(t *testing.T) {
	m, err := embed.LoadVectors(strings.NewReader("a 1 2\nb 3 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Dim())
	assert.Equal(t, 2, m.Len())
}

func TestLoadVectors_Errors(t *testing.T) {
	_, err := embed.LoadVectors(strings.NewReader("a 1 2\nb 3\n"))
	assert.True(t, errors.Is(err, embed.ErrDimension), "got %v", err)

	_, err = embed.LoadVectors(strings.NewReader("a 1 x\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.vec")
	require.NoError(t, os.WriteFile(path, []byte(vectors), 0644))

	m, err := embed.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Len())

	_, err = embed.LoadFile(filepath.Join(t.TempDir(), "missing.vec"))
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	m, err := embed.LoadVectors(strings.NewReader(vectors))
	require.NoError(t, err)

	t.Run("Whole Word", func(t *testing.T) {
		v, ok := m.Embed(" 高兴 ")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 0, 0}, v)
	})

	t.Run("Character Mean", func(t *testing.T) {
		v, ok := m.Embed("兴高")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 0, 0}, v)
	})

	t.Run("Partly Known", func(t *testing.T) {
		v, ok := m.Embed("高?")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 1, 0}, v)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok := m.Embed("狗")
		assert.False(t, ok)
		_, ok = m.Embed("")
		assert.False(t, ok)
	})
}

func TestIndex(t *testing.T) {
	m, err := embed.LoadVectors(strings.NewReader(vectors))
	require.NoError(t, err)

	ix := embed.NewIndex()
	words := map[core.NoteID]string{1: "高兴", 2: "快乐", 3: "悲伤"}
	for id := core.NoteID(1); id <= 3; id++ {
		v, ok := m.Embed(words[id])
		require.True(t, ok)
		ix.Add(id, v)
	}
	assert.Equal(t, 3, ix.Len())

	query, _ := m.Embed("高兴")
	hits := ix.Neighbors(query, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, core.NoteID(1), hits[0].Key)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
	assert.Equal(t, core.NoteID(2), hits[1].Key)
	assert.Less(t, hits[1].Distance, float32(0.01))

	assert.Empty(t, embed.NewIndex().Neighbors(query, 3))
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 1, embed.Distance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 0, embed.Distance([]float32{2, 0}, []float32{1, 0}), 1e-6)
}
