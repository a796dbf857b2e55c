package embed

import (
	"sort"

	"github.com/coder/hnsw"

	"github.com/aretw0/clozekit/pkg/core"
)

// Neighbor is a search hit.
type Neighbor struct {
	Key      core.NoteID
	Distance float32
}

// Index is an approximate nearest-neighbour index over note vectors using
// cosine distance.
type Index struct {
	graph *hnsw.Graph[core.NoteID]
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	g := hnsw.NewGraph[core.NoteID]()
	g.Distance = hnsw.CosineDistance
	return &Index{graph: g}
}

// Add indexes the vector of a note.
func (ix *Index) Add(key core.NoteID, vec []float32) {
	ix.graph.Add(hnsw.MakeNode(key, vec))
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	return ix.graph.Len()
}

// Neighbors returns up to k indexed notes closest to vec, nearest first.
func (ix *Index) Neighbors(vec []float32, k int) []Neighbor {
	if ix.graph.Len() == 0 || k <= 0 {
		return nil
	}
	nodes := ix.graph.Search(vec, k)
	out := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Neighbor{Key: n.Key, Distance: Distance(vec, n.Value)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

// Distance is the cosine distance between two vectors.
func Distance(a, b []float32) float32 {
	return hnsw.CosineDistance(a, b)
}
