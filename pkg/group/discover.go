package group

import (
	"context"
	"strings"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/embed"
)

// Discovery defaults.
const (
	DefaultNeighbors = 5
	DefaultThreshold = 0.3
)

// Embedder turns a key into a vector.
type Embedder interface {
	Embed(text string) ([]float32, bool)
}

// Discover proposes groups of notes whose keys are close in embedding
// space. Each note without a group is joined with its nearest neighbours
// within the distance threshold; overlapping sets are merged.
func (g *Grouper) Discover(ctx context.Context, opts Options, model Embedder) ([]Set, error) {
	if opts.GroupField == "" {
		return nil, ErrNoGroupField
	}
	k := opts.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	keys, err := g.svc.FieldValues(ctx, "", opts.TypeName, opts.KeyField)
	if err != nil {
		return nil, err
	}
	groups, err := g.svc.FieldValues(ctx, "", opts.TypeName, opts.GroupField)
	if err != nil {
		return nil, err
	}

	ix := embed.NewIndex()
	vectors := make(map[core.NoteID][]float32, len(keys))
	ids := make([]core.NoteID, 0, len(keys))
	for id := range keys {
		ids = append(ids, id)
	}
	core.SortIDs(ids)
	unknown := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, ok := model.Embed(keyText(keys[id]))
		if !ok {
			unknown++
			continue
		}
		vectors[id] = vec
		ix.Add(id, vec)
	}
	if unknown > 0 {
		g.logger.Warn("notes without a vector are ignored", "notes", unknown)
	}

	uf := newUnionFind()
	for _, id := range ids {
		vec, ok := vectors[id]
		if !ok || strings.TrimSpace(groups[id]) != "" {
			continue
		}
		for _, hit := range ix.Neighbors(vec, k+1) {
			if hit.Key == id || hit.Distance > threshold {
				continue
			}
			g.logger.Debug("neighbour", "note", id, "neighbour", hit.Key, "distance", hit.Distance)
			uf.union(id, hit.Key)
		}
	}

	var sets []Set
	for _, members := range uf.sets() {
		if len(members) < 2 {
			continue
		}
		sets = append(sets, Set{Notes: members})
	}
	if len(sets) > 0 {
		sortSets(sets)
	}
	for i := range sets {
		for _, id := range sets[i].Notes {
			sets[i].Keys = append(sets[i].Keys, keyText(keys[id]))
		}
	}
	g.logger.Info("embedding groups found", "groups", len(sets), "k", k, "threshold", threshold)
	return sets, nil
}

type unionFind struct {
	parent map[core.NoteID]core.NoteID
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[core.NoteID]core.NoteID)}
}

func (u *unionFind) find(id core.NoteID) core.NoteID {
	p, ok := u.parent[id]
	if !ok {
		u.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := u.find(p)
	u.parent[id] = root
	return root
}

func (u *unionFind) union(a, b core.NoteID) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

func (u *unionFind) sets() [][]core.NoteID {
	byRoot := make(map[core.NoteID][]core.NoteID)
	ids := make([]core.NoteID, 0, len(u.parent))
	for id := range u.parent {
		ids = append(ids, id)
	}
	core.SortIDs(ids)
	var roots []core.NoteID
	for _, id := range ids {
		r := u.find(id)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], id)
	}
	out := make([][]core.NoteID, 0, len(roots))
	for _, r := range roots {
		out = append(out, byRoot[r])
	}
	return out
}
