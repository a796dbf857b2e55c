package convert

import (
	"context"
	"errors"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/schema"
)

// Variants expands opts into one job per assignment of distinct markers to
// the permuted targets. Without Permute it returns opts alone.
func Variants(opts Options) []Options {
	if len(opts.Permute) == 0 || len(opts.Markers) < len(opts.Permute) {
		return []Options{opts}
	}
	var out []Options
	used := make(map[string]bool)
	chosen := make(map[string]string)
	var walk func(i int)
	walk = func(i int) {
		if i == len(opts.Permute) {
			v := opts
			v.Mappings = make([]schema.Mapping, len(opts.Mappings))
			for j, m := range opts.Mappings {
				if marker, ok := chosen[m.Target]; ok {
					m.Source = marker
				}
				v.Mappings[j] = m
			}
			v.Permute = nil
			out = append(out, v)
			return
		}
		for _, marker := range opts.Markers {
			if used[marker] {
				continue
			}
			used[marker] = true
			chosen[opts.Permute[i]] = marker
			walk(i + 1)
			used[marker] = false
		}
		delete(chosen, opts.Permute[i])
	}
	walk(0)
	return out
}

// RunBatch runs every job and its variants in order. Jobs whose query
// finds no notes are skipped.
func (c *Converter) RunBatch(ctx context.Context, jobs []Options) ([]Result, error) {
	var results []Result
	for _, job := range jobs {
		for _, v := range Variants(job) {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			c.logger.Info("conversion", "query", v.Query, "original_type", v.originalType(), "mappings", v.Mappings)
			res, err := c.Run(ctx, v)
			if errors.Is(err, core.ErrNoNotesFound) {
				c.logger.Warn("conversion skipped", "error", err)
				continue
			}
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}
	return results, nil
}
