package hint

import (
	"context"
	"errors"

	"github.com/aretw0/clozekit/pkg/core"
)

// RunGroups writes the hints of groups 1, 2, ... of opts.GroupField until a
// group has no notes. Groups with a single note are skipped.
func (g *Generator) RunGroups(ctx context.Context, opts Options) ([]Result, error) {
	if opts.GroupField == "" {
		return nil, errors.New("hint: no group field")
	}
	var results []Result
	for group := 1; ; group++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		q := GroupQuery(opts.GroupField, opts.GroupSeparator, group)
		if opts.Query != "" {
			q = opts.Query + " " + q
		}
		res, err := g.Run(ctx, opts, q, group)
		switch {
		case errors.Is(err, core.ErrNoNotesFound):
			g.logger.Info("last group reached", "groups", group-1)
			return results, nil
		case errors.Is(err, ErrTooFewNotes):
			g.logger.Warn("group skipped", "group", group, "error", err)
			continue
		case err != nil:
			return results, err
		}
		results = append(results, res)
	}
}

// RunQueries writes one hint per query. Queries matching fewer than two
// notes are skipped.
func (g *Generator) RunQueries(ctx context.Context, opts Options, queries []string) ([]Result, error) {
	var results []Result
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := g.Run(ctx, opts, q, 0)
		if errors.Is(err, core.ErrNoNotesFound) || errors.Is(err, ErrTooFewNotes) {
			g.logger.Warn("query skipped", "query", q, "error", err)
			continue
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
