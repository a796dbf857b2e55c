package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/internal/jobs"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/hint"
	"github.com/aretw0/clozekit/pkg/prompt"
)

var (
	hintQuery   string
	hintReplace bool
)

var hintCmd = &cobra.Command{
	Use:   "hint <preset>",
	Short: "Write a global hint listing the notes of each group into every note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		job, err := loadJobs().HintPreset(args[0])
		if err != nil {
			fatal("Error reading preset", err)
		}
		if hintQuery != "" {
			job.Query = hintQuery
		}
		if cmd.Flags().Changed("replace") {
			job.Replace = hintReplace
		}

		svc := openService(ctx, false)
		defer closeService(svc)

		results, err := runHint(ctx, svc, confirmer(), job)
		if err != nil {
			fatal("Error generating hints", err)
		}
		saved := 0
		for _, r := range results {
			if r.Saved {
				saved += len(r.Notes)
			}
		}
		slog.Info("hint generation done", "hints", len(results), "notes_saved", saved)
	},
}

// runHint runs a hint preset and prints every hint before its save is
// confirmed.
func runHint(ctx context.Context, svc *core.Service, confirm prompt.Confirmer, job jobs.HintJob) ([]hint.Result, error) {
	g := hint.NewGenerator(svc, confirm)
	g.Report = printHint
	if job.Run == jobs.RunGroups {
		return g.RunGroups(ctx, job.Options)
	}
	queries := job.RunQueries()
	if job.Run != jobs.RunQuery && job.Query != "" {
		for i, q := range queries {
			queries[i] = job.Query + " " + q
		}
	}
	return g.RunQueries(ctx, job.Options, queries)
}

func init() {
	rootCmd.AddCommand(hintCmd)
	hintCmd.Flags().StringVarP(&hintQuery, "query", "q", "", "Restrict the preset to notes matching this query")
	hintCmd.Flags().BoolVar(&hintReplace, "replace", false, "Replace the hint field instead of appending to it")
}
