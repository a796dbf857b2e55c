package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/pkg/convert"
)

var convertQuery string

var convertCmd = &cobra.Command{
	Use:   "convert <preset>",
	Short: "Convert cloze notes to basic notes built from their cloze deletions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		preset, err := loadJobs().Conversion(args[0])
		if err != nil {
			fatal("Error reading preset", err)
		}
		if convertQuery != "" {
			for i := range preset {
				preset[i].Query = convertQuery
			}
		}

		svc := openService(ctx, false)
		defer closeService(svc)

		c := convert.NewConverter(svc, confirmer())
		c.Lines = console()
		c.Report = printNotes

		results, err := c.RunBatch(ctx, preset)
		if err != nil {
			fatal("Error converting notes", err)
		}
		for _, r := range results {
			slog.Info("conversion done",
				"type", r.NoteType,
				"notes", r.Notes,
				"converted", r.Converted,
				"failures", r.Failures,
				"saved", r.Saved)
		}
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertQuery, "query", "q", "", "Override the search query of every job in the preset")
}
