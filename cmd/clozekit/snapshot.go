package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/internal/platform"
)

var (
	snapshotQuery string
	snapshotOut   string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export notes and note types to a YAML snapshot",
	Long: `Export the notes matching --query, with their note types, to a YAML file.
A snapshot can be used as a collection (--collection file.yaml) to try jobs safely.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := openService(ctx, true)
		defer closeService(svc)

		snap, err := platform.Export(ctx, svc.Collection(), snapshotQuery, snapshotOut)
		if err != nil {
			fatal("Error writing snapshot", err)
		}
		slog.Info("snapshot written", "notes", len(snap.Notes), "note_types", len(snap.NoteTypes), "path", snapshotOut)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotQuery, "query", "q", "", "Search query of the exported notes (default: all)")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "-", "Output file (- for stdout)")
}
