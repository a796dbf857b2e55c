package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/embed"
	"github.com/aretw0/clozekit/pkg/group"
)

var (
	groupOut     string
	groupApply   bool
	groupVectors string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Find, number and save groups of related notes",
}

var groupLastCmd = &cobra.Command{
	Use:   "last <preset>",
	Short: "Print the highest group ID in use",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		opts := groupPreset(args[0])

		svc := openService(ctx, true)
		defer closeService(svc)

		last, err := group.NewGrouper(svc, confirmer()).LastID(ctx, opts)
		if err != nil {
			fatal("Error reading groups", err)
		}
		fmt.Println(last)
	},
}

var groupManualCmd = &cobra.Command{
	Use:   "manual <preset>",
	Short: "Turn hand-written hints into groups",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		opts := groupPreset(args[0])

		svc := openService(ctx, groupOut != "" && !groupApply)
		defer closeService(svc)

		g := group.NewGrouper(svc, confirmer())
		sets, err := g.Manual(ctx, opts)
		if err != nil {
			fatal("Error discovering groups", err)
		}
		finishGroups(ctx, g, opts, "manual", sets, groupOut == "" || groupApply)
	},
}

var groupDiscoverCmd = &cobra.Command{
	Use:   "discover <preset>",
	Short: "Propose groups of notes whose keys are close in embedding space",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		opts := groupPreset(args[0])
		if groupVectors != "" {
			opts.Vectors = groupVectors
		}
		if opts.Vectors == "" {
			fatal("Error loading vectors", fmt.Errorf("preset %q has no vectors file", args[0]))
		}

		start := time.Now()
		model, err := embed.LoadFile(opts.Vectors)
		if err != nil {
			fatal("Error loading vectors", err)
		}
		slog.Info("vectors loaded", "words", model.Len(), "dim", model.Dim(), "took", time.Since(start))

		svc := openService(ctx, !groupApply)
		defer closeService(svc)

		g := group.NewGrouper(svc, confirmer())
		sets, err := g.Discover(ctx, opts, model)
		if err != nil {
			fatal("Error discovering groups", err)
		}
		finishGroups(ctx, g, opts, "embedding", sets, groupApply)
	},
}

var groupApplyCmd = &cobra.Command{
	Use:   "apply <preset> <dump>",
	Short: "Save the groups of a reviewed dump into their notes",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		opts := groupPreset(args[0])
		dump, err := group.LoadDump(args[1])
		if err != nil {
			fatal("Error reading dump", err)
		}
		if dump.Field != "" && dump.Field != opts.GroupField {
			fatal("Error reading dump", fmt.Errorf("dump is for field %q, preset uses %q", dump.Field, opts.GroupField))
		}
		slog.Info("dump loaded", "run", dump.RunID, "method", dump.Method, "groups", len(dump.Groups))

		svc := openService(ctx, false)
		defer closeService(svc)

		g := group.NewGrouper(svc, confirmer())
		printSets(dump.Groups)
		if _, err := g.Apply(ctx, opts, dump.Groups); err != nil {
			fatal("Error saving groups", err)
		}
	},
}

func groupPreset(name string) group.Options {
	opts, err := loadJobs().GroupPreset(name)
	if err != nil {
		fatal("Error reading preset", err)
	}
	return opts
}

// finishGroups prints the sets, then saves them or writes them to the dump
// given by --out.
func finishGroups(ctx context.Context, g *group.Grouper, opts group.Options, method string, sets []group.Set, save bool) {
	if len(sets) == 0 {
		slog.Info("no new group found")
		return
	}
	if err := g.Number(ctx, opts, sets); err != nil {
		fatal("Error numbering groups", err)
	}
	printSets(sets)
	slog.Info("groups found", "method", method, "groups", len(sets), "notes", groupNotes(sets))

	if groupOut != "" {
		dump := group.NewDump(opts, method, sets, time.Now())
		if groupOut == "-" {
			if err := group.WriteDump(os.Stdout, dump); err != nil {
				fatal("Error writing dump", err)
			}
		} else if err := group.SaveDump(groupOut, dump); err != nil {
			fatal("Error writing dump", err)
		}
		slog.Info("dump written", "run", dump.RunID, "groups", len(sets), "path", groupOut)
	}
	if !save {
		return
	}
	saved, err := g.Apply(ctx, opts, sets)
	if err != nil {
		fatal("Error saving groups", err)
	}
	slog.Info("groups done", "groups", len(sets), "notes_saved", saved)
}

// groupNotes counts the notes of sets.
func groupNotes(sets []group.Set) int {
	seen := make(map[core.NoteID]bool)
	for _, s := range sets {
		for _, id := range s.Notes {
			seen[id] = true
		}
	}
	return len(seen)
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupLastCmd, groupManualCmd, groupDiscoverCmd, groupApplyCmd)

	for _, c := range []*cobra.Command{groupManualCmd, groupDiscoverCmd} {
		c.Flags().StringVarP(&groupOut, "out", "o", "", "Write the groups to a JSON dump (- for stdout)")
		c.Flags().BoolVar(&groupApply, "apply", false, "Save the groups even when writing a dump")
	}
	groupDiscoverCmd.Flags().StringVar(&groupVectors, "vectors", "", "Word-vector file (overrides the preset)")
}
