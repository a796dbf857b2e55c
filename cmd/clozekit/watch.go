package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/internal/watch"
	"github.com/aretw0/clozekit/pkg/prompt"
)

var watchCmd = &cobra.Command{
	Use:   "watch <hint preset>",
	Short: "Preview a hint preset again every time the job file changes",
	Long: `Open the collection read-only and print the hints of a preset.
Each save of the job file reloads it and prints the hints again. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := jobFile()
		if _, err := os.Stat(path); err != nil {
			fatal("Error watching jobs", err)
		}

		svc := openService(ctx, true)
		defer closeService(svc)

		preview := func(ctx context.Context) error {
			f, err := readJobs()
			if err != nil {
				return err
			}
			job, err := f.HintPreset(args[0])
			if err != nil {
				return err
			}
			fmt.Print("\033[H\033[2J")
			_, err = runHint(ctx, svc, prompt.AutoYes{}, job)
			return err
		}
		if err := preview(ctx); err != nil {
			slog.Error("preview failed", "error", err)
		}

		w, err := watch.New(path, 0, slog.Default())
		if err != nil {
			fatal("Error watching jobs", err)
		}
		slog.Info("watching job file, press Ctrl+C to stop", "path", path)
		if err := <-w.Start(ctx, preview); err != nil && !errors.Is(err, context.Canceled) {
			fatal("Error watching jobs", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
