package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/pkg/pinyin"
)

var pinyinCmd = &cobra.Command{
	Use:   "pinyin <preset>",
	Short: "Fill a field with the tone-marked pinyin of another",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		opts, err := loadJobs().PinyinPreset(args[0])
		if err != nil {
			fatal("Error reading preset", err)
		}

		svc := openService(ctx, false)
		defer closeService(svc)

		saved, err := pinyin.NewFiller(svc, confirmer()).Run(ctx, opts)
		if err != nil {
			fatal("Error filling pinyin", err)
		}
		slog.Info("pinyin done", "notes_saved", saved)
	},
}

func init() {
	rootCmd.AddCommand(pinyinCmd)
}
