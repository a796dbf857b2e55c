package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aretw0/clozekit/internal/config"
	"github.com/aretw0/clozekit/internal/jobs"
	"github.com/aretw0/clozekit/internal/platform"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/prompt"
)

var (
	verbose    bool
	configPath string
	jobsPath   string
	collection string
	adapter    string
	assumeYes  bool
	dryRun     bool
	noBackup   bool

	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clozekit",
	Short: "Batch editing of Anki collections: cloze conversion, hints, groups and pinyin",
	Long: `clozekit edits notes of an Anki collection in batches.
Every step that writes to the collection is shown first and asks for confirmation.
Presets for the commands live in a YAML job file.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fatal("Error loading config", err)
		}
		if collection != "" {
			cfg.CollectionPath = collection
		}
		if adapter != "" {
			cfg.Adapter = adapter
		}

		level, _ := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		handler := log.NewWithOptions(os.Stderr, log.Options{
			Level:           log.Level(level),
			ReportTimestamp: verbose,
			Prefix:          "clozekit",
		})
		slog.SetDefault(slog.New(handler))
		if cfg.File != "" {
			slog.Debug("config loaded", "file", cfg.File)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: clozekit.yaml in . or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&jobsPath, "jobs", "", "Job file with the presets (default: jobs setting, then built-in presets)")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "Collection file, profile directory or snapshot (overrides config)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Force the adapter: anki or memory")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Run on an in-memory copy; nothing is written")
	rootCmd.PersistentFlags().BoolVar(&noBackup, "no-backup", false, "Skip the collection backup before writing")
}

// openService opens the configured collection. Read-only services reject
// every write.
func openService(ctx context.Context, readOnly bool) *core.Service {
	svc, err := platform.New(ctx, cfg.CollectionPath,
		platform.WithLogger(slog.Default()),
		platform.WithAdapter(cfg.Adapter),
		platform.WithReadOnly(readOnly),
		platform.WithDryRun(dryRun),
		platform.WithBackup(cfg.Backup && !noBackup),
		platform.WithBackupDir(cfg.BackupDir),
	)
	if err != nil {
		fatal("Error opening collection", err)
	}
	active = svc
	return svc
}

// active is the open service, closed by fatal before exiting so that
// adapters writing on close keep the changes already made.
var active *core.Service

func closeService(svc *core.Service) {
	if active == svc {
		active = nil
	}
	if err := svc.Close(); err != nil {
		fatal("Error closing collection", err)
	}
}

// console is shared so that every prompt reads from one buffered stdin.
var console = sync.OnceValue(func() *prompt.Console {
	return prompt.NewConsole(os.Stdin, os.Stderr)
})

func confirmer() prompt.Confirmer {
	if assumeYes {
		return prompt.AutoYes{}
	}
	return console()
}

// jobFile returns the path of the job file in use.
func jobFile() string {
	if jobsPath != "" {
		return jobsPath
	}
	if cfg.Jobs == "" || filepath.IsAbs(cfg.Jobs) {
		return cfg.Jobs
	}
	if cfg.File != "" {
		return filepath.Join(filepath.Dir(cfg.File), cfg.Jobs)
	}
	return cfg.Jobs
}

func loadJobs() jobs.File {
	f, err := readJobs()
	if err != nil {
		fatal("Error loading jobs", err)
	}
	return f
}

// readJobs reads the job file. Without --jobs a missing file falls back to
// the built-in presets.
func readJobs() (jobs.File, error) {
	path := jobFile()
	if jobsPath != "" {
		return jobs.Load(path)
	}
	f, builtin, err := jobs.LoadOrDefault(path)
	if builtin {
		slog.Debug("using built-in presets", "missing", path)
	}
	return f, err
}
