package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/clozekit/pkg/core"
)

// Adapter names.
const (
	AdapterAnki   = "anki"
	AdapterMemory = "memory"
)

// options holds the configuration of a collection.
type options struct {
	collection core.Collection
	logger     *slog.Logger
	adapter    string
	readOnly   bool
	dryRun     bool
	backup     bool
	backupDir  string
	create     bool
	clock      func() time.Time
}

// Option configures how a collection is opened.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		clock: time.Now,
	}
}

// WithLogger sets the logger of the adapters and the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCollection injects a collection; the URI is then ignored.
func WithCollection(coll core.Collection) Option {
	return func(o *options) {
		o.collection = coll
	}
}

// WithAdapter selects the adapter by name ("anki" or "memory"). By default
// YAML files open with the memory adapter and anything else with anki.
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithReadOnly makes every write return core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithDryRun copies the collection into memory after opening it. Writes
// succeed but never reach the file.
func WithDryRun(enabled bool) Option {
	return func(o *options) {
		o.dryRun = enabled
	}
}

// WithBackup copies the collection file before it is opened for writing.
func WithBackup(enabled bool) Option {
	return func(o *options) {
		o.backup = enabled
	}
}

// WithBackupDir sets where backups are written. Defaults to the directory
// of the collection.
func WithBackupDir(dir string) Option {
	return func(o *options) {
		o.backupDir = dir
	}
}

// WithCreate creates an empty collection when the file does not exist.
func WithCreate(enabled bool) Option {
	return func(o *options) {
		o.create = enabled
	}
}

// WithClock overrides the time source used for backups and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// writes reports whether the opened file may be modified.
func (o *options) writes() bool {
	return !o.readOnly && !o.dryRun
}
