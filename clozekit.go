package clozekit

import (
	"context"
	"log/slog"

	"github.com/aretw0/clozekit/internal/platform"
	"github.com/aretw0/clozekit/pkg/core"
)

// --- Configuration ---

// Option defines a functional option for opening a collection.
type Option = platform.Option

// WithLogger sets the logger of the adapters and the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithCollection allows injecting a custom collection adapter.
func WithCollection(coll core.Collection) Option {
	return platform.WithCollection(coll)
}

// WithAdapter selects the adapter by name ("anki" or "memory") instead of
// by file extension.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithReadOnly rejects every write with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDryRun works on an in-memory copy; the collection file is never written.
func WithDryRun(enabled bool) Option {
	return platform.WithDryRun(enabled)
}

// WithBackup copies the collection file before a writable open.
func WithBackup(enabled bool) Option {
	return platform.WithBackup(enabled)
}

// WithBackupDir sets where backups go (default: next to the collection).
func WithBackupDir(dir string) Option {
	return platform.WithBackupDir(dir)
}

// WithCreate creates the collection when it does not exist.
func WithCreate(enabled bool) Option {
	return platform.WithCreate(enabled)
}

// --- Factory ---

// New opens the collection at uri and returns a service over it.
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	return platform.New(ctx, uri, opts...)
}

// Open opens the collection at uri.
func Open(ctx context.Context, uri string, opts ...Option) (core.Collection, error) {
	return platform.Open(ctx, uri, opts...)
}

// ResolveCollectionPath turns a profile directory, collection file or glob
// into the path of a collection file.
func ResolveCollectionPath(userPath string) (string, error) {
	return platform.ResolveCollectionPath(userPath)
}
