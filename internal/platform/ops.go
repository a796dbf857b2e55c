package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/clozekit/pkg/adapters/anki"
	"github.com/aretw0/clozekit/pkg/adapters/memory"
	"github.com/aretw0/clozekit/pkg/adapters/readonly"
	"github.com/aretw0/clozekit/pkg/core"
)

// Open opens the collection at uri. The URI is a collection file, a
// profile directory or a glob; a .yaml/.yml file is a memory snapshot.
func Open(ctx context.Context, uri string, opts ...Option) (core.Collection, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	coll := o.collection
	if coll == nil {
		path, err := ResolveCollectionPath(uri)
		if err != nil {
			return nil, err
		}
		adapter := o.adapter
		if adapter == "" {
			adapter = AdapterAnki
			if isSnapshot(path) {
				adapter = AdapterMemory
			}
		}

		if err := prepare(ctx, path, adapter, o, logger); err != nil {
			return nil, err
		}

		switch adapter {
		case AdapterAnki:
			coll, err = anki.Open(ctx, anki.Config{Path: path, Logger: logger, Clock: o.clock})
		case AdapterMemory:
			coll, err = memory.Open(memory.Config{Path: path, MustExist: !o.create, Logger: logger})
		default:
			return nil, fmt.Errorf("unknown adapter: %s", adapter)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("collection opened", "adapter", adapter, "path", path)
	}

	if o.dryRun {
		mem, err := copyToMemory(ctx, coll, logger)
		if cerr := coll.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		logger.Info("dry run: changes stay in memory")
		coll = mem
	}
	if o.readOnly {
		coll = readonly.Wrap(coll, logger)
	}
	return coll, nil
}

// prepare creates a missing collection on request and backs up the file
// before a writable open.
func prepare(ctx context.Context, path, adapter string, o *options, logger *slog.Logger) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !o.create {
			return fmt.Errorf("collection not found: %s", path)
		}
		if adapter == AdapterAnki {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			if err := anki.Create(ctx, path); err != nil {
				return err
			}
			logger.Info("collection created", "path", path)
		}
		return nil
	case err != nil:
		return err
	}

	if o.writes() && o.backup {
		target, err := Backup(path, o.backupDir, o.clock())
		if err != nil {
			return err
		}
		logger.Info("collection backed up", "backup", target)
	}
	return nil
}

// copyToMemory captures every note and note type of coll.
func copyToMemory(ctx context.Context, coll core.Collection, logger *slog.Logger) (*memory.Collection, error) {
	snap, err := memory.Capture(ctx, coll, "")
	if err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	mem := memory.NewCollection(memory.Config{Logger: logger})
	if err := mem.Restore(snap); err != nil {
		return nil, fmt.Errorf("dry run: %w", err)
	}
	return mem, nil
}

// Export writes the notes of coll matching search, with their note types,
// to a YAML snapshot at path.
func Export(ctx context.Context, coll core.Collection, search, path string) (memory.Snapshot, error) {
	snap, err := memory.Capture(ctx, coll, search)
	if err != nil {
		return memory.Snapshot{}, err
	}
	data, err := memory.EncodeSnapshot(snap)
	if err != nil {
		return memory.Snapshot{}, err
	}
	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return snap, err
	}
	return snap, os.WriteFile(path, data, 0644)
}
