// Package clozekit is the Composition Root of the clozekit toolkit.
//
// clozekit edits notes of an Anki collection in batches: it converts cloze
// notes into basic notes built from their cloze deletions, writes global
// hints listing every note of a group, discovers groups of related notes
// and fills pinyin fields.
//
// The workflows live in pkg/convert, pkg/hint, pkg/group and pkg/pinyin and
// only talk to core.Collection. This package wires them to a storage
// adapter:
//
//   - collection.anki2 files (SQLite, schema 11) through pkg/adapters/anki.
//   - YAML snapshots through pkg/adapters/memory, handy to try a job.
//
// Usage:
//
//	// Open a profile with a backup and logging
//	svc, err := clozekit.New(ctx, "~/.local/share/Anki2/User 1",
//		clozekit.WithBackup(true),
//		clozekit.WithLogger(logger),
//	)
//	defer svc.Close()
//
//	// Write the hints of every group
//	gen := hint.NewGenerator(svc, prompt.NewConsole(os.Stdin, os.Stderr))
//	results, err := gen.RunGroups(ctx, opts)
package clozekit
