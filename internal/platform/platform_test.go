package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/clozekit/internal/platform"
	"github.com/aretw0/clozekit/pkg/adapters/anki"
	"github.com/aretw0/clozekit/pkg/adapters/memory"
	"github.com/aretw0/clozekit/pkg/adapters/readonly"
	"github.com/aretw0/clozekit/pkg/core"
)

const snapshot = `note_types:
  - id: 1
    name: Basic
    kind: standard
    fields: [Front, Back]
notes:
  - id: 10
    type: Basic
    fields:
      Front: hello
      Back: world
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.yaml")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveCollectionPath(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "User 1")
	if err := os.MkdirAll(profile, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(profile, platform.DefaultFileName), nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Collection File", filepath.Join(profile, "collection.anki2"), filepath.Join(profile, "collection.anki2")},
		{"Profile Directory", profile, filepath.Join(profile, platform.DefaultFileName)},
		{"Snapshot", filepath.Join(dir, "notes.yaml"), filepath.Join(dir, "notes.yaml")},
		{"Glob", filepath.Join(dir, "User*"), filepath.Join(profile, platform.DefaultFileName)},
		{"Recursive Glob", filepath.Join(dir, "**", "*.anki2"), filepath.Join(profile, platform.DefaultFileName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := platform.ResolveCollectionPath(tt.in)
			if err != nil {
				t.Fatalf("ResolveCollectionPath(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveCollectionPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("No Match", func(t *testing.T) {
		_, err := platform.ResolveCollectionPath(filepath.Join(dir, "Nobody*"))
		if !errors.Is(err, platform.ErrNoMatch) {
			t.Errorf("expected ErrNoMatch, got %v", err)
		}
	})

	t.Run("Home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		got, err := platform.ResolveCollectionPath("~/Anki2/User 1")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(home, "Anki2", "User 1", platform.DefaultFileName)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestFindRoot(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "decks", "chinese")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, platform.ConfigFileName), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := platform.FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	want, _ := filepath.Abs(base)
	if got != want {
		t.Errorf("FindRoot = %q, want %q", got, want)
	}

	if _, err := platform.FindRoot(t.TempDir()); err == nil {
		t.Error("expected an error without a config file")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Snapshot Uses Memory Adapter", func(t *testing.T) {
		coll, err := platform.Open(ctx, writeSnapshot(t))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer coll.Close()
		if _, ok := coll.(*memory.Collection); !ok {
			t.Errorf("expected *memory.Collection, got %T", coll)
		}
	})

	t.Run("Missing Collection", func(t *testing.T) {
		_, err := platform.Open(ctx, filepath.Join(t.TempDir(), "missing.anki2"))
		if err == nil {
			t.Error("expected an error for a missing collection")
		}
	})

	t.Run("Create Anki Collection", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile", "collection.anki2")
		coll, err := platform.Open(ctx, path, platform.WithCreate(true))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer coll.Close()
		if _, ok := coll.(*anki.Collection); !ok {
			t.Errorf("expected *anki.Collection, got %T", coll)
		}
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Open(ctx, writeSnapshot(t), platform.WithAdapter("postgres"))
		if err == nil || !strings.Contains(err.Error(), "unknown adapter") {
			t.Errorf("expected unknown adapter error, got %v", err)
		}
	})

	t.Run("Injected Collection", func(t *testing.T) {
		mem := memory.NewCollection(memory.Config{})
		coll, err := platform.Open(ctx, "ignored", platform.WithCollection(mem))
		if err != nil {
			t.Fatal(err)
		}
		if coll != core.Collection(mem) {
			t.Error("expected the injected collection")
		}
	})

	t.Run("Read Only", func(t *testing.T) {
		coll, err := platform.Open(ctx, writeSnapshot(t), platform.WithReadOnly(true))
		if err != nil {
			t.Fatal(err)
		}
		defer coll.Close()
		if _, ok := coll.(*readonly.Collection); !ok {
			t.Fatalf("expected *readonly.Collection, got %T", coll)
		}
		err = coll.UpdateNotes(ctx, []core.Note{{ID: 10}})
		if !errors.Is(err, core.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
	})
}

func TestOpen_DryRun(t *testing.T) {
	ctx := context.Background()
	path := writeSnapshot(t)

	coll, err := platform.Open(ctx, path, platform.WithDryRun(true))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	n, err := coll.GetNote(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	n.Fields[1] = "changed"
	if err := coll.UpdateNotes(ctx, []core.Note{n}); err != nil {
		t.Fatalf("dry run writes must succeed: %v", err)
	}
	if err := coll.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != snapshot {
		t.Errorf("dry run modified the file:\n%s", data)
	}
}

func TestOpen_Backup(t *testing.T) {
	ctx := context.Background()
	path := writeSnapshot(t)
	backups := filepath.Join(t.TempDir(), "backups")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	coll, err := platform.Open(ctx, path,
		platform.WithBackup(true),
		platform.WithBackupDir(backups),
		platform.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	coll.Close()

	backup := filepath.Join(backups, "collection.yaml.20240301T120000Z.bak")
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(data) != snapshot {
		t.Error("backup differs from the collection")
	}

	t.Run("Not For Read Only", func(t *testing.T) {
		dir := t.TempDir()
		coll, err := platform.Open(ctx, path, platform.WithBackup(true), platform.WithBackupDir(dir), platform.WithReadOnly(true))
		if err != nil {
			t.Fatal(err)
		}
		coll.Close()
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected no backup, found %d files", len(entries))
		}
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	coll, err := platform.Open(ctx, writeSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer coll.Close()

	out := filepath.Join(t.TempDir(), "export.yaml")
	snap, err := platform.Export(ctx, coll, "hello", out)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(snap.Notes) != 1 {
		t.Errorf("expected 1 note, got %d", len(snap.Notes))
	}

	reopened, err := platform.Open(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, err := reopened.GetNote(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if n.Fields[1] != "world" {
		t.Errorf("unexpected fields %v", n.Fields)
	}
}

func TestNew(t *testing.T) {
	svc, err := platform.New(context.Background(), writeSnapshot(t))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Close()

	ids, nt, err := svc.FindNotes(context.Background(), "", "Basic")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || nt.Name != "Basic" {
		t.Errorf("unexpected result %v %q", ids, nt.Name)
	}
}
