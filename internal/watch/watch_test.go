package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/clozekit/internal/watch"
)

func TestWatcher_Rerun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hint: {}\n"), 0644))

	w, err := watch.New(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := w.Start(ctx, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	// The watch is registered asynchronously; keep writing until it fires.
	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		require.NoError(t, os.WriteFile(path, []byte("hint: {}\n"), 0644))
		time.Sleep(100 * time.Millisecond)
	}
	assert.Positive(t, runs.Load())

	state, ok := w.State().(watch.State)
	require.True(t, ok)
	assert.True(t, state.Running)
	assert.Equal(t, "watcher", w.ComponentType())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.False(t, w.State().(watch.State).Running)
}

func TestWatcher_OtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	w, err := watch.New(path, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := w.Start(ctx, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644))
		time.Sleep(50 * time.Millisecond)
	}
	assert.Zero(t, runs.Load())

	cancel()
	<-done
}

func TestWatcher_PanicStops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	w, err := watch.New(path, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := w.Start(ctx, func(context.Context) error {
		panic("boom")
	})

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-done:
			require.Error(t, err)
			assert.Contains(t, err.Error(), "boom")
			assert.False(t, w.State().(watch.State).Running)
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("hint: {}\n"), 0644))
		case <-deadline:
			t.Fatal("a panicking rerun did not stop the watcher")
		}
	}
}

func TestWatcher_StartReportsRunError(t *testing.T) {
	w, err := watch.New(filepath.Join(t.TempDir(), "missing", "jobs.yaml"), 0, nil)
	require.NoError(t, err)

	select {
	case err := <-w.Start(context.Background(), func(context.Context) error { return nil }):
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("start did not report the run error")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	w, err := watch.New(filepath.Join(t.TempDir(), "missing", "jobs.yaml"), 0, nil)
	require.NoError(t, err)

	err = w.Run(context.Background(), func(context.Context) error { return nil })
	assert.Error(t, err)
}
