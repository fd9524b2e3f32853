package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string, onChange func(ctx context.Context, changed []string)) *Watcher {
	t.Helper()
	d, err := NewDiscovery(root, []string{"**.rs"}, []string{"vendor/**"})
	require.NoError(t, err)

	w, err := NewWatcher(root, d, 50*time.Millisecond, onChange)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherReportsChangedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	batches := make(chan []string, 1)
	w := newTestWatcher(t, root, func(_ context.Context, changed []string) {
		select {
		case batches <- changed:
		default:
		}
	})
	w.Start(context.Background())

	writeSource(t, root, "src/main.rs", "fn main() {}")

	select {
	case changed := <-batches:
		assert.Contains(t, changed, "src/main.rs")
	case <-time.After(5 * time.Second):
		t.Fatal("no change batch within timeout")
	}
}

func TestWatcherIgnoresUnmatchedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))

	batches := make(chan []string, 4)
	w := newTestWatcher(t, root, func(_ context.Context, changed []string) {
		batches <- changed
	})
	w.Start(context.Background())

	writeSource(t, root, "notes.md", "not code")
	writeSource(t, root, "vendor/dep.rs", "ignored tree")

	select {
	case changed := <-batches:
		t.Fatalf("unexpected batch: %v", changed)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	batches := make(chan []string, 4)
	w := newTestWatcher(t, root, func(_ context.Context, changed []string) {
		batches <- changed
	})
	w.Start(context.Background())

	// Create the directory first, then a file inside it once the watcher
	// has had a chance to register the new directory.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	time.Sleep(200 * time.Millisecond)
	writeSource(t, root, "src/late.rs", "fn late() {}")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-batches:
			for _, path := range changed {
				if path == "src/late.rs" {
					return
				}
			}
		case <-deadline:
			t.Fatal("file in new directory never reported")
		}
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	w := newTestWatcher(t, root, func(context.Context, []string) {})
	w.Start(context.Background())

	w.Stop()
	w.Stop()
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	w := newTestWatcher(t, root, func(context.Context, []string) {})
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not exit on cancel")
	}
}
