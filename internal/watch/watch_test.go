package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	n atomic.Int32
}

func (c *countingReloader) Reload() error {
	c.n.Add(1)
	return nil
}

func TestWatcher_DebouncedReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.yaml")
	require.NoError(t, os.WriteFile(index, []byte("groups: []\n"), 0o644))
	other := filepath.Join(dir, "notes.md")

	rel := &countingReloader{}
	w, err := New([]Target{{Name: "docs", IndexPath: index, Set: rel}}, 50*time.Millisecond, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(index, []byte("groups: []\n"), 0o644))
	}

	assert.Eventually(t, func() bool { return rel.n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), rel.n.Load(), "rapid writes collapse into one reload")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New([]Target{{Name: "x", IndexPath: filepath.Join(t.TempDir(), "missing", "index.yaml"), Set: &countingReloader{}}},
		time.Millisecond, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}
