package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpl-au/vela/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n atomic.Int32 }

func (c *counter) Reload(context.Context) error {
	c.n.Add(1)
	return nil
}

func TestRun_DebouncesReloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extensions")
	c := &counter{}
	w := watch.New(dir, 50*time.Millisecond, c, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(dir)
		return err == nil
	}, time.Second, 5*time.Millisecond, "Run creates the directory")
	time.Sleep(50 * time.Millisecond)

	pdir := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(pdir, 0755))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte{byte(i)}, 0644))
	}

	require.Eventually(t, func() bool { return c.n.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), c.n.Load(), "a burst of changes reloads once")
}

func TestRun_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	pdir := filepath.Join(dir, "notes")
	require.NoError(t, os.MkdirAll(pdir, 0755))

	c := &counter{}
	w := watch.New(dir, 20*time.Millisecond, c, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(pdir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), c.n.Load())

	require.NoError(t, os.WriteFile(filepath.Join(pdir, "index.js"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return c.n.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
