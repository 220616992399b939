package deploy

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_FiresOnceAfterBurst(t *testing.T) {
	source := filepath.Join(t.TempDir(), "rules")
	always := filepath.Join(source, string(CategoryAlways))
	require.NoError(t, os.MkdirAll(always, 0o755))

	w, err := NewWatcher(source, 150*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() error {
			calls.Add(1)
			fired <- struct{}{}
			return nil
		})
	}()

	for i := 0; i < 3; i++ {
		name := filepath.Join(always, "r"+string(rune('a'+i))+".mdc")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("onChange not called")
	}
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_PicksUpNewCategory(t *testing.T) {
	source := filepath.Join(t.TempDir(), "rules")
	require.NoError(t, os.MkdirAll(source, 0o755))

	w, err := NewWatcher(source, 30*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	go func() {
		_ = w.Run(ctx, func() error {
			fired <- struct{}{}
			return nil
		})
	}()

	manual := filepath.Join(source, string(CategoryManual))
	require.NoError(t, os.Mkdir(manual, 0o755))
	waitFired(t, fired)

	require.NoError(t, os.WriteFile(filepath.Join(manual, "m.mdc"), []byte("m"), 0o644))
	waitFired(t, fired)
}

func TestNewWatcher_MissingSource(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing"), 0, nil)
	assert.Error(t, err)
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("onChange not called")
	}
}
