package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watch:
// - A matching file created in the directory triggers a debounced rerun
// - Non-matching files never trigger a rerun
// - Cancelling the context stops watching with a nil error
// - An invalid pattern is rejected before watching starts

func TestWatch_RerunsOnMatchingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	logger, _ := logtest.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, "*.dot", 50*time.Millisecond, logger, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.dot"), []byte("digraph {}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.dot"), []byte("digraph {}"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatch_IgnoresNonMatching(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	logger, _ := logtest.NewNullLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	}()

	err := Watch(ctx, dir, "*.dot", 50*time.Millisecond, logger, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatch_InvalidPattern(t *testing.T) {
	t.Parallel()

	err := Watch(context.Background(), t.TempDir(), "[", 0, nil, func(ctx context.Context) error { return nil })
	assert.ErrorContains(t, err, "invalid pattern")
}
