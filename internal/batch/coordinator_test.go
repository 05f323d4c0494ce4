package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Coordinator:
// - Done stems are skipped and never reach Process
// - A failing item is counted and logged without stopping its siblings
// - Structured fields on a failure are merged into its log entry
// - A panicking item is converted to a failure
// - No more than the configured number of workers run at once
// - Workers <= 0 falls back to runtime.NumCPU()
// - Progress hooks see every dispatched item

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		stem := fmt.Sprintf("item%02d", i)
		items[i] = Item{Path: "/in/" + stem + ".dot", Stem: stem}
	}
	return items
}

func TestCoordinator_SkipsDoneItems(t *testing.T) {
	t.Parallel()

	logger, _ := logtest.NewNullLogger()
	c := NewCoordinator(WithWorkers(2), WithLogger(logger))

	var processed sync.Map
	stats, err := c.Run(context.Background(), Job{
		Stage: "test",
		Items: makeItems(4),
		Done:  func(stem string) bool { return stem == "item01" || stem == "item03" },
		Process: func(ctx context.Context, item Item) error {
			processed.Store(item.Stem, true)
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)

	_, ok := processed.Load("item01")
	assert.False(t, ok, "done item must not be processed")
	_, ok = processed.Load("item00")
	assert.True(t, ok)
}

func TestCoordinator_IsolatesFailures(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	c := NewCoordinator(WithWorkers(3), WithLogger(logger))

	items := makeItems(5)
	stats, err := c.Run(context.Background(), Job{
		Stage: "test",
		Items: items,
		Process: func(ctx context.Context, item Item) error {
			if item.Stem == "item02" {
				return errors.New("malformed graph")
			}
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 5, stats.Dispatched())

	var failures []*logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			failures = append(failures, entry)
		}
	}
	require.Len(t, failures, 1)
	assert.Equal(t, "item02", failures[0].Data["stem"])
}

type toolFailure struct{}

func (toolFailure) Error() string { return "tool failed" }
func (toolFailure) LogFields() map[string]any {
	return map[string]any{"exit_code": 3, "stderr": "bad input"}
}

func TestCoordinator_LogsErrorFields(t *testing.T) {
	t.Parallel()

	logger, hook := logtest.NewNullLogger()
	c := NewCoordinator(WithWorkers(1), WithLogger(logger))

	_, err := c.Run(context.Background(), Job{
		Stage: "test",
		Items: makeItems(1),
		Process: func(ctx context.Context, item Item) error {
			return fmt.Errorf("wrapped: %w", toolFailure{})
		},
	})
	require.NoError(t, err)

	var entry *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, 3, entry.Data["exit_code"])
	assert.Equal(t, "bad input", entry.Data["stderr"])
	assert.Equal(t, "item00", entry.Data["stem"])
}

func TestCoordinator_RecoversPanics(t *testing.T) {
	t.Parallel()

	logger, _ := logtest.NewNullLogger()
	c := NewCoordinator(WithWorkers(1), WithLogger(logger))

	stats, err := c.Run(context.Background(), Job{
		Stage: "test",
		Items: makeItems(2),
		Process: func(ctx context.Context, item Item) error {
			if item.Stem == "item00" {
				panic("boom")
			}
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Succeeded)
}

func TestCoordinator_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	logger, _ := logtest.NewNullLogger()
	c := NewCoordinator(WithWorkers(2), WithLogger(logger))

	var running, peak int32
	_, err := c.Run(context.Background(), Job{
		Stage: "test",
		Items: makeItems(8),
		Process: func(ctx context.Context, item Item) error {
			now := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		},
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestCoordinator_DefaultWorkers(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(WithWorkers(0))
	assert.Greater(t, c.Workers(), 0)
}

type recordingReporter struct {
	mu      sync.Mutex
	pending int
	done    []string
	final   *Stats
}

func (r *recordingReporter) OnBatchStart(stage string, pending, skipped int) { r.pending = pending }
func (r *recordingReporter) OnItemDone(stem string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, stem)
}
func (r *recordingReporter) OnBatchComplete(stage string, stats *Stats) { r.final = stats }

func TestCoordinator_ReportsProgress(t *testing.T) {
	t.Parallel()

	logger, _ := logtest.NewNullLogger()
	reporter := &recordingReporter{}
	c := NewCoordinator(WithWorkers(4), WithLogger(logger), WithProgress(reporter))

	_, err := c.Run(context.Background(), Job{
		Stage:   "test",
		Items:   makeItems(6),
		Process: func(ctx context.Context, item Item) error { return nil },
	})

	require.NoError(t, err)
	assert.Equal(t, 6, reporter.pending)
	assert.Len(t, reporter.done, 6)
	require.NotNil(t, reporter.final)
	assert.Equal(t, 6, reporter.final.Succeeded)
}
