// Package batch fans stage work out over a bounded pool of workers.
//
// Completion is always re-derived from durable state (artifacts on disk and
// stage records) before dispatch, so a killed run is resumed by running it
// again.
package batch

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Coordinator dispatches jobs across a fixed-size worker pool.
type Coordinator struct {
	workers  int
	logger   logrus.FieldLogger
	progress ProgressReporter
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithWorkers sets the pool size. Values <= 0 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Coordinator) {
		c.workers = n
	}
}

// WithLogger sets the logger used for per-item failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithProgress sets the progress reporter.
func WithProgress(progress ProgressReporter) Option {
	return func(c *Coordinator) {
		c.progress = progress
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU()
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.progress == nil {
		c.progress = &NoOpProgressReporter{}
	}
	return c
}

// Workers returns the pool size.
func (c *Coordinator) Workers() int {
	return c.workers
}

// Run filters completed items out of job.Items and processes the rest,
// blocking until every dispatched item finishes. Item failures are logged and
// counted in Stats; the returned error is only ever the context's error.
func (c *Coordinator) Run(ctx context.Context, job Job) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Total: len(job.Items)}
	log := c.logger.WithField("stage", job.Stage)

	pending := make([]Item, 0, len(job.Items))
	for _, item := range job.Items {
		if job.Done != nil && job.Done(item.Stem) {
			stats.Skipped++
			continue
		}
		pending = append(pending, item)
	}

	log.WithFields(logrus.Fields{
		"pending": len(pending),
		"skipped": stats.Skipped,
		"workers": c.workers,
	}).Info("Starting batch")
	c.progress.OnBatchStart(job.Stage, len(pending), stats.Skipped)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(c.workers)

	for _, item := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := c.runItem(ctx, job, item)

			mu.Lock()
			if err != nil {
				stats.Failed++
			} else {
				stats.Succeeded++
			}
			mu.Unlock()

			if err != nil {
				entry := log.WithFields(logrus.Fields{
					"stem": item.Stem,
					"path": item.Path,
				})
				var fe FieldsError
				if errors.As(err, &fe) {
					entry = entry.WithFields(fe.LogFields())
				}
				entry.WithError(err).Error("Item failed")
			}
			c.progress.OnItemDone(item.Stem, err)
			// Never propagate: one item's failure must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	c.progress.OnBatchComplete(job.Stage, stats)
	log.WithFields(logrus.Fields{
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"skipped":   stats.Skipped,
		"duration":  stats.Duration.Round(time.Millisecond).String(),
	}).Info("Batch complete")

	return stats, ctx.Err()
}

// runItem executes one item, converting a panic into an item failure.
func (c *Coordinator) runItem(ctx context.Context, job Job, item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return job.Process(ctx, item)
}
