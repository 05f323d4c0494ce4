package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/cpgimage/internal/batch"
)

// CLIProgressReporter draws one progress bar per batch.
type CLIProgressReporter struct {
	out    io.Writer
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	failed int
}

var _ batch.ProgressReporter = (*CLIProgressReporter)(nil)

// NewCLIProgressReporter creates a reporter drawing to out.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

func (c *CLIProgressReporter) OnBatchStart(stage string, pending, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed = 0
	if skipped > 0 {
		fmt.Fprintf(c.out, "Skipping %d already complete\n", skipped)
	}
	if pending == 0 {
		c.bar = nil
		return
	}
	c.bar = progressbar.NewOptions(pending,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnItemDone(stem string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.failed++
		if c.bar != nil {
			c.bar.Describe(fmt.Sprintf("%d failed", c.failed))
		}
	}
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnBatchComplete(stage string, stats *batch.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}
