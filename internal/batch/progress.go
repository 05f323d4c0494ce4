package batch

// ProgressReporter provides callbacks for reporting batch progress.
// OnItemDone is called concurrently from workers.
type ProgressReporter interface {
	// OnBatchStart is called once candidates have been filtered.
	OnBatchStart(stage string, pending, skipped int)

	// OnItemDone is called after each dispatched item finishes. err is nil on success.
	OnItemDone(stem string, err error)

	// OnBatchComplete is called after every dispatched item finished.
	OnBatchComplete(stage string, stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnBatchStart(stage string, pending, skipped int) {}
func (n *NoOpProgressReporter) OnItemDone(stem string, err error)              {}
func (n *NoOpProgressReporter) OnBatchComplete(stage string, stats *Stats)     {}
