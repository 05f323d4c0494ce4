package batch

import (
	"context"
	"time"
)

// Item is one unit of work, identified across stages by its stem.
type Item struct {
	Path string
	Stem string
}

// Job describes one stage run over a set of candidate items.
type Job struct {
	// Stage names the run in logs and progress output (e.g. "parse").
	Stage string

	// Items are the candidates discovered for this stage.
	Items []Item

	// Done reports whether the stem already completed this stage.
	// Nil means nothing is complete yet.
	Done func(stem string) bool

	// Process runs one item end-to-end. A returned error marks the item failed;
	// it never stops sibling items.
	Process func(ctx context.Context, item Item) error
}

// Stats tracks what a batch run did.
type Stats struct {
	Total     int
	Skipped   int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Dispatched returns how many items were handed to workers.
func (s *Stats) Dispatched() int {
	return s.Succeeded + s.Failed
}

// Outcome reports what a single-item call did.
type Outcome int

const (
	// Skipped means the stem was already complete; no work was done.
	Skipped Outcome = iota
	// Completed means the item was processed and its output is durable.
	Completed
)

func (o Outcome) String() string {
	if o == Skipped {
		return "skipped"
	}
	return "completed"
}
