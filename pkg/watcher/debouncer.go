package watcher

import (
	"context"
	"time"

	"github.com/ritzau/include-cycles/pkg/logging"
)

// Default debounce timings for watch mode
const (
	DefaultQuietPeriod = 300 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// Debouncer batches rapid file system events to avoid excessive re-analysis.
// A batch is released once no event arrived for the quiet period, or when
// the first event of the batch is maxWait old.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	quietTimer := time.NewTimer(d.quietPeriod)
	quietTimer.Stop()
	maxWaitTimer := time.NewTimer(d.maxWait)
	maxWaitTimer.Stop()

	// nil while no batch is pending, so the select ignores them
	var quietC, maxWaitC <-chan time.Time

	accumulated := make(map[ChangeType][]string)
	seen := make(map[string]bool)
	eventCount := 0

	flush := func() {
		quietTimer.Stop()
		maxWaitTimer.Stop()
		quietC, maxWaitC = nil, nil

		if eventCount == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", eventCount)

		// Layout changes first, they alter the set of files
		for _, t := range []ChangeType{ChangeTypeLayout, ChangeTypeContent} {
			if paths := accumulated[t]; len(paths) > 0 {
				d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}
			}
		}

		// Reset accumulators
		accumulated = make(map[ChangeType][]string)
		seen = make(map[string]bool)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			for _, p := range event.Paths {
				key := event.Type.String() + ":" + p
				if !seen[key] {
					seen[key] = true
					accumulated[event.Type] = append(accumulated[event.Type], p)
				}
			}
			eventCount++

			// Reset quiet period timer
			quietTimer.Reset(d.quietPeriod)
			quietC = quietTimer.C

			// Start max wait timer on first event
			if maxWaitC == nil {
				maxWaitTimer.Reset(d.maxWait)
				maxWaitC = maxWaitTimer.C
			}

		case <-quietC:
			flush()

		case <-maxWaitC:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
