package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/ritzau/include-cycles/pkg/lens"
	"github.com/ritzau/include-cycles/pkg/logging"
	"github.com/ritzau/include-cycles/pkg/model"
)

// Run states published while an analysis is in progress
const (
	StateAnalyzing = "analyzing"
	StateReady     = "ready"
	StateError     = "error"
)

// Publisher receives progress and results from the runner. The web server
// implements it; a nil Publisher is allowed.
type Publisher interface {
	PublishStatus(state, message string) error
	PublishReport(report *model.Report) error
}

// Runner orchestrates repeated analysis runs, e.g. on file changes. Every
// run starts from scratch; nothing is carried over between runs.
type Runner struct {
	opts      Options
	publisher Publisher
	mu        sync.Mutex // Prevent concurrent analysis runs

	lastMu   sync.RWMutex
	last     *Result
	snapshot *lens.GraphSnapshot // graph of the last successful run
}

// NewRunner creates a new analysis runner
func NewRunner(opts Options, publisher Publisher) *Runner {
	return &Runner{
		opts:      opts,
		publisher: publisher,
	}
}

// Run executes one analysis. reason is logged, e.g. "initial analysis" or
// "3 files changed".
func (r *Runner) Run(ctx context.Context, reason string) (*Result, error) {
	// Lock to prevent concurrent analysis
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := logging.New("runner")
	logger.Info("starting analysis", "reason", reason)
	r.publishStatus(StateAnalyzing, fmt.Sprintf("Analyzing %s...", r.opts.Root))

	result, err := Analyze(ctx, r.opts)
	if err != nil {
		logger.Error("analysis failed", "reason", reason, "error", err)
		r.publishStatus(StateError, fmt.Sprintf("Analysis failed: %v", err))
		return nil, err
	}

	report := result.Report()

	r.lastMu.Lock()
	r.last = result
	diff := lens.ComputeDiff(r.snapshot, report.Graph)
	r.snapshot = lens.CreateSnapshot(report.Graph)
	r.lastMu.Unlock()

	if !diff.FullGraph {
		logger.Info("include graph changed",
			"addedFiles", len(diff.AddedNodes),
			"removedFiles", len(diff.RemovedNodes),
			"addedIncludes", len(diff.AddedEdges),
			"removedIncludes", len(diff.RemovedEdges))
	}

	if r.publisher != nil {
		if err := r.publisher.PublishReport(report); err != nil {
			logger.Warn("failed to publish report", "error", err)
		}
	}
	r.publishStatus(StateReady, result.Summary())

	logger.Info("analysis finished", "reason", reason, "cycles", len(result.Cycles))
	return result, nil
}

// Last returns the result of the most recent successful run, or nil
func (r *Runner) Last() *Result {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

func (r *Runner) publishStatus(state, message string) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishStatus(state, message); err != nil {
		logging.New("runner").Warn("failed to publish status", "state", state, "error", err)
	}
}
