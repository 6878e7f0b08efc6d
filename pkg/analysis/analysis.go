package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/include-cycles/pkg/config"
	"github.com/ritzau/include-cycles/pkg/cycles"
	"github.com/ritzau/include-cycles/pkg/finder"
	"github.com/ritzau/include-cycles/pkg/graph"
	"github.com/ritzau/include-cycles/pkg/includes"
	"github.com/ritzau/include-cycles/pkg/logging"
	"github.com/ritzau/include-cycles/pkg/model"
	"github.com/ritzau/include-cycles/pkg/resolve"
)

// Options configures a single analysis run
type Options struct {
	Root          string
	FileTypes     []string
	ExcludeDirs   []string
	Match         resolve.Mode
	KeepExternal  bool     // unresolved includes become external nodes instead of being dropped
	SystemHeaders []string // names added to the built-in system header set
	Workers       int
	Verify        bool // re-check every reported cycle against the graph
}

// OptionsFromConfig maps validated configuration onto run options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	mode, err := resolve.ParseMode(cfg.Match)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Root:          cfg.Root,
		FileTypes:     cfg.FileTypes,
		ExcludeDirs:   cfg.ExcludeDirs,
		Match:         mode,
		KeepExternal:  cfg.External == config.ExternalKeep,
		SystemHeaders: cfg.SystemHeaders,
		Workers:       cfg.Workers,
	}, nil
}

// Result is the outcome of one run. Issues hold every non-fatal problem in
// discovery order: *includes.ExtractionError, *resolve.AmbiguousIdentity
// and *resolve.UnresolvedIdentity.
type Result struct {
	Root            string
	Files           []finder.SourceFile
	Graph           *graph.FileGraph
	Cycles          []cycles.FileCycle
	Components      [][]string
	CrossDirectory  []model.CrossDirectoryDep
	DirectoryCycles []cycles.FileCycle
	OrphanHeaders   []string
	Issues          []error
	Unparseable     int
}

// fileResult is filled by exactly one worker
type fileResult struct {
	includes    []includes.Include
	deps        graph.FileDependency
	issues      []error
	unparseable int
	failed      bool
}

// Analyze discovers files under opts.Root, extracts and resolves their
// includes, builds the include graph and enumerates its cycles. Only a
// discovery failure or cancellation aborts the run.
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.New("analysis")

	matcher, err := finder.NewMatcher(opts.FileTypes, opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}

	files, err := finder.FindSourceFiles(opts.Root, matcher)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered source files", "root", opts.Root, "count", len(files))

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	// Workers complete in any order; each writes only its own slot so the
	// passes below see discovery order
	slots := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = extractFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	// Only files that made it into the graph can be include targets
	nodes := make([]string, 0, len(files))
	for i := range slots {
		if !slots[i].failed {
			nodes = append(nodes, files[i].Rel)
		}
	}
	resolver := resolve.New(nodes, resolve.NewCache(),
		resolve.WithMode(opts.Match),
		resolve.WithSystemHeaders(resolve.NewSystemHeaders(opts.SystemHeaders...)))

	result := &Result{Root: opts.Root, Files: files}
	fileDeps := make([]*graph.FileDependency, 0, len(nodes))
	for i := range slots {
		slot := &slots[i]
		if !slot.failed {
			resolveIncludes(slot, resolver, opts.KeepExternal)
			fileDeps = append(fileDeps, &slot.deps)
		}
		result.Issues = append(result.Issues, slot.issues...)
		result.Unparseable += slot.unparseable
	}

	fg, dropped := graph.BuildFileGraph(nodes, fileDeps)
	if dropped > 0 {
		logger.Debug("dropped includes of files excluded from the graph", "count", dropped)
	}
	result.Graph = fg

	result.Cycles = cycles.FindFileCycles(fg)
	if opts.Verify {
		if err := cycles.VerifyAll(fg, result.Cycles); err != nil {
			return nil, fmt.Errorf("cycle verification failed: %w", err)
		}
	}
	result.Components = fg.Components()
	result.CrossDirectory = FindCrossDirectoryDeps(fg)
	result.DirectoryCycles = FindDirectoryCycles(fg)
	result.OrphanHeaders = FindOrphanHeaders(fg)

	hits, misses := resolver.CacheStats()
	logger.Info("analysis complete",
		"files", len(files),
		"nodes", fg.NodeCount(),
		"edges", fg.EdgeCount(),
		"cycles", len(result.Cycles),
		"issues", len(result.Issues))
	logger.Debug("resolution cache", "hits", hits, "misses", misses)

	return result, nil
}

// extractFile reads the include directives of one file
func extractFile(f finder.SourceFile) fileResult {
	res := fileResult{deps: graph.FileDependency{SourceFile: f.Rel}}

	incs, unparseable, err := includes.Collect(f.Path)
	if err != nil {
		logging.New("analysis").Warn("skipping file", "file", f.Rel, "error", err)
		res.issues = append(res.issues, err)
		res.failed = true
		return res
	}
	if unparseable > 0 {
		logging.Trace("unparseable include directives", "file", f.Rel, "count", unparseable)
	}
	res.includes = incs
	res.unparseable = unparseable
	return res
}

// resolveIncludes maps the extracted includes of one file onto graph nodes
func resolveIncludes(res *fileResult, resolver *resolve.Resolver, keepExternal bool) {
	for _, inc := range res.includes {
		r := resolver.Resolve(inc)
		if r.System {
			continue
		}
		if issue := r.Issue(res.deps.SourceFile); issue != nil {
			res.issues = append(res.issues, issue)
		}
		switch {
		case r.Resolved():
			res.deps.Dependencies = append(res.deps.Dependencies, r.ID)
		case keepExternal:
			res.deps.External = append(res.deps.External, r.Key)
		}
	}
}

// Counts returns the summary figures of the run
func (r *Result) Counts() model.Counts {
	return model.Counts{
		Files:      len(r.Files),
		Nodes:      r.Graph.NodeCount(),
		Edges:      r.Graph.EdgeCount(),
		Cycles:     len(r.Cycles),
		Components: len(r.Components),
		Issues:     len(r.Issues),
	}
}

// Summary returns the one-line textual result of the run
func (r *Result) Summary() string {
	return Summarize(r.Cycles)
}

// Summarize renders cycles as "No circular dependencies were found" or
// `<N> cycle(s) were found: [["a.h", "b.h"]]`
func Summarize(found []cycles.FileCycle) string {
	if len(found) == 0 {
		return "No circular dependencies were found"
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, c := range found {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, f := range c.Files {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(f))
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')

	return fmt.Sprintf("%d cycle(s) were found: %s", len(found), b.String())
}

// IssuesOf returns the issues of the given kind
func (r *Result) IssuesOf(kind model.IssueKind) []error {
	var out []error
	for _, err := range r.Issues {
		if issueKind(err) == kind {
			out = append(out, err)
		}
	}
	return out
}

func issueKind(err error) model.IssueKind {
	var ee *includes.ExtractionError
	var amb *resolve.AmbiguousIdentity
	var un *resolve.UnresolvedIdentity
	switch {
	case errors.As(err, &ee):
		return model.IssueExtraction
	case errors.As(err, &amb):
		return model.IssueAmbiguous
	case errors.As(err, &un):
		return model.IssueUnresolved
	}
	return ""
}
