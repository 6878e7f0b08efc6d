package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/include-cycles/pkg/analysis"
	"github.com/ritzau/include-cycles/pkg/config"
	"github.com/ritzau/include-cycles/pkg/finder"
	"github.com/ritzau/include-cycles/pkg/logging"
	"github.com/ritzau/include-cycles/pkg/model"
	"github.com/ritzau/include-cycles/pkg/output"
	"github.com/ritzau/include-cycles/pkg/watcher"
	"github.com/ritzau/include-cycles/pkg/web"
)

// Exit codes
const (
	exitOK     = 0
	exitFatal  = 1
	exitCycles = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("include-cycles", pflag.ContinueOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: include-cycles [flags] [root]\n\n")
		fmt.Fprintf(os.Stderr, "Finds circular #include dependencies in a C/C++ source tree.\n\n")
		f.PrintDefaults()
	}

	f.String("config", config.DefaultConfigFile, "Path to a TOML config file")
	f.String("root", ".", "Directory to analyze")
	f.StringSlice("types", config.DefaultFileTypes, "File patterns to analyze")
	f.StringSlice("exclude", config.DefaultExcludeDirs, "Skip paths containing any of these substrings")
	f.String("match", config.MatchBasename, "Include matching: basename or path")
	f.String("external", config.ExternalDrop, "Unresolved includes: drop or keep as external nodes")
	f.StringSlice("system-headers", nil, "Additional angle-bracket headers to ignore")
	f.Int("workers", runtime.NumCPU(), "Number of files processed in parallel")
	f.String("format", config.FormatText, "Report format: text or json")
	f.Bool("fail-on-cycles", false, "Exit with status 2 when cycles are found")
	f.Bool("serve", false, "Serve results over HTTP")
	f.Int("port", 8080, "Port for the HTTP server (only used with --serve)")
	f.Bool("watch", false, "Re-run the analysis when files change")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Write logs as JSON")
	return f
}

func run(args []string, stdout io.Writer) int {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		logging.Error("invalid configuration", "error", err)
		return exitFatal
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		logging.Error("invalid configuration", "error", err)
		return exitFatal
	}
	if cfg.LogJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	opts, err := analysis.OptionsFromConfig(cfg)
	if err != nil {
		logging.Error("invalid configuration", "error", err)
		return exitFatal
	}
	opts.Verify = level <= slog.LevelDebug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Serve || cfg.Watch {
		if err := runLive(ctx, cfg, opts, stdout); err != nil {
			logging.Error("stopped", "error", err)
			return exitFatal
		}
		return exitOK
	}

	return runOnce(ctx, cfg, opts, stdout)
}

// loadConfig layers the config file, environment and flags. A positional
// argument overrides the root.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// The default file is optional, an explicitly named one is not
	cfg, err := config.LoadFile(flags, path, !flags.Changed("config"))
	if err != nil {
		return nil, err
	}

	switch flags.NArg() {
	case 0:
	case 1:
		cfg.Root = flags.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one root directory, got %d", flags.NArg())
	}
	return cfg, cfg.Validate()
}

func runOnce(ctx context.Context, cfg *config.Config, opts analysis.Options, stdout io.Writer) int {
	runner := analysis.NewRunner(opts, nil)
	result, err := runner.Run(ctx, "initial analysis")
	if err != nil {
		logging.Error("analysis failed", "error", err)
		return exitFatal
	}

	if err := writeReport(stdout, cfg.Format, result.Report()); err != nil {
		logging.Error("failed to write report", "error", err)
		return exitFatal
	}

	if cfg.FailOnCycles && len(result.Cycles) > 0 {
		return exitCycles
	}
	return exitOK
}

func writeReport(w io.Writer, format string, report *model.Report) error {
	if format == config.FormatJSON {
		return output.WriteJSON(w, report)
	}
	output.PrintReport(w, report)
	return nil
}

// runLive serves and/or watches until ctx is done. Analysis failures are
// reported and the next change triggers a new attempt.
func runLive(ctx context.Context, cfg *config.Config, opts analysis.Options, stdout io.Writer) error {
	logger := logging.New("main")

	var server *web.Server
	var publisher analysis.Publisher
	if cfg.Serve {
		server = web.NewServer()
		publisher = server
	}
	runner := analysis.NewRunner(opts, publisher)

	g, gctx := errgroup.WithContext(ctx)

	if server != nil {
		server.SetResultSource(runner)
		g.Go(func() error {
			return server.Start(gctx, cfg.Port)
		})
	}

	analyze := func(reason string) {
		result, err := runner.Run(gctx, reason)
		if err != nil {
			if gctx.Err() == nil {
				logger.Error("analysis failed", "reason", reason, "error", err)
			}
			return
		}
		// The HTTP API is the output in serve mode
		if server != nil {
			return
		}
		if err := writeReport(stdout, cfg.Format, result.Report()); err != nil {
			logger.Error("failed to write report", "error", err)
		}
	}

	g.Go(func() error {
		analyze("initial analysis")
		if !cfg.Watch {
			return nil
		}
		return watch(gctx, opts, analyze)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watch re-runs analyze for every debounced batch of file changes
func watch(ctx context.Context, opts analysis.Options, analyze func(reason string)) error {
	logger := logging.New("main")

	matcher, err := finder.NewMatcher(opts.FileTypes, opts.ExcludeDirs)
	if err != nil {
		return err
	}
	fw, err := watcher.NewFileWatcher(opts.Root, matcher)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return fmt.Errorf("failed to watch %s: %w", opts.Root, err)
	}

	debouncer := watcher.NewDebouncer(fw.Events(), watcher.DefaultQuietPeriod, watcher.DefaultMaxWait)
	debouncer.Start(ctx)

	logger.Info("watching for changes", "root", opts.Root)
	for event := range debouncer.Output() {
		changes := watcher.AnalyzeChanges(event)
		logger.Info("change detected", "reason", changes.Reason, "layout", changes.LayoutChanged)
		analyze(changes.Reason)
	}
	return ctx.Err()
}
