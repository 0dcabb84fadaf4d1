package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arenalog/arenalog-go/internal/cardcache"
	"github.com/arenalog/arenalog-go/internal/config"
	"github.com/arenalog/arenalog-go/internal/metrics"
	"github.com/arenalog/arenalog-go/internal/resolve"
	"github.com/arenalog/arenalog-go/internal/scryfall"
	"github.com/arenalog/arenalog-go/internal/supervisor"
	"github.com/arenalog/arenalog-go/pkg/arenalog"
)

var (
	// tail flags
	logDir           string
	logFile          string
	withPlayer       bool
	playerLog        string
	pattern          string
	format           string
	tailIncludeTypes []string
	tailExcludeTypes []string
	fromStart        bool
	fromEnd          bool
	checkpointDir    string
	noCheckpoint     bool
	noResolve        bool
	metricsAddr      string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Monitor MTG Arena logs and output events",
	Long: `Follow the MTG Arena logs in real time and output parsed events.

The newest main log in the log directory is followed, switching to newer
files as the client creates them. With --player the Player.log is
followed as well. Read positions are saved in the checkpoint directory so
a restarted tail continues where it stopped.

Examples:
  # Monitor with default settings (auto-detect log directory)
  arenalog tail

  # Also follow Player.log for phase, combat and timer events
  arenalog tail --player

  # Re-read the current log from the beginning
  arenalog tail --from-start

  # Only show new records, without checkpoints
  arenalog tail --from-end

  # Output only match events, human readable
  arenalog tail --include-types match_started,match_ended --format pretty

  # Expose Prometheus metrics
  arenalog tail --metrics-addr :9100

  # Pipe to jq for filtering
  arenalog tail | jq 'select(.type == "life_change")'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&logDir, "log-dir", "d", "",
		"MTG Arena log directory (auto-detected if not specified)")
	tailCmd.Flags().StringVar(&logFile, "log-file", "",
		"Follow this main log file instead of the newest in the log directory")
	tailCmd.Flags().BoolVarP(&withPlayer, "player", "p", false,
		"Also follow Player.log")
	tailCmd.Flags().StringVar(&playerLog, "player-log", "",
		"Player.log path (implies --player, auto-detected if not specified)")
	tailCmd.Flags().StringVar(&pattern, "pattern", "",
		"Glob for main log file names (default UTC_Log*.log)")
	tailCmd.Flags().StringVarP(&format, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	tailCmd.Flags().StringSliceVar(&tailIncludeTypes, "include-types", nil,
		"Event types to include (comma-separated, e.g. match_started,life_change)")
	tailCmd.Flags().StringSliceVar(&tailExcludeTypes, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	tailCmd.Flags().BoolVar(&fromStart, "from-start", false,
		"Ignore saved positions and read every file from the beginning")
	tailCmd.Flags().BoolVar(&fromEnd, "from-end", false,
		"Start at the end of the current file; no checkpoints are kept")
	tailCmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "",
		"Directory for saved read positions (default from config)")
	tailCmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false,
		"Do not load or save read positions")
	tailCmd.Flags().BoolVar(&noResolve, "no-resolve", false,
		"Do not look up card names")
	tailCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9100)")

	registerCompletions(tailCmd, tailTypes)
}

func runTail(cmd *cobra.Command, args []string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", format)
	}
	includes, excludes, err := eventFilter(tailIncludeTypes, tailExcludeTypes)
	if err != nil {
		return err
	}
	if fromStart && fromEnd {
		return errors.New("--from-start and --from-end cannot be used together")
	}

	cfg := currentSettings()
	log := logger()

	opts := watchOptions(cfg, log)
	if len(includes) > 0 || len(excludes) > 0 {
		opts = append(opts, arenalog.WithFilter(includes, excludes))
	}

	// Fail fast on a missing log directory before anything is opened.
	if _, err := arenalog.NewWatcher(opts...); err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	tree := supervisor.New("arenalog", log, supervisor.DefaultTreeConfig())

	if dir := firstNonEmpty(checkpointDir, cfg.Checkpoint.Dir); dir != "" && !noCheckpoint && !fromEnd {
		store, err := arenalog.OpenCheckpointStore(dir)
		if err != nil {
			return fmt.Errorf("opening checkpoint store: %w", err)
		}
		defer store.Close()
		opts = append(opts, arenalog.WithCheckpointStore(store))
	}

	if !noResolve {
		queue, closeCache, err := newResolveQueue(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeCache()
		tree.Add(queue, supervisor.Func{Name: "card-log", Run: logResolved(queue, log)})
		opts = append(opts, arenalog.WithResolver(queue))
	}

	if addr := firstNonEmpty(metricsAddr, cfg.Metrics.Addr); addr != "" {
		tree.Add(metrics.NewServer(addr, log))
	}

	printer, err := NewPrinter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	tree.Add(supervisor.Func{Name: "pipeline", Run: func(ctx context.Context) error {
		return pipe(ctx, tree, printer, opts)
	}})

	return tree.Serve(ctx)
}

// watchOptions merges tail flags over the loaded configuration.
func watchOptions(cfg *config.Config, log *slog.Logger) []arenalog.WatchOption {
	opts := []arenalog.WatchOption{
		arenalog.WithPollInterval(cfg.PollInterval),
		arenalog.WithChunkSize(cfg.ChunkSize),
		arenalog.WithLogger(log),
	}
	if dir := firstNonEmpty(logDir, cfg.LogDir); dir != "" {
		opts = append(opts, arenalog.WithLogDir(dir))
	}
	if file := firstNonEmpty(logFile, cfg.MainLog); file != "" {
		opts = append(opts, arenalog.WithLogFile(file))
	}
	if p := firstNonEmpty(pattern, cfg.Pattern); p != "" {
		opts = append(opts, arenalog.WithPattern(p))
	}
	if path := firstNonEmpty(playerLog, cfg.PlayerLog); withPlayer || path != "" {
		opts = append(opts, arenalog.WithPlayerLog(path))
	}
	switch {
	case fromEnd:
		opts = append(opts, arenalog.WithFromEnd())
	case fromStart || cfg.FromStart:
		opts = append(opts, arenalog.WithFromStart())
	}
	return opts
}

// pipe runs one Watcher and prints its events until ctx is cancelled.
// Watcher errors are fatal and stop the whole tree.
func pipe(ctx context.Context, tree *supervisor.Tree, printer *Printer, opts []arenalog.WatchOption) error {
	w, err := arenalog.NewWatcher(opts...)
	if err != nil {
		return tree.Fatal(err)
	}
	defer w.Close()

	events, errs := w.Watch(ctx)
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := printer.Print(ev); err != nil {
				return tree.Fatal(fmt.Errorf("output error: %w", err))
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return tree.Fatal(err)
		}
	}
	return ctx.Err()
}

// newResolveQueue wires the card cache and the Scryfall client behind a
// resolve.Queue. The returned func closes the cache.
func newResolveQueue(ctx context.Context, cfg *config.Config, log *slog.Logger) (*resolve.Queue, func(), error) {
	cache, err := cardcache.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}
	if n, err := cache.Count(ctx); err != nil {
		log.Warn("card cache unreadable", "path", cfg.Cache.Path, "error", err)
	} else {
		log.Info("card cache opened", "path", cfg.Cache.Path, "cards", n)
	}
	queue := resolve.NewQueue(resolve.Config{
		QueueSize:     cfg.Resolve.QueueSize,
		Workers:       cfg.Resolve.Workers,
		MemoryEntries: cfg.Cache.MemoryEntries,
		Timeout:       cfg.Resolve.Timeout,
		RetryAfter:    cfg.Resolve.RetryAfter,
		Source: scryfall.New(scryfall.Config{
			BaseURL:       cfg.Scryfall.BaseURL,
			RatePerSecond: cfg.Scryfall.RatePerSecond,
			Logger:        log,
		}),
		Store:  cache,
		Logger: log,
	})
	return queue, func() { _ = cache.Close() }, nil
}

// logResolved reports every card the queue resolves at debug level.
func logResolved(queue *resolve.Queue, log *slog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case card := <-queue.Results():
				log.Debug("card resolved", "grp_id", card.Key, "name", card.Name)
			}
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
