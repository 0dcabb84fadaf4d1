package arenalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arenalog/arenalog-go/internal/logfinder"
	"github.com/arenalog/arenalog-go/internal/metrics"
	"github.com/arenalog/arenalog-go/internal/tailer"
)

// errBuffer is the buffer size for the error channel.
const errBuffer = 16

// stream is one tailed log: the main log or the player log.
type stream struct {
	name    string
	path    string // explicit file; empty in directory mode
	dir     string
	pattern string
	player  bool
}

// Watcher monitors the client log files.
type Watcher struct {
	cfg     *watchConfig
	log     *slog.Logger
	streams []stream

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc // cancel func to stop the goroutines
	doneCh   chan struct{}      // signals when all goroutines have exited
	watching bool               // true if Watch() has been called
}

// NewWatcher creates a watcher.
// Validates options and locates the log files.
// Does NOT start goroutines (cheap to call).
// Returns error for invalid options or a missing log directory.
func NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if cfg.pollInterval <= 0 {
		return nil, fmt.Errorf("invalid options: poll interval must be positive, got %v", cfg.pollInterval)
	}
	if cfg.chunkSize <= 0 {
		return nil, fmt.Errorf("invalid options: chunk size must be positive, got %d", cfg.chunkSize)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.pattern == "" {
		cfg.pattern = logfinder.DefaultPattern
	}

	mainLog := stream{name: "main", path: cfg.logFile, pattern: cfg.pattern}
	if mainLog.path == "" {
		dir, err := logfinder.FindLogDir(cfg.logDir, cfg.pattern)
		if err != nil {
			return nil, err
		}
		mainLog.dir = dir
	}
	streams := []stream{mainLog}

	if cfg.player {
		path, err := logfinder.FindPlayerLog(cfg.playerLog)
		if err != nil {
			return nil, fmt.Errorf("locating player log: %w", err)
		}
		streams = append(streams, stream{name: "player", path: path, player: true})
	}

	return &Watcher{
		cfg:     cfg,
		log:     cfg.logger,
		streams: streams,
	}, nil
}

// Watch starts watching and returns channels.
// Starts internal goroutines here, one per log file.
// Events from one file arrive in file order; events from the main and
// player logs are interleaved.
// Both channels close on ctx.Done(), Close, or a fatal error. A fatal
// error (log file missing or unreadable) is sent on the error channel
// before it closes.
// Watch can only be called once per Watcher instance.
func (w *Watcher) Watch(ctx context.Context) (<-chan Event, <-chan error) {
	w.mu.Lock()
	if w.closed || w.watching {
		w.mu.Unlock()
		eventCh := make(chan Event)
		errCh := make(chan error)
		close(eventCh)
		close(errCh)
		return eventCh, errCh
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	eventCh := make(chan Event)
	errCh := make(chan error, errBuffer)

	go w.run(ctx, cancel, eventCh, errCh)

	return eventCh, errCh
}

// Close stops the watcher and releases resources.
// Safe to call multiple times.
// Blocks until the goroutines have exited.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, cancel context.CancelFunc, eventCh chan<- Event, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(eventCh)
	defer close(errCh)

	var wg sync.WaitGroup
	for _, s := range w.streams {
		wg.Go(func() {
			if err := w.runStream(ctx, s, eventCh); err != nil {
				sendError(errCh, fmt.Errorf("%s log: %w", s.name, err))
				cancel()
			}
		})
	}
	wg.Wait()
}

// runStream tails one file until ctx is done. Only fatal errors are
// returned.
func (w *Watcher) runStream(ctx context.Context, s stream, eventCh chan<- Event) error {
	log := w.log.With("stream", s.name)
	parse := newParseFunc(s.player, cardNames(w.cfg.cardNames, w.cfg.resolver), log)

	deliver := func(rec RawLogEvent) error {
		events, lookups := parse(rec)
		submit(w.cfg.resolver, lookups, log)
		for _, ev := range events {
			if !keep(ev, w.cfg.filter) {
				continue
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	if w.cfg.fromEnd {
		return w.follow(ctx, s, deliver, log)
	}

	p, err := tailer.NewPoller(tailer.PollerConfig{
		Name:         s.name,
		Path:         s.path,
		Dir:          s.dir,
		Pattern:      s.pattern,
		PollInterval: w.cfg.pollInterval,
		ChunkSize:    w.cfg.chunkSize,
		FromStart:    w.cfg.fromStart,
		Store:        w.cfg.store,
		Logger:       log,
	})
	if err != nil {
		return err
	}
	return p.Run(ctx, deliver)
}

// follow delivers records appended after it starts. In directory mode it
// checks for a newer log file every poll interval and follows that one
// from its start. Follower errors are transient and only logged.
func (w *Watcher) follow(ctx context.Context, s stream, deliver func(RawLogEvent) error, log *slog.Logger) error {
	current := s.path
	if current == "" {
		latest, err := logfinder.FindLatestLogFile(s.dir, s.pattern)
		if err != nil {
			return err
		}
		current = latest
	}

	f, err := tailer.Follow(ctx, current, tailer.DefaultFollowConfig())
	if err != nil {
		return err
	}
	defer func() { _ = f.Stop() }()

	rotationTicker := time.NewTicker(w.cfg.pollInterval)
	defer rotationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-f.Records():
			if !ok {
				return nil
			}
			if err := deliver(rec); err != nil {
				return nil
			}
		case err, ok := <-f.Errors():
			if !ok {
				return nil
			}
			metrics.ReadErrors.WithLabelValues(s.name).Inc()
			log.Warn("follow failed, retrying", "error", err)
		case <-rotationTicker.C:
			if s.dir == "" {
				continue
			}
			next, found, err := logfinder.NewerLogFile(s.dir, s.pattern, current)
			if err != nil || !found {
				continue
			}
			cfg := tailer.DefaultFollowConfig()
			cfg.FromStart = true
			nf, err := tailer.Follow(ctx, next, cfg)
			if err != nil {
				log.Warn("switching to newer log file failed", "path", next, "error", err)
				continue
			}
			_ = f.Stop()
			f = nf
			current = next
			log.Info("switching to newer log file", "to", next)
		}
	}
}

// sendError sends an error non-blocking.
func sendError(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Drop error if channel is full
	}
}

// Watch is a convenience function that creates a watcher and starts watching.
// Returns error immediately for initialization failures.
func Watch(ctx context.Context, opts ...WatchOption) (<-chan Event, <-chan error, error) {
	w, err := NewWatcher(opts...)
	if err != nil {
		return nil, nil, err
	}
	events, errs := w.Watch(ctx)
	return events, errs, nil
}
