package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arenalog/arenalog-go/internal/checkpoint"
	"github.com/arenalog/arenalog-go/internal/frame"
	"github.com/arenalog/arenalog-go/internal/logfinder"
	"github.com/arenalog/arenalog-go/internal/metrics"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

const (
	DefaultPollInterval = time.Second
	DefaultChunkSize    = 64 * 1024
)

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Name labels the stream in logs and metrics (e.g. "main", "player").
	Name string

	// Path is the file to tail. When empty, the newest file in Dir
	// matching Pattern is used.
	Path string

	// Dir and Pattern enable switching to a newer file when one appears.
	Dir     string
	Pattern string

	PollInterval time.Duration
	ChunkSize    int

	// FromStart ignores any saved checkpoint and reads from offset 0.
	FromStart bool

	// Store persists TailState after every read. Optional.
	Store checkpoint.Store

	Logger *slog.Logger
}

// Poller reads a growing file by polling, resuming from a saved byte offset.
// It detects truncation and replacement of the file and, when configured
// with a directory, switches to newer log files. A Poller is driven by a
// single goroutine.
type Poller struct {
	cfg PollerConfig
	log *slog.Logger

	path     string
	readPos  int64
	lastInfo os.FileInfo
	ext      *frame.Extractor
	buf      []byte
	saved    checkpoint.TailState
	started  bool
}

// emitError marks an error returned by the caller's emit function.
type emitError struct{ err error }

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// NewPoller validates cfg and resolves the file to tail.
func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("poll interval must be positive")
	}
	if cfg.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Name == "" {
		cfg.Name = "main"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	path := cfg.Path
	if path == "" {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("either a file path or a directory is required")
		}
		latest, err := logfinder.FindLatestLogFile(cfg.Dir, cfg.Pattern)
		if err != nil {
			return nil, err
		}
		path = latest
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	return &Poller{
		cfg:  cfg,
		log:  cfg.Logger.With("stream", cfg.Name),
		path: abs,
		ext:  frame.NewExtractor(),
		buf:  make([]byte, cfg.ChunkSize),
	}, nil
}

// Path returns the file currently being tailed.
func (p *Poller) Path() string {
	return p.path
}

// State returns the resume point for the current file: the offset of the
// first byte not yet part of an emitted record.
func (p *Poller) State() checkpoint.TailState {
	consumed := p.readPos - int64(p.ext.Pending())
	if consumed < 0 {
		consumed = 0
	}
	return checkpoint.TailState{FileIdentity: p.path, BytesRead: uint64(consumed)}
}

// Start checks that the file is readable and positions the poller at the
// saved checkpoint (or offset 0). Run calls Start when needed.
func (p *Poller) Start(ctx context.Context) error {
	info, err := os.Stat(p.path)
	if err != nil {
		return fmt.Errorf("tailing %s: %w", p.path, err)
	}
	p.started = true
	p.readPos = 0
	p.ext.Reset()
	p.lastInfo = nil
	if p.cfg.FromStart || p.cfg.Store == nil {
		return nil
	}
	p.resume(ctx, info.Size())
	return nil
}

// resume positions the poller at the saved offset for the current path.
func (p *Poller) resume(ctx context.Context, size int64) {
	if p.cfg.Store == nil {
		return
	}
	st, err := p.cfg.Store.Load(ctx, p.path)
	if err != nil {
		if !errors.Is(err, checkpoint.ErrNotFound) {
			p.log.Warn("loading checkpoint failed, starting from offset 0", "path", p.path, "error", err)
		}
		return
	}
	p.saved = st
	if int64(st.BytesRead) > size {
		p.log.Info("checkpoint beyond end of file, starting from offset 0",
			"path", p.path, "offset", st.BytesRead, "size", size)
		return
	}
	p.readPos = int64(st.BytesRead)
	p.log.Debug("resuming from checkpoint", "path", p.path, "offset", p.readPos)
}

// Run polls until ctx is cancelled, passing every complete record to emit
// in file order. It returns nil on cancellation, the error from emit if
// emit fails, or a fatal error (file missing or unreadable).
func (p *Poller) Run(ctx context.Context, emit func(event.RawLogEvent) error) error {
	if !p.started {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.step(ctx, emit); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// step runs one poll followed by a rotation check. Only errors that must
// stop tailing are returned.
func (p *Poller) step(ctx context.Context, emit func(event.RawLogEvent) error) error {
	if err := p.handle(p.Poll(ctx, emit)); err != nil {
		return err
	}
	return p.handle(p.checkRotation(ctx, emit))
}

func (p *Poller) handle(err error) error {
	if err == nil {
		return nil
	}
	var ee *emitError
	if errors.As(err, &ee) {
		return ee.err
	}
	if p.fatal(err) {
		return err
	}
	metrics.ReadErrors.WithLabelValues(p.cfg.Name).Inc()
	p.log.Warn("read failed, retrying next poll", "path", p.path, "error", err)
	return nil
}

// fatal reports whether err ends tailing. A missing file is transient in
// directory mode, where rotation may have moved it away.
func (p *Poller) fatal(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return p.cfg.Dir == ""
	}
	return false
}

// Poll performs one read cycle: detect truncation, read new bytes to
// end-of-file in chunks, emit records and save the checkpoint after each
// chunk.
func (p *Poller) Poll(ctx context.Context, emit func(event.RawLogEvent) error) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", p.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", p.path, err)
	}
	replaced := p.lastInfo != nil && !os.SameFile(p.lastInfo, info)
	if replaced || info.Size() < p.readPos {
		p.log.Info("file truncated or replaced, restarting from offset 0",
			"path", p.path, "offset", p.readPos, "size", info.Size())
		metrics.Truncations.WithLabelValues(p.cfg.Name).Inc()
		p.readPos = 0
		p.ext.Reset()
		p.saveCheckpoint(ctx)
	}
	p.lastInfo = info

	if info.Size() == p.readPos {
		return nil
	}
	if _, err := f.Seek(p.readPos, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", p.path, err)
	}

	for {
		n, err := f.Read(p.buf)
		if n > 0 {
			p.readPos += int64(n)
			records := p.ext.Feed(p.buf[:n])
			metrics.RecordRead(p.cfg.Name, n, len(records))
			for _, rec := range records {
				if err := emit(rec); err != nil {
					return &emitError{err: err}
				}
			}
			p.saveCheckpoint(ctx)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p.path, err)
		}
	}
}

// checkRotation switches to a newer file in the configured directory.
// Remaining bytes of the current file are read first.
func (p *Poller) checkRotation(ctx context.Context, emit func(event.RawLogEvent) error) error {
	if p.cfg.Dir == "" {
		return nil
	}
	next, ok, err := logfinder.NewerLogFile(p.cfg.Dir, p.cfg.Pattern, p.path)
	if err != nil || !ok {
		return nil
	}
	if _, statErr := os.Stat(p.path); statErr == nil {
		if err := p.Poll(ctx, emit); err != nil {
			var ee *emitError
			if errors.As(err, &ee) {
				return err
			}
		}
	}
	p.saveCheckpoint(ctx)

	abs, err := filepath.Abs(next)
	if err != nil {
		return nil
	}
	p.log.Info("switching to newer log file", "from", p.path, "to", abs)
	metrics.Rotations.WithLabelValues(p.cfg.Name).Inc()

	p.path = abs
	p.readPos = 0
	p.lastInfo = nil
	p.ext.Reset()
	p.saved = checkpoint.TailState{}
	if !p.cfg.FromStart {
		if info, err := os.Stat(abs); err == nil {
			p.resume(ctx, info.Size())
		}
	}
	return nil
}

// saveCheckpoint persists the current state when it changed.
func (p *Poller) saveCheckpoint(ctx context.Context) {
	if p.cfg.Store == nil {
		return
	}
	st := p.State()
	if st.FileIdentity == p.saved.FileIdentity && st.BytesRead == p.saved.BytesRead {
		return
	}
	st.UpdatedAt = time.Now()
	err := p.cfg.Store.Save(ctx, st)
	metrics.RecordCheckpoint(p.cfg.Name, err)
	if err != nil {
		p.log.Warn("saving checkpoint failed", "path", p.path, "error", err)
		return
	}
	p.saved = st
}
