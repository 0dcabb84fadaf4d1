package arenalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/arenalog/arenalog-go/internal/frame"
	"github.com/arenalog/arenalog-go/internal/logfinder"
)

// ParseFile parses a finished log file and returns an iterator over its
// events. Files ending in ".gz" are decompressed. The file is opened
// lazily on first iteration, so the returned iterator is cheap to create
// but must be consumed to release resources.
//
// The iterator yields (Event, error) pairs. When an error occurs:
//   - File open and read errors: yields (nil, error) once and stops
//   - Context cancellation: yields (nil, ctx.Err()) and stops
//
// Malformed records never produce an error; they produce no event.
//
// Example:
//
//	for ev, err := range arenalog.ParseFile(ctx, "UTC_Log - 01-02-2024.log") {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("%s at %s\n", ev.Kind(), ev.Time())
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[Event, error] {
	if path == "" {
		return func(yield func(Event, error) bool) {
			yield(nil, errors.New("arenalog: path required"))
		}
	}
	cfg := applyParseOptions(opts)

	return func(yield func(Event, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		var r io.Reader = f
		if strings.HasSuffix(path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				yield(nil, fmt.Errorf("opening %s: %w", path, err))
				return
			}
			defer gz.Close()
			r = gz
		}
		parseReader(ctx, r, cfg, yield)
	}
}

// ParseReader is ParseFile over an arbitrary reader.
func ParseReader(ctx context.Context, r io.Reader, opts ...ParseOption) iter.Seq2[Event, error] {
	cfg := applyParseOptions(opts)
	return func(yield func(Event, error) bool) {
		parseReader(ctx, r, cfg, yield)
	}
}

func parseReader(ctx context.Context, r io.Reader, cfg *parseConfig, yield func(Event, error) bool) {
	if cfg.chunkSize <= 0 {
		yield(nil, fmt.Errorf("arenalog: chunk size must be positive, got %d", cfg.chunkSize))
		return
	}
	logger := slog.New(slog.DiscardHandler)
	parse := newParseFunc(cfg.player, cardNames(cfg.cardNames, cfg.resolver), logger)
	ext := frame.NewExtractor()

	// emit reports false when the consumer stopped.
	emit := func(recs []RawLogEvent) bool {
		for _, rec := range recs {
			events, lookups := parse(rec)
			submit(cfg.resolver, lookups, logger)
			for _, ev := range events {
				if !cfg.inWindow(ev) || !keep(ev, cfg.filter) {
					continue
				}
				if !yield(ev, nil) {
					return false
				}
			}
		}
		return true
	}

	buf := make([]byte, cfg.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		n, err := r.Read(buf)
		if n > 0 && !emit(ext.Feed(buf[:n])) {
			return
		}
		if errors.Is(err, io.EOF) {
			emit(ext.Flush())
			return
		}
		if err != nil {
			yield(nil, err)
			return
		}
	}
}

// inWindow applies the time range filter.
func (c *parseConfig) inWindow(ev Event) bool {
	ts := ev.Time()
	if !c.since.IsZero() && ts.Before(c.since) {
		return false
	}
	if !c.until.IsZero() && !ts.Before(c.until) {
		return false
	}
	return true
}

// ParseFileAll is a convenience function that parses a log file and collects
// all events into a slice. Stops on first error and returns events collected so far.
//
// For large files, consider using ParseFile directly to avoid loading all events
// into memory at once.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]Event, error) {
	events := make([]Event, 0, 256)
	for ev, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// ParseDir parses every main log in dir matching pattern (the default
// pattern when empty), oldest file first. Each file is a separate client
// session and gets a fresh parser.
//
// A file that fails to open or read ends the iteration with that error.
func ParseDir(ctx context.Context, dir, pattern string, opts ...ParseOption) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		files, err := logfinder.ListLogFiles(dir, pattern)
		if err != nil {
			yield(nil, err)
			return
		}
		if len(files) == 0 {
			yield(nil, ErrNoLogFiles)
			return
		}
		for _, file := range files {
			for ev, err := range ParseFile(ctx, file, opts...) {
				if !yield(ev, err) || err != nil {
					return
				}
			}
		}
	}
}
