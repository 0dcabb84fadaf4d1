package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/arenalog/arenalog-go/internal/cardcache"
	"github.com/arenalog/arenalog-go/internal/config"
	"github.com/arenalog/arenalog-go/internal/logfinder"
	"github.com/arenalog/arenalog-go/pkg/arenalog"
)

var (
	// parse flags
	parseLogDir       string
	parsePattern      string
	parsePlayer       bool
	parseIncludeTypes []string
	parseExcludeTypes []string
	parseSince        string
	parseUntil        string
	parseFormat       string
	parseOutput       string
	parseNoCache      bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse MTG Arena log files (batch mode)",
	Long: `Parse finished MTG Arena log files and output events.

Unlike 'tail', this command reads files once without following them. With
no file arguments every main log in the log directory is parsed, oldest
first. Files ending in .gz are decompressed.

Card names already in the local card cache are filled in; no network
lookups are made.

Examples:
  # Parse all logs in the auto-detected directory
  arenalog parse

  # Parse specific files, including an archived one
  arenalog parse "UTC_Log - 01-15-2024 19.29.00.log" old.log.gz

  # Parse Player.log
  arenalog parse --player

  # Filter by time range
  arenalog parse --since "2024-01-15T12:00:00Z" --until "2024-01-16T00:00:00Z"

  # Write compressed JSON Lines to a file
  arenalog parse --output events.jsonl.gz`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseLogDir, "log-dir", "d", "",
		"MTG Arena log directory (auto-detected if not specified)")
	parseCmd.Flags().StringVar(&parsePattern, "pattern", "",
		"Glob for main log file names (default UTC_Log*.log)")
	parseCmd.Flags().BoolVarP(&parsePlayer, "player", "p", false,
		"Parse input as Player.log (auto-detected when no files are given)")
	parseCmd.Flags().StringSliceVar(&parseIncludeTypes, "include-types", nil,
		"Event types to include (comma-separated, e.g. draft_pick,deck_submitted)")
	parseCmd.Flags().StringSliceVar(&parseExcludeTypes, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	parseCmd.Flags().StringVar(&parseSince, "since", "",
		"Only events at/after timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	parseCmd.Flags().StringVar(&parseUntil, "until", "",
		"Only events before timestamp (RFC3339 format)")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "jsonl",
		"Output format: jsonl, pretty")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "",
		"Write events to this file instead of stdout (gzip when it ends in .gz)")
	parseCmd.Flags().BoolVar(&parseNoCache, "no-cache", false,
		"Do not read card names from the card cache")

	registerCompletions(parseCmd, parseTypes)
}

func runParse(cmd *cobra.Command, args []string) (err error) {
	if !ValidFormats[parseFormat] {
		return fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", parseFormat)
	}
	includes, excludes, err := eventFilter(parseIncludeTypes, parseExcludeTypes)
	if err != nil {
		return err
	}
	sinceTime, untilTime, err := parseTimeRange(parseSince, parseUntil)
	if err != nil {
		return err
	}

	cfg := currentSettings()
	ctx, stop := signalContext(cmd)
	defer stop()

	opts := []arenalog.ParseOption{arenalog.WithParseChunkSize(cfg.ChunkSize)}
	if len(includes) > 0 || len(excludes) > 0 {
		opts = append(opts, arenalog.WithParseFilter(includes, excludes))
	}
	if !sinceTime.IsZero() || !untilTime.IsZero() {
		opts = append(opts, arenalog.WithParseTimeRange(sinceTime, untilTime))
	}
	if parsePlayer {
		opts = append(opts, arenalog.WithParsePlayerLog())
	}
	if !parseNoCache {
		if _, statErr := os.Stat(cfg.Cache.Path); statErr == nil {
			cache, err := cardcache.Open(cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer cache.Close()
			opts = append(opts, arenalog.WithParseCardNames(cachedNames(ctx, cache)))
		}
	}

	events, err := parseSource(ctx, cfg, args, opts)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(cmd.OutOrStdout(), parseOutput)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); err == nil {
			err = cerr
		}
	}()

	printer, err := NewPrinter(parseFormat, out)
	if err != nil {
		return err
	}
	for ev, err := range events {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("parse error: %w", err)
		}
		if err := printer.Print(ev); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// parseSource picks what to read: the named files in order, the player
// log, or every main log in the log directory.
func parseSource(ctx context.Context, cfg *config.Config, files []string, opts []arenalog.ParseOption) (iter.Seq2[arenalog.Event, error], error) {
	if len(files) > 0 {
		return parseFiles(ctx, files, opts), nil
	}
	if parsePlayer {
		path, err := logfinder.FindPlayerLog(cfg.PlayerLog)
		if err != nil {
			return nil, err
		}
		return arenalog.ParseFile(ctx, path, opts...), nil
	}
	pattern := firstNonEmpty(parsePattern, cfg.Pattern)
	dir, err := logfinder.FindLogDir(firstNonEmpty(parseLogDir, cfg.LogDir), pattern)
	if err != nil {
		return nil, err
	}
	return arenalog.ParseDir(ctx, dir, pattern, opts...), nil
}

// parseFiles parses each file with a fresh parser, stopping at the first error.
func parseFiles(ctx context.Context, files []string, opts []arenalog.ParseOption) iter.Seq2[arenalog.Event, error] {
	return func(yield func(arenalog.Event, error) bool) {
		for _, file := range files {
			for ev, err := range arenalog.ParseFile(ctx, file, opts...) {
				if !yield(ev, err) || err != nil {
					return
				}
			}
		}
	}
}

// openOutput returns w itself for an empty path, or the named file,
// gzip-compressed when it ends in ".gz". The close func flushes and closes.
func openOutput(w io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, f.Close, nil
	}
	gz := gzip.NewWriter(f)
	return gz, func() error {
		return errors.Join(gz.Close(), f.Close())
	}, nil
}

// cachedNames looks card names up in the durable cache only.
func cachedNames(ctx context.Context, cache *cardcache.Store) func(int) (string, bool) {
	return func(grpID int) (string, bool) {
		c, err := cache.Get(ctx, grpID)
		if err != nil || c.Name == "" {
			return "", false
		}
		return c.Name, true
	}
}

// parseTimeRange parses since and until strings into time.Time values.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	var sinceTime, untilTime time.Time
	var err error

	if since != "" {
		sinceTime, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}
	if until != "" {
		untilTime, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if !sinceTime.IsZero() && !untilTime.IsZero() && sinceTime.After(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}
	return sinceTime, untilTime, nil
}
