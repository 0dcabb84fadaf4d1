// Package logging configures the process-wide zerolog logger and bridges
// it to log/slog, which the library packages log through.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string
	// Format is json or console. Default: console.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	global = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Init configures the global logger and returns it.
func Init(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return zerolog.Logger{}, fmt.Errorf("unknown log format %q (want json or console)", cfg.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	mu.Lock()
	global = logger
	mu.Unlock()
	return logger, nil
}

// ParseLevel converts a level name. An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Slog returns an slog.Logger writing to the global zerolog logger.
func Slog() *slog.Logger {
	return slog.New(NewHandler(Logger()))
}
