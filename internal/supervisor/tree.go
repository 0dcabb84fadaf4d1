// Package supervisor runs the long-lived parts of `arenalog tail` under a
// suture tree so that a failing pipeline or worker pool is restarted with
// backoff instead of taking the process down.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behaviour. Zero fields take defaults.
type TreeConfig struct {
	// FailureThreshold is the decayed failure count above which the tree
	// backs off before restarting again.
	FailureThreshold float64
	// FailureDecay is the half-life of a failure, in seconds.
	FailureDecay    float64
	FailureBackoff  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the restart policy used by the CLI.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is a supervisor tree with a fatal-error escape hatch: a service
// that hits an unrecoverable condition reports it through Fatal and the
// whole tree stops with that error.
type Tree struct {
	root   *suture.Supervisor
	logger *slog.Logger
	config TreeConfig

	mu    sync.Mutex
	fatal error
}

// New creates a Tree named name. Supervisor events are logged to logger.
func New(name string, logger *slog.Logger, config TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	handler := &sutureslog.Handler{Logger: logger}
	root := suture.New(name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	})
	return &Tree{root: root, logger: logger, config: config}
}

// Add registers services. They start when Serve is called, or immediately
// if the tree is already running.
func (t *Tree) Add(services ...suture.Service) {
	for _, svc := range services {
		t.root.Add(svc)
	}
}

// Fatal records err as the reason the tree stops and returns an error that
// tells suture to tear the tree down. Services return its result from Serve.
func (t *Tree) Fatal(err error) error {
	t.mu.Lock()
	if t.fatal == nil {
		t.fatal = err
	}
	t.mu.Unlock()
	return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
}

// Serve runs the tree until ctx is cancelled or a service calls Fatal.
// Cancellation is a clean stop and returns nil. Services still running
// after the shutdown timeout are logged by name.
func (t *Tree) Serve(ctx context.Context) error {
	err := t.root.Serve(ctx)
	t.logUnstopped()

	t.mu.Lock()
	fatal := t.fatal
	t.mu.Unlock()
	if fatal != nil {
		return fatal
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (t *Tree) logUnstopped() {
	report, err := t.root.UnstoppedServiceReport()
	if err != nil || len(report) == 0 {
		return
	}
	names := make([]string, 0, len(report))
	for _, u := range report {
		names = append(names, u.Name)
	}
	t.logger.Warn("services did not stop within the shutdown timeout",
		"services", names, "timeout", t.config.ShutdownTimeout)
}

// Func adapts a function to suture.Service.
type Func struct {
	Name string
	Run  func(ctx context.Context) error
}

func (f Func) Serve(ctx context.Context) error { return f.Run(ctx) }
func (f Func) String() string                  { return f.Name }
