package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Handler is an slog.Handler that writes through a zerolog.Logger.
type Handler struct {
	logger zerolog.Logger
	attrs  []slog.Attr
	groups []string
}

// NewHandler wraps logger.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	floor := h.logger.GetLevel()
	if g := zerolog.GlobalLevel(); g > floor {
		floor = g
	}
	return toZerolog(level) >= floor
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	e := h.logger.WithLevel(toZerolog(r.Level))
	if e == nil {
		return nil
	}
	for _, a := range h.attrs {
		e = addAttr(e, a, h.groups)
	}
	r.Attrs(func(a slog.Attr) bool {
		e = addAttr(e, a, h.groups)
		return true
	})
	e.Msg(r.Message)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string(nil), h.groups...), name)
	return &c
}

func addAttr(e *zerolog.Event, a slog.Attr, groups []string) *zerolog.Event {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return e
	}
	key := a.Key
	for i := len(groups) - 1; i >= 0; i-- {
		key = groups[i] + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return e.Str(key, a.Value.String())
	case slog.KindInt64:
		return e.Int64(key, a.Value.Int64())
	case slog.KindUint64:
		return e.Uint64(key, a.Value.Uint64())
	case slog.KindFloat64:
		return e.Float64(key, a.Value.Float64())
	case slog.KindBool:
		return e.Bool(key, a.Value.Bool())
	case slog.KindDuration:
		return e.Dur(key, a.Value.Duration())
	case slog.KindTime:
		return e.Time(key, a.Value.Time())
	case slog.KindGroup:
		sub := append(append([]string(nil), groups...), a.Key)
		for _, ga := range a.Value.Group() {
			e = addAttr(e, ga, sub)
		}
		return e
	default:
		if err, ok := a.Value.Any().(error); ok {
			return e.AnErr(key, err)
		}
		return e.Interface(key, a.Value.Any())
	}
}

func toZerolog(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
