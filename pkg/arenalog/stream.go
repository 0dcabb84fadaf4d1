package arenalog

import (
	"log/slog"

	"github.com/arenalog/arenalog-go/internal/metrics"
	"github.com/arenalog/arenalog-go/internal/parser"
	"github.com/arenalog/arenalog-go/internal/playerparser"
)

// parseFunc turns one record into events and card lookups. Each stream
// owns its own parseFunc; the parsers behind it are not safe for
// concurrent use.
type parseFunc func(rec RawLogEvent) ([]Event, []Request)

func newParseFunc(player bool, names func(int) (string, bool), logger *slog.Logger) parseFunc {
	if player {
		opts := []playerparser.Option{playerparser.WithLogger(logger)}
		if names != nil {
			opts = append(opts, playerparser.WithCardNames(names))
		}
		p := playerparser.New(opts...)
		return func(rec RawLogEvent) ([]Event, []Request) {
			res := p.Parse(rec)
			return res.Events, res.Lookups
		}
	}
	opts := []parser.Option{parser.WithLogger(logger)}
	if names != nil {
		opts = append(opts, parser.WithCardNames(names))
	}
	p := parser.New(opts...)
	return func(rec RawLogEvent) ([]Event, []Request) {
		res := p.Parse(rec)
		return res.Events, res.Lookups
	}
}

// cardNames picks the name lookup: an explicit function first, then the
// resolver if it can answer.
func cardNames(names func(int) (string, bool), r Resolver) func(int) (string, bool) {
	if names != nil {
		return names
	}
	if namer, ok := r.(CardNamer); ok {
		return namer.Name
	}
	return nil
}

// submit hands lookups to r without blocking.
func submit(r Resolver, reqs []Request, logger *slog.Logger) {
	if r == nil {
		return
	}
	for _, req := range reqs {
		if !r.TrySubmit(req) {
			logger.Debug("card lookup dropped", "key", req.Key, "context", req.Context)
		}
	}
}

// keep applies the type filter, counting what passes.
func keep(ev Event, f *compiledFilter) bool {
	if !f.Allows(ev.Kind()) {
		return false
	}
	metrics.EventsEmitted.WithLabelValues(string(ev.Kind())).Inc()
	return true
}
