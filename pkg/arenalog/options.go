package arenalog

import (
	"log/slog"
	"time"
)

// WatchOption configures a Watcher using the functional options pattern.
type WatchOption func(*watchConfig)

// watchConfig holds internal configuration for the watcher.
type watchConfig struct {
	logDir       string
	logFile      string
	pattern      string
	player       bool
	playerLog    string
	pollInterval time.Duration
	chunkSize    int
	fromStart    bool
	fromEnd      bool
	store        CheckpointStore
	resolver     Resolver
	cardNames    func(grpID int) (string, bool)
	logger       *slog.Logger
	filter       *compiledFilter
}

// defaultWatchConfig returns a watchConfig with sensible defaults.
func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval: time.Second,
		chunkSize:    64 * 1024,
	}
}

// applyWatchOptions applies functional options to a watchConfig.
func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogDir sets the directory holding the main logs. The newest file
// matching the pattern is tailed, and newer files are picked up as the
// client rotates its log.
// If not set, auto-detects from the default client locations.
// Can also be set via ARENALOG_LOGDIR environment variable.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithLogFile tails exactly one main log file. A missing file is a fatal
// error. Overrides WithLogDir.
func WithLogFile(path string) WatchOption {
	return func(c *watchConfig) {
		c.logFile = path
	}
}

// WithPattern sets the glob used to select main log files in the log
// directory. Default: "UTC_Log*.log".
func WithPattern(pattern string) WatchOption {
	return func(c *watchConfig) {
		c.pattern = pattern
	}
}

// WithPlayerLog also tails the player log and emits the player event
// variants. An empty path auto-detects Player.log.
func WithPlayerLog(path string) WatchOption {
	return func(c *watchConfig) {
		c.player = true
		c.playerLog = path
	}
}

// WithPollInterval sets how often files are checked for new bytes.
// Default: 1 second.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.pollInterval = interval
	}
}

// WithChunkSize sets the read buffer size. Default: 64 KiB.
func WithChunkSize(n int) WatchOption {
	return func(c *watchConfig) {
		c.chunkSize = n
	}
}

// WithFromStart reads from offset 0, ignoring saved checkpoints.
func WithFromStart() WatchOption {
	return func(c *watchConfig) {
		c.fromStart = true
		c.fromEnd = false
	}
}

// WithFromEnd only delivers records appended after Watch starts
// (tail -F behavior). Checkpoints are neither read nor written.
func WithFromEnd() WatchOption {
	return func(c *watchConfig) {
		c.fromEnd = true
		c.fromStart = false
	}
}

// WithCheckpointStore persists read offsets so a restarted Watcher resumes
// where the last one stopped.
func WithCheckpointStore(store CheckpointStore) WatchOption {
	return func(c *watchConfig) {
		c.store = store
	}
}

// WithResolver receives the card lookups parsers request. Submission never
// blocks. If the resolver also implements CardNamer, resolved names are
// attached to later events.
func WithResolver(r Resolver) WatchOption {
	return func(c *watchConfig) {
		c.resolver = r
	}
}

// WithCardNames sets the name lookup used to decorate events.
// Takes precedence over a CardNamer resolver.
func WithCardNames(names func(grpID int) (string, bool)) WatchOption {
	return func(c *watchConfig) {
		c.cardNames = names
	}
}

// WithLogger sets the slog logger for debug output.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// WithIncludeTypes filters events to only include the specified types.
// If called multiple times, only the last call takes effect.
func WithIncludeTypes(types ...EventType) WatchOption {
	return func(c *watchConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.include = typeSet(types)
	}
}

// WithExcludeTypes filters out events of the specified types.
// Exclude takes precedence over include.
// If called multiple times, only the last call takes effect.
func WithExcludeTypes(types ...EventType) WatchOption {
	return func(c *watchConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.exclude = typeSet(types)
	}
}

// WithFilter sets both include and exclude type filters.
// Exclude takes precedence over include.
func WithFilter(include, exclude []EventType) WatchOption {
	return func(c *watchConfig) {
		c.filter = newCompiledFilter(include, exclude)
	}
}

// ParseOption configures ParseFile behavior.
type ParseOption func(*parseConfig)

// parseConfig holds internal configuration for parsing.
type parseConfig struct {
	filter    *compiledFilter
	player    bool
	cardNames func(grpID int) (string, bool)
	resolver  Resolver
	since     time.Time
	until     time.Time
	chunkSize int
}

// applyParseOptions applies functional options to a parseConfig.
func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{chunkSize: 64 * 1024}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseIncludeTypes filters events to only include the specified types.
func WithParseIncludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.include = typeSet(types)
	}
}

// WithParseExcludeTypes filters out events of the specified types.
func WithParseExcludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		if c.filter == nil {
			c.filter = &compiledFilter{}
		}
		c.filter.exclude = typeSet(types)
	}
}

// WithParseFilter sets both include and exclude type filters for parsing.
func WithParseFilter(include, exclude []EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter = newCompiledFilter(include, exclude)
	}
}

// WithParsePlayerLog parses the file as a player log, producing the player
// event variants instead of the main ones.
func WithParsePlayerLog() ParseOption {
	return func(c *parseConfig) {
		c.player = true
	}
}

// WithParseCardNames sets the name lookup used to decorate events.
func WithParseCardNames(names func(grpID int) (string, bool)) ParseOption {
	return func(c *parseConfig) {
		c.cardNames = names
	}
}

// WithParseResolver receives the card lookups parsers request.
func WithParseResolver(r Resolver) ParseOption {
	return func(c *parseConfig) {
		c.resolver = r
	}
}

// WithParseTimeRange filters events to only include those within the time range.
// since is inclusive, until is exclusive.
// Zero values are ignored (no filtering for that boundary).
func WithParseTimeRange(since, until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
		c.until = until
	}
}

// WithParseChunkSize sets the read buffer size. Default: 64 KiB.
func WithParseChunkSize(n int) ParseOption {
	return func(c *parseConfig) {
		c.chunkSize = n
	}
}
