package arenalog

import (
	"github.com/arenalog/arenalog-go/internal/checkpoint"
	"github.com/arenalog/arenalog-go/internal/logfinder"
	"github.com/arenalog/arenalog-go/internal/resolve"
)

// Sentinel errors returned by this package.
var (
	// ErrLogDirNotFound is returned when the client log directory
	// cannot be found or accessed.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrNoLogFiles is returned when no log files are found
	// in the specified directory.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrCheckpointNotFound is returned by a CheckpointStore with no
	// saved state for a file.
	ErrCheckpointNotFound = checkpoint.ErrNotFound

	// ErrCardNotFound is returned when no source knows a card id.
	ErrCardNotFound = resolve.ErrNotFound
)
