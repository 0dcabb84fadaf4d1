// Package logfinder locates the game client's log directory and files.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "ARENALOG_LOGDIR"

// DefaultPattern matches the per-session main logs the client writes.
const DefaultPattern = "UTC_Log*.log"

// PlayerLogName is the file name of the player log.
const PlayerLogName = "Player.log"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFiles     = errors.New("no log files found")
)

// clientDir returns the per-user client data directory, or "" if it cannot
// be determined on this platform.
func clientDir() string {
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		// LocalLow is a sibling of Local
		return filepath.Join(filepath.Dir(localAppData), "LocalLow", "Wizards Of The Coast", "MTGA")
	}
	if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
		return filepath.Join(userProfile, "AppData", "LocalLow", "Wizards Of The Coast", "MTGA")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Library", "Logs", "Wizards Of The Coast", "MTGA")
	}
	return ""
}

// DefaultLogDirs returns candidate main log directories in priority order.
func DefaultLogDirs() []string {
	base := clientDir()
	if base == "" {
		return nil
	}
	return []string{
		filepath.Join(base, "Logs", "Logs"),
		filepath.Join(base, "Logs"),
		base,
	}
}

// FindLogDir returns the directory holding main log files that match
// pattern (DefaultPattern when empty).
//
// Priority:
//  1. explicit (if non-empty)
//  2. ARENALOG_LOGDIR environment variable
//  3. Auto-detect from DefaultLogDirs()
//
// Returns ErrLogDirNotFound if no valid directory is found.
// The returned path has symlinks resolved.
func FindLogDir(explicit, pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if explicit != "" {
		if resolved := resolveAndValidateLogDir(explicit, pattern); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: specified directory is invalid or contains no log files", ErrLogDirNotFound)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveAndValidateLogDir(envDir, pattern); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	for _, dir := range DefaultLogDirs() {
		if resolved := resolveAndValidateLogDir(dir, pattern); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// FindPlayerLog returns the path of the player log. An explicit path is
// returned as is when it exists.
func FindPlayerLog(explicit string) (string, error) {
	candidates := []string{explicit}
	if explicit == "" {
		candidates = nil
		if base := clientDir(); base != "" {
			candidates = append(candidates, filepath.Join(base, PlayerLogName))
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", ErrNoLogFiles
}

type logFile struct {
	path    string
	modTime time.Time
}

// listLogFiles returns files in dir matching pattern, newest first.
func listLogFiles(dir, pattern string) ([]logFile, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("globbing log files: %w", err)
	}
	files := make([]logFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, logFile{path: m, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.After(files[j].modTime)
		}
		return files[i].path > files[j].path
	})
	return files, nil
}

// FindLatestLogFile returns the path to the most recently modified file in
// dir matching pattern (DefaultPattern when empty).
//
// Returns ErrNoLogFiles if no log files are found.
func FindLatestLogFile(dir, pattern string) (string, error) {
	files, err := listLogFiles(dir, pattern)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoLogFiles
	}
	return files[0].path, nil
}

// ListLogFiles returns the files in dir matching pattern (DefaultPattern
// when empty), oldest first.
func ListLogFiles(dir, pattern string) ([]string, error) {
	files, err := listLogFiles(dir, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[len(files)-1-i] = f.path
	}
	return out, nil
}

// NewerLogFile reports whether a file other than current is now the newest
// match in dir. current is compared by cleaned path.
func NewerLogFile(dir, pattern, current string) (string, bool, error) {
	newest, err := FindLatestLogFile(dir, pattern)
	if err != nil {
		return "", false, err
	}
	if filepath.Clean(newest) == filepath.Clean(current) {
		return "", false, nil
	}
	cur, err := os.Stat(current)
	if err == nil {
		next, err := os.Stat(newest)
		if err != nil || !next.ModTime().After(cur.ModTime()) {
			return "", false, nil
		}
	}
	return newest, true, nil
}

// resolveAndValidateLogDir resolves symlinks and checks that the directory
// holds at least one matching file. Returns "" if not.
func resolveAndValidateLogDir(dir, pattern string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}

	matches, err := filepath.Glob(filepath.Join(resolved, pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}

	return resolved
}
