package main

import (
	"fmt"
	"strings"

	"github.com/arenalog/arenalog-go/pkg/arenalog"
	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// ValidEventTypeNames returns a sorted list of valid event type names.
// Delegates to event.TypeNames() as the single source of truth.
func ValidEventTypeNames() []string {
	return event.TypeNames()
}

// NormalizeEventTypes converts CLI string values to an arenalog.EventType slice.
// It handles case-insensitivity, whitespace trimming, and duplicate removal.
func NormalizeEventTypes(values []string) ([]arenalog.EventType, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]arenalog.EventType, 0, len(values))
	seen := make(map[arenalog.EventType]struct{})

	for _, raw := range values {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			return nil, fmt.Errorf("empty event type provided (input: %q); valid types: %s", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		t, ok := event.ParseType(name)
		if !ok {
			return nil, fmt.Errorf("unknown event type %q (valid: %s)", raw, strings.Join(ValidEventTypeNames(), ", "))
		}

		if _, dup := seen[t]; dup {
			continue // ignore duplicates silently
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}

	return result, nil
}

// RejectOverlap returns an error if any event type is in both includes and excludes.
func RejectOverlap(includes, excludes []arenalog.EventType) error {
	ex := make(map[arenalog.EventType]struct{}, len(excludes))
	for _, t := range excludes {
		ex[t] = struct{}{}
	}
	for _, t := range includes {
		if _, ok := ex[t]; ok {
			return fmt.Errorf("event type %q cannot be both included and excluded", t)
		}
	}
	return nil
}

// eventFilter normalizes both type lists and checks they don't overlap.
func eventFilter(include, exclude []string) ([]arenalog.EventType, []arenalog.EventType, error) {
	includes, err := NormalizeEventTypes(include)
	if err != nil {
		return nil, nil, err
	}
	excludes, err := NormalizeEventTypes(exclude)
	if err != nil {
		return nil, nil, err
	}
	if err := RejectOverlap(includes, excludes); err != nil {
		return nil, nil, err
	}
	return includes, excludes, nil
}
