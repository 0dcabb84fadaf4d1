package frame

import (
	"strings"
	"time"

	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// Record name used for bare state transitions.
const StateChanged = "StateChanged"

const (
	stateChangedToken = "STATE CHANGED"
	outgoingArrow     = "==>"
	incomingArrow     = "<=="
)

// timestampLayouts are the formats the client writes at the start of the
// marker line, tried in order.
var timestampLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"02.01.2006 15:04:05",
	"2006/01/02 15:04:05",
}

// Decode derives the name, payload and timestamp of a single record. The
// input must start with Marker. It returns false for records that carry
// no recognizable name.
func Decode(rec string) (event.RawLogEvent, bool) {
	rec = strings.TrimPrefix(rec, Marker)
	rec = strings.ReplaceAll(rec, "\r", "")
	lines := strings.Split(rec, "\n")
	first := lines[0]

	ev := event.RawLogEvent{Timestamp: parseTimestamp(first)}

	if i := strings.Index(first, stateChangedToken); i >= 0 {
		j := strings.IndexByte(first[i:], '{')
		if j < 0 {
			return event.RawLogEvent{}, false
		}
		ev.EventName = StateChanged
		ev.RawData = strings.TrimSpace(first[i+j:])
		return ev, true
	}

	if ev, ok := decodeArrow(ev, first, lines[1:]); ok {
		return ev, true
	}

	// Match-direction form: "<ts>: Match to X: GreToClientEvent" with the
	// JSON on the following lines.
	if strings.Contains(first, "Match to ") || strings.Contains(first, " to Match") {
		if i := strings.LastIndex(first, ": "); i >= 0 {
			name := strings.TrimSpace(first[i+2:])
			if name != "" && !strings.ContainsAny(name, " {[") {
				ev.EventName = name
				ev.RawData = joinPayload("", lines[1:])
				return ev, true
			}
		}
	}

	for n := 1; n < len(lines); n++ {
		if ev, ok := decodeArrow(ev, lines[n], lines[n+1:]); ok {
			return ev, true
		}
	}
	return event.RawLogEvent{}, false
}

// decodeArrow handles the outgoing and incoming arrow forms on line.
func decodeArrow(ev event.RawLogEvent, line string, rest []string) (event.RawLogEvent, bool) {
	if i := strings.Index(line, outgoingArrow); i >= 0 {
		name, payload, _ := strings.Cut(strings.TrimSpace(line[i+len(outgoingArrow):]), " ")
		if k := strings.IndexByte(name, '('); k >= 0 {
			name = name[:k]
		}
		if name == "" {
			return ev, false
		}
		ev.EventName = name
		ev.RawData = joinPayload(payload, rest)
		return ev, true
	}
	if i := strings.Index(line, incomingArrow); i >= 0 {
		name, _, _ := strings.Cut(strings.TrimSpace(line[i+len(incomingArrow):]), "(")
		name = strings.TrimSpace(name)
		if name == "" {
			return ev, false
		}
		ev.EventName = name
		ev.RawData = joinPayload("", rest)
		return ev, true
	}
	return ev, false
}

// joinPayload returns head followed by the remaining lines, skipping
// leading blank lines when head is empty.
func joinPayload(head string, rest []string) string {
	head = strings.TrimSpace(head)
	if head == "" {
		for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
			rest = rest[1:]
		}
	}
	var parts []string
	if head != "" {
		parts = append(parts, head)
	}
	parts = append(parts, rest...)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// parseTimestamp parses the text before the first ": " on the marker line,
// or the whole line when it has no such separator. It returns the zero
// time when no known layout matches.
func parseTimestamp(line string) time.Time {
	prefix, _, _ := strings.Cut(line, ": ")
	prefix = strings.TrimSpace(prefix)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, prefix, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
