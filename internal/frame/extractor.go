// Package frame splits the raw byte stream of a client log into records.
package frame

import (
	"bytes"

	"github.com/arenalog/arenalog-go/pkg/arenalog/event"
)

// Marker is the literal prefix that starts every record.
const Marker = "[UnityCrossThreadLogger]"

var marker = []byte(Marker)

// Extractor turns appended bytes into complete records.
// It is not safe for concurrent use; one Extractor belongs to one tailer.
type Extractor struct {
	buf []byte
}

// NewExtractor returns an empty Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Feed appends p to the carry-over buffer and returns every record that
// is now known to be complete, in stream order. Incomplete trailing bytes
// are retained for the next call.
//
// A record ends at the first line break after which its JSON is balanced,
// or at the next marker when it carries no JSON. Bytes between that point
// and the next marker are not part of any record.
func (e *Extractor) Feed(p []byte) []event.RawLogEvent {
	if len(p) > 0 {
		e.buf = append(e.buf, p...)
	}
	var out []event.RawLogEvent
	for {
		start := bytes.Index(e.buf, marker)
		if start < 0 {
			e.keepMarkerPrefix()
			break
		}
		body := e.buf[start:]
		limit := len(body)
		next := bytes.Index(body[len(marker):], marker)
		if next >= 0 {
			limit = len(marker) + next
		}
		end := completeAt(body[:limit])
		if end < 0 && next >= 0 {
			end = limit
		}
		if end < 0 {
			e.buf = body
			break
		}
		if ev, ok := Decode(string(body[:end])); ok {
			out = append(out, ev)
		}
		e.buf = body[end:]
	}
	e.compact()
	return out
}

// Flush returns the pending record, if any, and clears the buffer.
// It is meant for finished files where no more bytes will arrive.
func (e *Extractor) Flush() []event.RawLogEvent {
	start := bytes.Index(e.buf, marker)
	var out []event.RawLogEvent
	if start >= 0 {
		rec := e.buf[start:]
		if end := completeAt(rec); end > 0 {
			rec = rec[:end]
		}
		if ev, ok := Decode(string(rec)); ok {
			out = append(out, ev)
		}
	}
	e.buf = nil
	return out
}

// Pending returns the number of bytes held back in the carry-over buffer.
func (e *Extractor) Pending() int {
	return len(e.buf)
}

// Reset discards all carry-over state.
func (e *Extractor) Reset() {
	e.buf = nil
}

// keepMarkerPrefix drops everything except the longest suffix that could
// still grow into a marker.
func (e *Extractor) keepMarkerPrefix() {
	n := len(marker) - 1
	if n > len(e.buf) {
		n = len(e.buf)
	}
	for ; n > 0; n-- {
		if bytes.HasPrefix(marker, e.buf[len(e.buf)-n:]) {
			break
		}
	}
	e.buf = e.buf[len(e.buf)-n:]
}

// compact copies the retained bytes into a fresh slice so consumed
// history does not stay reachable through the backing array.
func (e *Extractor) compact() {
	if len(e.buf) == 0 {
		e.buf = nil
		return
	}
	e.buf = bytes.Clone(e.buf)
}

// completeAt returns the length of rec up to and including the first line
// break at which its JSON is structurally complete, or -1 if there is none.
func completeAt(rec []byte) int {
	depth, seen := 0, false
	inString, escaped := false, false
	for i := len(marker); i < len(rec); i++ {
		c := rec[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			depth++
			seen = true
		case '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		case '\n':
			if seen && depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
