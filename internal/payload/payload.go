// Package payload locates the JSON body inside a record's raw data.
//
// The client nests bodies inconsistently: some records carry the object
// directly, some wrap it in a "payload" or "request" field (often as a
// JSON-encoded string), and some put it under a field named after the
// record. Extract tries each layout in turn.
package payload

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// ErrNoPayload is returned when raw data holds no parseable JSON.
var ErrNoPayload = errors.New("no JSON payload")

const maxDepth = 4

var wrapperKeys = []string{"payload", "request"}

// Extract returns the innermost JSON value for a record named name.
func Extract(raw, name string) (json.RawMessage, bool) {
	data, ok := parse(raw)
	if !ok {
		return nil, false
	}
	return unwrap(data, CamelName(name), 0), true
}

// Decode extracts the payload and unmarshals it into v. Unknown fields are
// ignored.
func Decode(raw, name string, v any) error {
	data, ok := Extract(raw, name)
	if !ok {
		return ErrNoPayload
	}
	return json.Unmarshal(data, v)
}

// parse accepts raw as is, or with embedded line breaks and tabs removed.
func parse(raw string) (json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), true
	}
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t':
			return -1
		}
		return r
	}, raw)
	if json.Valid([]byte(stripped)) {
		return json.RawMessage(stripped), true
	}
	return nil, false
}

func unwrap(data json.RawMessage, field string, depth int) json.RawMessage {
	if depth >= maxDepth || len(data) == 0 || data[0] != '{' {
		return data
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return data
	}
	for _, key := range wrapperKeys {
		if inner, ok := nested(obj, key); ok {
			return unwrap(inner, field, depth+1)
		}
	}
	if field != "" {
		if inner, ok := nested(obj, field); ok {
			return unwrap(inner, field, depth+1)
		}
	}
	return data
}

// nested finds key case-insensitively and returns its value when it is an
// object, or a string that itself holds a JSON object.
func nested(obj map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	for k, v := range obj {
		if !strings.EqualFold(k, key) || len(v) == 0 {
			continue
		}
		switch v[0] {
		case '{':
			return v, true
		case '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, false
			}
			if inner, ok := parse(s); ok && len(inner) > 0 && inner[0] == '{' {
				return inner, true
			}
		}
		return nil, false
	}
	return nil, false
}

// CamelName converts a record name to the field name the client uses for
// its body: separators dropped and the first letter lowered, so
// "GreToClientEvent" becomes "greToClientEvent".
func CamelName(name string) string {
	name = strings.NewReplacer("_", "", ".", "", " ", "").Replace(name)
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}
