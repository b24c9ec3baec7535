// Package llmjson is the parsing boundary between free-form model output
// and typed structures. Every structured-output call site decodes through
// this package and supplies its own explicit fallback policy when decoding
// fails; parse failures are a recoverable local condition, never a crash.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no JSON object could be located in the text.
var ErrNoJSON = errors.New("no JSON object found in model output")

// Extract returns the first JSON object embedded in s. It prefers a fenced
// ```json block, then a bare fenced block, then the first balanced
// top-level object.
func Extract(s string) (string, error) {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if body := strings.TrimSpace(rest); body != "" {
			return body, nil
		}
	}

	if strings.HasPrefix(s, "```") {
		body := strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(body, "```"); end >= 0 {
			body = body[:end]
		}
		if body = strings.TrimSpace(body); body != "" {
			return body, nil
		}
	}

	if obj := firstObject(s); obj != "" {
		return obj, nil
	}
	return "", ErrNoJSON
}

// Decode extracts and unmarshals the first JSON object in s into T.
func Decode[T any](s string) (T, error) {
	var v T
	body, err := Extract(s)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return v, err
	}
	return v, nil
}

// firstObject scans for the first balanced {...} span, ignoring braces
// inside string literals.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
