// Package extract pulls a JSON object out of free-form model output.
//
// Models wrap JSON in markdown fences or surround it with prose. Extract tries
// progressively looser candidates and falls back to a caller-supplied default
// when none of them decodes.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	jsonFence  = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n\\s*```")
	plainFence = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n\\s*```")
	braceSpan  = regexp.MustCompile(`(?s)\{.*\}`)
)

var (
	ErrNoJSON    = errors.New("no decodable json in model output")
	ErrNotObject = errors.New("model output is not a json object")
)

// Result is either a decoded value or the fallback. Err records why decoding
// failed and is only meant for logging.
type Result[T any] struct {
	Value    T
	Fallback bool
	Err      error
}

// Extract decodes the first JSON object found in raw into T. Candidates that
// are not objects, such as null or a bare array, are skipped. It never panics.
func Extract[T any](raw string, fallback T) Result[T] {
	var lastErr error
	for _, c := range Candidates(raw) {
		if !strings.HasPrefix(c, "{") {
			if lastErr == nil {
				lastErr = ErrNotObject
			}
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(c), &v); err != nil {
			lastErr = err
			continue
		}
		return Result[T]{Value: v}
	}
	if lastErr == nil {
		lastErr = ErrNoJSON
	}
	return Result[T]{Value: fallback, Fallback: true, Err: lastErr}
}

// Candidates lists the substrings Extract attempts, in order: the trimmed
// input, a ```json fence, a bare ``` fence, then the first-brace to last-brace span.
func Candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := []string{raw}
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		out = appendUnique(out, strings.TrimSpace(m[1]))
	}
	if m := plainFence.FindStringSubmatch(raw); m != nil {
		out = appendUnique(out, strings.TrimSpace(m[1]))
	}
	if m := braceSpan.FindString(raw); m != "" {
		out = appendUnique(out, m)
	}
	if s := stripCodeFence(raw); s != "" {
		out = appendUnique(out, s)
	}
	return out
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
