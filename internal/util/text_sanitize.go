package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText drops what Postgres text columns reject or what only adds noise
// to stored model output: NUL and the other C0 controls except tab and line
// breaks, DEL, and replacement characters left by invalid UTF-8.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t':
			return r
		case r < 0x20, r == 0x7f, r == utf8.RuneError:
			return -1
		}
		return r
	}, s))
}
