package util

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText drops what Postgres text columns and markdown renderers
// reject: NUL and other control characters, byte-order marks, zero-width
// characters and invalid UTF-8. Line endings become \n.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\t':
			b.WriteRune(ch)
		case ch == '\r':
			b.WriteByte('\n')
		case ch < 0x20 || ch == 0x7f:
		case ch == '\ufeff', ch == '\u200b', ch == '\u200c', ch == '\u200d':
		case ch == utf8.RuneError:
		default:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}

// StripCodeFence removes a markdown code fence wrapping the whole of s,
// along with its language tag. Fences inside the text are kept.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if len(t) < 6 || !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") {
		return t
	}
	body := strings.TrimSuffix(t[3:], "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 && !strings.ContainsAny(strings.TrimSpace(body[:i]), " \t{[") {
		body = body[i+1:]
	}
	return strings.TrimSpace(body)
}
