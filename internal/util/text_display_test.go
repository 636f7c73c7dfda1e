package util

import (
	"strings"
	"testing"
)

func TestSnippetFlattensAndTruncates(t *testing.T) {
	in := "provider said:\x00\n\n  rate   limit\texceeded"
	if got := Snippet(in, 100); got != "provider said: rate limit exceeded" {
		t.Fatalf("unexpected snippet %q", got)
	}
	long := strings.Repeat("é", 50)
	got := Snippet(long, 10)
	if got != strings.Repeat("é", 10)+"..." {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
