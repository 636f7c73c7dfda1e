package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeSegment(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":              "resume.pdf",
		"../../etc/passwd":        "passwd",
		`C:\Users\me\My CV.pdf`:   "My_CV.pdf",
		"  ..hidden.pdf ":         "hidden.pdf",
		"":                        "unnamed",
		"Jane Doe (final) v2.pdf": "Jane_Doe_final_v2.pdf",
	}
	for in, want := range cases {
		if got := SafeSegment(in); got != want {
			t.Fatalf("SafeSegment(%q) = %q want %q", in, got, want)
		}
	}
}

func TestSafeSegmentTruncatesKeepingExtension(t *testing.T) {
	got := SafeSegment(strings.Repeat("a", 300) + ".pdf")
	if len(got) != 120 || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected truncation: len=%d %q", len(got), got[len(got)-8:])
	}
}

func TestStem(t *testing.T) {
	if got := Stem("My CV.pdf"); got != "My_CV" {
		t.Fatalf("unexpected stem %q", got)
	}
	if got := Stem("noext"); got != "noext" {
		t.Fatalf("unexpected stem %q", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "out.md")
	if err := WriteFileAtomic(path, strings.NewReader("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello" {
		t.Fatalf("unexpected content %q err=%v", b, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}
