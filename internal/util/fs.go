package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

var unsafeSegmentChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSegment reduces user input to a single path segment: no separators,
// no traversal, no leading dots.
func SafeSegment(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = unsafeSegmentChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "unnamed"
	}
	if len(name) > 120 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// Stem returns the sanitized file name without its extension.
func Stem(name string) string {
	s := SafeSegment(name)
	if ext := filepath.Ext(s); ext != "" && ext != s {
		s = strings.TrimSuffix(s, ext)
	}
	if s == "" {
		return "unnamed"
	}
	return s
}
