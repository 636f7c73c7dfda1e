// Package blob stores pipeline artifacts: uploaded documents, page images and
// consolidated markdown.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"resumeflow/internal/config"
)

var (
	ErrExists   = errors.New("blob already exists")
	ErrNotFound = errors.New("blob not found")
)

type PutOptions struct {
	ContentType    string
	Public         bool
	AllowOverwrite bool
}

type Object struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

type Store interface {
	Put(ctx context.Context, path string, body io.Reader, opts PutOptions) (Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// ReadAll reads a whole object into memory.
func ReadAll(ctx context.Context, s Store, path string) ([]byte, error) {
	rc, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return b, nil
}

func NewFromConfig(ctx context.Context, cfg config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.BlobBackend)) {
	case "", "local":
		return NewLocalStore(cfg.BlobLocalRoot, cfg.BlobPublicBaseURL)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.BlobBackend)
	}
}

func cleanPath(path string) (string, error) {
	p := strings.Trim(strings.TrimSpace(path), "/")
	if p == "" {
		return "", fmt.Errorf("empty blob path")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid blob path %q", path)
		}
	}
	return p, nil
}
