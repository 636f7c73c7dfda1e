package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"resumeflow/internal/util"
)

// LocalStore keeps objects under a root directory. URLs are built from
// baseURL, or file:// URLs when no base is configured.
type LocalStore struct {
	root    string
	baseURL string
	mu      sync.Mutex
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := util.EnsureDir(abs); err != nil {
		return nil, err
	}
	return &LocalStore{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, path string, body io.Reader, opts PutOptions) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return Object{}, err
	}
	full := filepath.Join(s.root, filepath.FromSlash(p))

	// The exists check and rename must not interleave with another writer.
	s.mu.Lock()
	defer s.mu.Unlock()
	if !opts.AllowOverwrite {
		if _, err := os.Stat(full); err == nil {
			return Object{}, fmt.Errorf("put %s: %w", p, ErrExists)
		}
	}
	if err := util.WriteFileAtomic(full, body); err != nil {
		return Object{}, fmt.Errorf("put %s: %w", p, err)
	}
	return Object{URL: s.urlFor(p, full), Pathname: p}, nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

func (s *LocalStore) urlFor(p, full string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + p
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String()
}
