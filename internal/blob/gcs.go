package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, path string, body io.Reader, opts PutOptions) (Object, error) {
	p, err := cleanPath(path)
	if err != nil {
		return Object{}, err
	}
	obj := s.client.Bucket(s.bucket).Object(p)
	if !opts.AllowOverwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return Object{}, s.writeErr(p, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, s.writeErr(p, err)
	}
	if opts.Public {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			return Object{}, fmt.Errorf("set public acl %s: %w", p, err)
		}
	}
	return Object{URL: fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, p), Pathname: p}, nil
}

func (s *GCSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(p).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("open %s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return r, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) writeErr(p string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("put %s: %w", p, ErrExists)
	}
	return fmt.Errorf("put %s: %w", p, err)
}
