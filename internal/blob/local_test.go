package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndOpen(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "https://cdn.example.com/blobs/")
	require.NoError(t, err)

	obj, err := s.Put(ctx, "uploads/owner-1/doc.pdf", strings.NewReader("pdf-bytes"), PutOptions{Public: true})
	require.NoError(t, err)
	require.Equal(t, "uploads/owner-1/doc.pdf", obj.Pathname)
	require.Equal(t, "https://cdn.example.com/blobs/uploads/owner-1/doc.pdf", obj.URL)

	b, err := ReadAll(ctx, s, obj.Pathname)
	require.NoError(t, err)
	require.Equal(t, "pdf-bytes", string(b))
}

func TestLocalStoreRespectsOverwriteFlag(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Put(ctx, "a/b.md", strings.NewReader("v1"), PutOptions{})
	require.NoError(t, err)

	_, err = s.Put(ctx, "a/b.md", strings.NewReader("v2"), PutOptions{})
	require.ErrorIs(t, err, ErrExists)

	obj, err := s.Put(ctx, "a/b.md", strings.NewReader("v3"), PutOptions{AllowOverwrite: true})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(obj.URL, "file://"))

	b, err := ReadAll(ctx, s, "a/b.md")
	require.NoError(t, err)
	require.Equal(t, "v3", string(b))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "../escape.txt", strings.NewReader("x"), PutOptions{})
	require.Error(t, err)
	_, err = s.Open(context.Background(), "missing/file")
	require.ErrorIs(t, err, ErrNotFound)
}
