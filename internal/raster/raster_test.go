package raster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListPagesSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "page-9.png", "notes.txt", "page-3.PNG"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	pages, err := ListPages(dir)
	require.NoError(t, err)

	got := make([]int, 0, len(pages))
	for _, p := range pages {
		got = append(got, p.PageNumber)
	}
	require.Equal(t, []int{1, 2, 3, 9, 10}, got)
	require.Equal(t, filepath.Join(dir, "page-10.png"), pages[4].Path)
}

func TestListPagesZeroPadded(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-011.png", "page-002.png", "page-100.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	pages, err := ListPages(dir)
	require.NoError(t, err)
	require.Equal(t, 2, pages[0].PageNumber)
	require.Equal(t, 11, pages[1].PageNumber)
	require.Equal(t, 100, pages[2].PageNumber)
}

func TestListPagesEmpty(t *testing.T) {
	_, err := ListPages(t.TempDir())
	require.ErrorIs(t, err, ErrNoPages)
}

func TestPdftoppmMissingBinary(t *testing.T) {
	p := Pdftoppm{Binary: filepath.Join(t.TempDir(), "no-such-pdftoppm")}
	err := p.Rasterize(context.Background(), "in.pdf", t.TempDir())
	require.Error(t, err)
}

func TestPageCountRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o644))
	_, err := PageCount(path)
	require.Error(t, err)
}
