// Package raster turns a PDF into one image file per page.
package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoPages = errors.New("rasterizer produced no page images")

type Rasterizer interface {
	// Rasterize writes one image per page of pdfPath into outDir.
	Rasterize(ctx context.Context, pdfPath, outDir string) error
}

// PageFile is a rendered page on local disk.
type PageFile struct {
	Path       string
	PageNumber int
}

// Pdftoppm shells out to poppler's pdftoppm. Arguments are always passed as
// an argv array.
type Pdftoppm struct {
	Binary string
	DPI    int
}

func (p Pdftoppm) Rasterize(ctx context.Context, pdfPath, outDir string) error {
	bin := p.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 150
	}
	cmd := exec.CommandContext(ctx, bin, "-r", strconv.Itoa(dpi), "-png", pdfPath, filepath.Join(outDir, "page"))
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return fmt.Errorf("pdftoppm failed: %w: %s", err, msg)
	}
	return nil
}

var pageIndexRe = regexp.MustCompile(`(\d+)\.(?i:png|jpe?g|ppm)$`)

// ListPages returns the rendered page images in dir ordered by the numeric
// page index embedded in each file name, so page-10 sorts after page-9.
func ListPages(dir string) ([]PageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read raster dir: %w", err)
	}
	out := make([]PageFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageIndexRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, PageFile{Path: filepath.Join(dir, e.Name()), PageNumber: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	if len(out) == 0 {
		return nil, ErrNoPages
	}
	return out, nil
}

// PageCount reads the page count declared by the PDF itself.
// The parser panics on some malformed files; that is reported as an error.
func PageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parse pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}
