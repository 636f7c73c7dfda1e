package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"resumeflow/internal/blob"
	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/raster"
	"resumeflow/internal/util"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type SplitResult struct {
	Images        []models.PageImage `json:"images"`
	TotalPages    int                `json:"total_pages"`
	ExpectedPages int                `json:"expected_pages"`
	MissingPages  []int              `json:"missing_pages,omitempty"`
}

type Splitter struct {
	store       blob.Store
	rasterizer  raster.Rasterizer
	pageCount   func(path string) (int, error)
	scratchRoot string
	concurrency int
	log         zerolog.Logger
}

func NewSplitter(store blob.Store, rasterizer raster.Rasterizer, scratchRoot string, concurrency int, log zerolog.Logger) *Splitter {
	if concurrency <= 0 {
		concurrency = 8
	}
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Splitter{
		store:       store,
		rasterizer:  rasterizer,
		pageCount:   raster.PageCount,
		scratchRoot: scratchRoot,
		concurrency: concurrency,
		log:         log.With().Str("stage", string(models.StageSplit)).Logger(),
	}
}

// Split renders every page of doc to an image and uploads the images. Pages
// whose upload fails are skipped and reported in MissingPages. The scratch
// directory is removed on every return path.
func (s *Splitter) Split(ctx context.Context, doc models.DocumentReference) (SplitResult, error) {
	log := s.log.With().Str("owner_id", doc.OwnerID).Str("document", doc.StoragePath).Logger()

	scratch := filepath.Join(s.scratchRoot, "resumeflow-split-"+uuid.NewString())
	if err := util.EnsureDir(scratch); err != nil {
		return SplitResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Warn().Err(err).Str("scratch", scratch).Msg("scratch cleanup failed")
		}
	}()

	src := filepath.Join(scratch, "source.pdf")
	if err := s.fetch(ctx, doc.StoragePath, src); err != nil {
		return SplitResult{}, err
	}
	expected, err := s.pageCount(src)
	if err != nil {
		log.Warn().Err(err).Msg("could not read declared page count")
		expected = 0
	}

	outDir := filepath.Join(scratch, "pages")
	if err := util.EnsureDir(outDir); err != nil {
		return SplitResult{}, err
	}
	if err := s.rasterizer.Rasterize(ctx, src, outDir); err != nil {
		return SplitResult{}, fmt.Errorf("rasterize document: %w", err)
	}
	files, err := raster.ListPages(outDir)
	if err != nil {
		return SplitResult{}, fmt.Errorf("list rendered pages: %w", err)
	}

	prefix := pagePrefix(doc)
	uploaded := make([]*models.PageImage, len(files))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			img, err := s.uploadPage(ctx, prefix, f)
			if err != nil {
				metrics.IncPageUploadFailure()
				log.Warn().Err(err).Int("page", f.PageNumber).Msg("page upload failed, skipping")
				return nil
			}
			uploaded[i] = &img
			return nil
		})
	}
	_ = g.Wait()

	images := make([]models.PageImage, 0, len(files))
	have := make(map[int]bool, len(files))
	for _, img := range uploaded {
		if img != nil {
			images = append(images, *img)
			have[img.PageNumber] = true
		}
	}
	if len(images) == 0 {
		return SplitResult{}, ErrNoPagesUploaded
	}

	last := files[len(files)-1].PageNumber
	if expected > last {
		last = expected
	}
	var missing []int
	for n := 1; n <= last; n++ {
		if !have[n] {
			missing = append(missing, n)
		}
	}
	if expected == 0 {
		expected = last
	}
	log.Info().Int("pages", len(images)).Int("expected", expected).Ints("missing", missing).Msg("document split")
	return SplitResult{Images: images, TotalPages: len(images), ExpectedPages: expected, MissingPages: missing}, nil
}

func (s *Splitter) fetch(ctx context.Context, storagePath, dst string) error {
	rc, err := s.store.Open(ctx, storagePath)
	if err != nil {
		return fmt.Errorf("fetch source document: %w", err)
	}
	defer rc.Close()
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create scratch source: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("copy source document: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close scratch source: %w", err)
	}
	return nil
}

func (s *Splitter) uploadPage(ctx context.Context, prefix string, f raster.PageFile) (models.PageImage, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return models.PageImage{}, fmt.Errorf("open page %d: %w", f.PageNumber, err)
	}
	defer file.Close()
	ext := strings.ToLower(filepath.Ext(f.Path))
	obj, err := s.store.Put(ctx, fmt.Sprintf("%s/page-%04d%s", prefix, f.PageNumber, ext), file, blob.PutOptions{
		ContentType:    imageContentType(ext),
		Public:         true,
		AllowOverwrite: true,
	})
	if err != nil {
		return models.PageImage{}, fmt.Errorf("upload page %d: %w", f.PageNumber, err)
	}
	return models.PageImage{URL: obj.URL, StoragePath: obj.Pathname, PageNumber: f.PageNumber}, nil
}

// pagePrefix is derived from the stored document path, which is already
// unique per upload, so a replayed split overwrites its own pages only.
func pagePrefix(doc models.DocumentReference) string {
	return "pages/" + util.SafeSegment(doc.OwnerID) + "/" + util.Stem(path.Base(doc.StoragePath))
}

func imageContentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".ppm":
		return "image/x-portable-pixmap"
	default:
		return "image/png"
	}
}
