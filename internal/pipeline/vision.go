package pipeline

import (
	"context"
	"fmt"
	"path"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"resumeflow/internal/blob"
	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/providers"
	"resumeflow/internal/util"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// visionPromptVersion is part of the page cache key. Bump it whenever
// visionPrompt changes so stale cached pages are not reused.
const visionPromptVersion = "v2"

const visionPrompt = `Transcribe this résumé page into clean GitHub-flavoured markdown.
Keep every piece of text: names, contact details, dates, job titles, companies, bullet points and links.
Use headings for sections, lists for bullet points and tables only where the page uses a table.
Do not summarize, translate or add commentary. Output only the markdown.`

const (
	confidenceComplete  = 1.0
	confidenceTruncated = 0.7
)

type VisionOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	// OnBatch is called after each batch with the number of pages done.
	OnBatch func(done, total int)
}

type VisionResult struct {
	Pages []models.PageExtractionResult
	Calls []CallRecord
}

type VisionExtractor struct {
	store    blob.Store
	provider providers.VisionProvider
	cache    PageCache
	now      func() time.Time
	log      zerolog.Logger
}

// NewVisionExtractor builds the extractor. cache may be nil.
func NewVisionExtractor(store blob.Store, provider providers.VisionProvider, cache PageCache, log zerolog.Logger) *VisionExtractor {
	return &VisionExtractor{
		store:    store,
		provider: provider,
		cache:    cache,
		now:      time.Now,
		log:      log.With().Str("stage", string(models.StageLLMProcessing)).Logger(),
	}
}

// Extract runs every page through the vision model in fixed-size batches.
// A page that fails becomes a degraded result instead of failing the stage;
// only an empty input or a cancelled context is fatal.
func (v *VisionExtractor) Extract(ctx context.Context, images []models.PageImage, opts VisionOptions) (VisionResult, error) {
	if len(images) == 0 {
		return VisionResult{}, ErrNoPageImages
	}
	size := opts.BatchSize
	if size <= 0 {
		size = 5
	}

	pages := make([]models.PageExtractionResult, 0, len(images))
	var calls []CallRecord
	for start := 0; start < len(images); start += size {
		if start > 0 {
			if err := sleepCtx(ctx, opts.BatchDelay); err != nil {
				return VisionResult{}, fmt.Errorf("vision extraction interrupted: %w", err)
			}
		}
		end := min(start+size, len(images))
		res, recs := v.processBatch(ctx, images[start:end])
		pages = append(pages, res...)
		calls = append(calls, recs...)
		v.log.Debug().Int("done", end).Int("total", len(images)).Msg("vision batch finished")
		if opts.OnBatch != nil {
			opts.OnBatch(end, len(images))
		}
	}
	if err := ctx.Err(); err != nil {
		return VisionResult{}, fmt.Errorf("vision extraction interrupted: %w", err)
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
	return VisionResult{Pages: pages, Calls: calls}, nil
}

// processBatch runs one batch concurrently. Goroutines never return an error,
// so one failing page does not cancel its siblings.
func (v *VisionExtractor) processBatch(ctx context.Context, batch []models.PageImage) ([]models.PageExtractionResult, []CallRecord) {
	results := make([]models.PageExtractionResult, len(batch))
	records := make([]*CallRecord, len(batch))
	var g errgroup.Group
	for i, img := range batch {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					v.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Int("page", img.PageNumber).Msg("page extraction panicked")
					results[i] = v.degraded(img, fmt.Errorf("panic: %v", r))
				}
			}()
			results[i], records[i] = v.processPage(ctx, img)
			return nil
		})
	}
	_ = g.Wait()

	calls := make([]CallRecord, 0, len(batch))
	for _, r := range records {
		if r != nil {
			calls = append(calls, *r)
		}
	}
	return results, calls
}

func (v *VisionExtractor) processPage(ctx context.Context, img models.PageImage) (models.PageExtractionResult, *CallRecord) {
	log := v.log.With().Int("page", img.PageNumber).Logger()
	key := util.CacheKey(img.StoragePath, visionPromptVersion)
	if v.cache != nil {
		cached, ok, err := v.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("page cache lookup failed")
		}
		if ok && !cached.Failed() {
			metrics.IncPageOutcome("cached")
			return cached, nil
		}
	}

	data, err := blob.ReadAll(ctx, v.store, img.StoragePath)
	if err != nil {
		log.Warn().Err(err).Msg("could not load page image")
		metrics.IncPageOutcome("degraded")
		return v.degraded(img, err), nil
	}

	resp, info, err := v.provider.ExtractImage(ctx, providers.VisionRequest{
		Operation: "page_markdown",
		Prompt:    visionPrompt,
		ImageURL:  img.URL,
		MIMEType:  imageContentType(strings.ToLower(path.Ext(img.StoragePath))),
		ImageData: data,
	})
	rec := &CallRecord{
		Operation:    "page_markdown",
		PageNumber:   img.PageNumber,
		Provider:     info,
		FinishReason: resp.FinishReason,
		Err:          err,
	}
	if err == nil && util.SanitizeText(resp.Text) == "" {
		err = fmt.Errorf("empty response from %s", info.Name)
		rec.Err = err
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", info.Name).Str("error_type", string(providers.ClassifyError(err))).Msg("page extraction failed")
		metrics.IncPageOutcome("degraded")
		return v.degraded(img, err), rec
	}

	text := util.StripCodeFence(util.SanitizeText(resp.Text))
	confidence := confidenceTruncated
	if resp.Complete {
		confidence = confidenceComplete
	}
	res := models.PageExtractionResult{
		PageNumber:      img.PageNumber,
		ImageURL:        img.URL,
		ExtractedText:   text,
		MarkdownContent: text,
		Metadata: models.PageMetadata{
			Confidence: confidence,
			Elements:   DetectElements(text),
			Timestamp:  v.now().UTC(),
		},
	}
	metrics.IncPageOutcome("ok")
	if v.cache != nil {
		if err := v.cache.Put(ctx, key, res); err != nil {
			log.Warn().Err(err).Msg("page cache write failed")
		}
	}
	return res, rec
}

func (v *VisionExtractor) degraded(img models.PageImage, err error) models.PageExtractionResult {
	marker := fmt.Sprintf("[extraction failed: %v]", err)
	return models.PageExtractionResult{
		PageNumber:      img.PageNumber,
		ImageURL:        img.URL,
		ExtractedText:   marker,
		MarkdownContent: marker,
		Metadata: models.PageMetadata{
			Confidence: 0,
			Elements:   []string{},
			Timestamp:  v.now().UTC(),
		},
		Error: err.Error(),
	}
}

