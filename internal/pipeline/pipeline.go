// Package pipeline implements the document stages: upload, page split,
// vision extraction, consolidation, structured extraction and profile
// persistence. Each stage is a plain component with its own input and output;
// orchestration lives in the workflows package.
package pipeline

import (
	"context"
	"errors"
	"time"

	"resumeflow/internal/models"
	"resumeflow/internal/providers"
)

var (
	ErrMissingOwner    = errors.New("owner id is required")
	ErrEmptyDocument   = errors.New("document is empty")
	ErrNotPDF          = errors.New("document is not a pdf")
	ErrNoPageImages    = errors.New("no page images to process")
	ErrEmptyArtifact   = errors.New("consolidated document is empty")
	ErrNoPagesUploaded = errors.New("no rendered page could be uploaded")
)

// PageCache stores successful page extractions across stage replays.
type PageCache interface {
	Get(ctx context.Context, key string) (models.PageExtractionResult, bool, error)
	Put(ctx context.Context, key string, res models.PageExtractionResult) error
}

// CallRecord describes one model call for the audit log.
type CallRecord struct {
	Operation    string
	PageNumber   int
	Provider     providers.ProviderInfo
	FinishReason string
	Err          error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
