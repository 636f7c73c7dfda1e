package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"resumeflow/internal/blob"
	"resumeflow/internal/models"
	"resumeflow/internal/util"

	"github.com/rs/zerolog"
)

type ConsolidateInput struct {
	OwnerID          string
	OriginalFileName string
	Pages            []models.PageExtractionResult
	MissingPages     []int
}

type ConsolidateResult struct {
	Document    models.ConsolidatedDocument
	URL         string
	StoragePath string
}

type Consolidator struct {
	store blob.Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewConsolidator(store blob.Store, log zerolog.Logger) *Consolidator {
	return &Consolidator{
		store: store,
		now:   time.Now,
		log:   log.With().Str("stage", string(models.StageMarkdownGenerate)).Logger(),
	}
}

// Consolidate merges the page results into one markdown document and stores
// it at a path derived from the source file name, so repeated runs for the
// same document replace the previous artifact.
func (c *Consolidator) Consolidate(ctx context.Context, in ConsolidateInput) (ConsolidateResult, error) {
	if len(in.Pages) == 0 {
		return ConsolidateResult{}, ErrNoPageImages
	}
	doc := BuildDocument(in, c.now().UTC())
	path := ConsolidatedPath(in.OwnerID, in.OriginalFileName)
	obj, err := c.store.Put(ctx, path, strings.NewReader(doc.Content), blob.PutOptions{
		ContentType:    "text/markdown; charset=utf-8",
		Public:         true,
		AllowOverwrite: true,
	})
	if err != nil {
		return ConsolidateResult{}, fmt.Errorf("store consolidated document: %w", err)
	}
	c.log.Info().
		Str("owner_id", in.OwnerID).
		Str("path", obj.Pathname).
		Int("pages", doc.Metadata.TotalPages).
		Float64("average_confidence", doc.Metadata.AverageConfidence).
		Msg("document consolidated")
	return ConsolidateResult{Document: doc, URL: obj.URL, StoragePath: obj.Pathname}, nil
}

func ConsolidatedPath(ownerID, fileName string) string {
	return fmt.Sprintf("consolidated/%s/%s.md", util.SafeSegment(ownerID), util.SafeSegment(util.Stem(fileName)))
}

// BuildDocument computes the aggregate metadata and renders the markdown.
// It does not modify in.Pages.
func BuildDocument(in ConsolidateInput, processedAt time.Time) models.ConsolidatedDocument {
	pages := make([]models.PageExtractionResult, len(in.Pages))
	copy(pages, in.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })

	var sum float64
	seen := map[string]bool{}
	all := []string{}
	breakdown := make([]models.PageBreakdown, 0, len(pages))
	for _, p := range pages {
		sum += p.Metadata.Confidence
		for _, el := range p.Metadata.Elements {
			if !seen[el] {
				seen[el] = true
				all = append(all, el)
			}
		}
		elements := p.Metadata.Elements
		if elements == nil {
			elements = []string{}
		}
		breakdown = append(breakdown, models.PageBreakdown{
			PageNumber: p.PageNumber,
			Confidence: p.Metadata.Confidence,
			Elements:   elements,
			ImageURL:   p.ImageURL,
		})
	}
	avg := 0.0
	if len(pages) > 0 {
		avg = sum / float64(len(pages))
	}

	meta := models.ConsolidatedMetadata{
		OriginalFileName:  in.OriginalFileName,
		OwnerID:           in.OwnerID,
		TotalPages:        len(pages),
		ProcessedAt:       processedAt,
		AverageConfidence: avg,
		AllElements:       all,
		PageBreakdown:     breakdown,
		MissingPages:      in.MissingPages,
	}
	return models.ConsolidatedDocument{Content: RenderMarkdown(pages, meta), Metadata: meta}
}

// RenderMarkdown expects pages sorted by page number.
func RenderMarkdown(pages []models.PageExtractionResult, meta models.ConsolidatedMetadata) string {
	var b strings.Builder
	title := strings.TrimSpace(util.Stem(meta.OriginalFileName))
	if title == "" {
		title = "Document"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Document Overview\n\n")
	fmt.Fprintf(&b, "- **Source file:** %s\n", meta.OriginalFileName)
	fmt.Fprintf(&b, "- **Owner:** %s\n", meta.OwnerID)
	fmt.Fprintf(&b, "- **Total pages:** %d\n", meta.TotalPages)
	fmt.Fprintf(&b, "- **Processed at:** %s\n", meta.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Average confidence:** %.2f\n", meta.AverageConfidence)
	fmt.Fprintf(&b, "- **Detected elements:** %s\n", joinOrNone(meta.AllElements))
	if len(meta.MissingPages) > 0 {
		fmt.Fprintf(&b, "- **Missing pages:** %s\n", joinInts(meta.MissingPages))
	}
	b.WriteString("\n")

	b.WriteString("## Table of Contents\n\n")
	for _, p := range pages {
		fmt.Fprintf(&b, "- [Page %d](#page-%d)\n", p.PageNumber, p.PageNumber)
	}
	b.WriteString("\n---\n\n")

	for _, p := range pages {
		fmt.Fprintf(&b, "## Page %d\n\n", p.PageNumber)
		fmt.Fprintf(&b, "> Confidence: %.2f | Elements: %s | Source: %s\n\n", p.Metadata.Confidence, joinOrNone(p.Metadata.Elements), p.ImageURL)
		b.WriteString(strings.TrimSpace(p.MarkdownContent))
		b.WriteString("\n\n---\n\n")
	}

	ok, failed := 0, 0
	for _, p := range pages {
		if p.Metadata.Confidence > 0 {
			ok++
		} else {
			failed++
		}
	}
	b.WriteString("## Processing Summary\n\n")
	fmt.Fprintf(&b, "- Pages extracted successfully: %d\n", ok)
	fmt.Fprintf(&b, "- Pages failed: %d\n", failed)
	if len(meta.MissingPages) > 0 {
		fmt.Fprintf(&b, "- Pages missing from the split: %s\n", joinInts(meta.MissingPages))
	}
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
