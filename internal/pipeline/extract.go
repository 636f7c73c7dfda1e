package pipeline

import (
	"context"
	"fmt"
	"strings"

	"resumeflow/internal/blob"
	"resumeflow/internal/models"
	"resumeflow/internal/profile"
	"resumeflow/internal/providers"

	"github.com/rs/zerolog"
)

type ExtractInput struct {
	OwnerID           string
	Mode              models.Mode
	ConsolidatedPath  string
	AverageConfidence float64
	MissingPages      []int
}

type ExtractResult struct {
	Profile         profile.Extraction `json:"profile"`
	FieldsExtracted []string           `json:"fields_extracted"`
	Confidence      float64            `json:"confidence"`
	Notes           []string           `json:"notes,omitempty"`
	Call            CallRecord         `json:"-"`
}

type ProfileExtractor struct {
	store    blob.Store
	provider providers.StructuredProvider
	log      zerolog.Logger
}

func NewProfileExtractor(store blob.Store, provider providers.StructuredProvider, log zerolog.Logger) *ProfileExtractor {
	return &ProfileExtractor{
		store:    store,
		provider: provider,
		log:      log.With().Str("stage", string(models.StageProfileExtraction)).Logger(),
	}
}

// Extract reads the consolidated markdown back from storage and asks the
// structured model for the profile. A response that does not decode against
// the schema is fatal.
func (p *ProfileExtractor) Extract(ctx context.Context, in ExtractInput) (ExtractResult, error) {
	mode := in.Mode.OrDefault()
	fields := profile.Fields
	if mode == models.ModeOnboarding {
		fields = profile.OnboardingFields()
	}

	raw, err := blob.ReadAll(ctx, p.store, in.ConsolidatedPath)
	if err != nil {
		return ExtractResult{}, fmt.Errorf("load consolidated document: %w", err)
	}
	markdown := strings.TrimSpace(string(raw))
	if markdown == "" {
		return ExtractResult{}, ErrEmptyArtifact
	}

	resp, info, err := p.provider.GenerateStructured(ctx, providers.StructuredRequest{
		Operation:  "profile_extraction",
		Prompt:     profile.Prompt(markdown, fields),
		SchemaName: "candidate_profile",
		Schema:     profile.JSONSchema(fields),
	})
	call := CallRecord{Operation: "profile_extraction", Provider: info, FinishReason: resp.FinishReason, Err: err}
	if err != nil {
		return ExtractResult{Call: call}, fmt.Errorf("structured extraction via %s: %w", info.Name, err)
	}

	decoded, err := profile.DecodeStrict(resp.JSON)
	if err != nil {
		call.Err = err
		return ExtractResult{Call: call}, err
	}
	ext := profile.Restrict(profile.Normalize(decoded), fields)
	extracted := profile.FieldsExtracted(ext, fields)

	var notes []string
	if resp.FinishReason != "" && !strings.EqualFold(resp.FinishReason, "stop") {
		notes = append(notes, fmt.Sprintf("model finished with reason %q", resp.FinishReason))
	}
	if len(in.MissingPages) > 0 {
		notes = append(notes, fmt.Sprintf("source is missing pages %s", joinInts(in.MissingPages)))
	}
	if in.AverageConfidence < confidenceComplete {
		notes = append(notes, fmt.Sprintf("average page confidence %.2f", in.AverageConfidence))
	}
	confidence := 0.0
	if len(extracted) > 0 {
		confidence = in.AverageConfidence
	} else {
		notes = append(notes, "no profile fields found in document")
	}

	p.log.Info().
		Str("owner_id", in.OwnerID).
		Str("mode", string(mode)).
		Str("provider", info.Name).
		Int("fields", len(extracted)).
		Msg("profile extracted")
	return ExtractResult{
		Profile:         ext,
		FieldsExtracted: extracted,
		Confidence:      confidence,
		Notes:           notes,
		Call:            call,
	}, nil
}
