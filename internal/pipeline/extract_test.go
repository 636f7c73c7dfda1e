package pipeline

import (
	"context"
	"strings"
	"testing"

	"resumeflow/internal/blob"
	"resumeflow/internal/models"
	"resumeflow/internal/profile"
	"resumeflow/internal/providers"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func storeArtifact(t *testing.T, store blob.Store, content string) string {
	t.Helper()
	obj, err := store.Put(context.Background(), "consolidated/o/cv.md", strings.NewReader(content), blob.PutOptions{AllowOverwrite: true})
	require.NoError(t, err)
	return obj.Pathname
}

func TestExtractNormalizesAndListsFields(t *testing.T) {
	store := newTestStore(t)
	path := storeArtifact(t, store, "# Ana Lima\nSRE at Example")

	var got providers.StructuredRequest
	p := structuredFunc(func(ctx context.Context, req providers.StructuredRequest) (providers.StructuredResponse, error) {
		got = req
		return providers.StructuredResponse{
			JSON:         []byte(`{"display_name":" Ana Lima ","email":"unknown","skills":["Go","go",""],"awards":[],"current_title":"SRE"}`),
			FinishReason: "stop",
		}, nil
	})
	x := NewProfileExtractor(store, p, zerolog.Nop())

	res, err := x.Extract(context.Background(), ExtractInput{OwnerID: "o", ConsolidatedPath: path, AverageConfidence: 0.85})
	require.NoError(t, err)
	require.Equal(t, []string{"display_name", "current_title", "skills"}, res.FieldsExtracted)
	require.Equal(t, "Ana Lima", *res.Profile.DisplayName)
	require.Nil(t, res.Profile.Email)
	require.Equal(t, []string{"Go"}, res.Profile.Skills)
	require.Equal(t, 0.85, res.Confidence)

	require.Contains(t, got.Prompt, "# Ana Lima")
	require.Len(t, got.Schema["required"], len(profile.Fields))
}

func TestExtractSchemaViolationIsFatal(t *testing.T) {
	store := newTestStore(t)
	path := storeArtifact(t, store, "# cv")
	p := structuredFunc(func(ctx context.Context, req providers.StructuredRequest) (providers.StructuredResponse, error) {
		return providers.StructuredResponse{JSON: []byte(`{"display_name":"Ana","shoe_size":42}`)}, nil
	})
	_, err := NewProfileExtractor(store, p, zerolog.Nop()).Extract(context.Background(), ExtractInput{ConsolidatedPath: path})
	require.ErrorIs(t, err, profile.ErrSchemaValidation)
}

func TestExtractOnboardingRequestsNarrowFields(t *testing.T) {
	store := newTestStore(t)
	path := storeArtifact(t, store, "# cv")
	x := NewProfileExtractor(store, providers.NewMockProvider(), zerolog.Nop())

	res, err := x.Extract(context.Background(), ExtractInput{OwnerID: "o", Mode: models.ModeOnboarding, ConsolidatedPath: path, AverageConfidence: 1})
	require.NoError(t, err)
	for _, key := range res.FieldsExtracted {
		require.Contains(t, profile.OnboardingKeys, key)
	}
	require.Nil(t, res.Profile.DisplayName)
	require.NotEmpty(t, res.Profile.Skills)
}

func TestExtractEmptyResultHasZeroConfidence(t *testing.T) {
	store := newTestStore(t)
	path := storeArtifact(t, store, "# blank")
	p := structuredFunc(func(ctx context.Context, req providers.StructuredRequest) (providers.StructuredResponse, error) {
		return providers.StructuredResponse{JSON: []byte(`{"display_name":null}`), FinishReason: "stop"}, nil
	})
	res, err := NewProfileExtractor(store, p, zerolog.Nop()).Extract(context.Background(), ExtractInput{ConsolidatedPath: path, AverageConfidence: 1})
	require.NoError(t, err)
	require.Empty(t, res.FieldsExtracted)
	require.Zero(t, res.Confidence)
	require.Contains(t, res.Notes, "no profile fields found in document")
}

func TestExtractMissingArtifactIsFatal(t *testing.T) {
	x := NewProfileExtractor(newTestStore(t), providers.NewMockProvider(), zerolog.Nop())
	_, err := x.Extract(context.Background(), ExtractInput{ConsolidatedPath: "consolidated/o/none.md"})
	require.ErrorIs(t, err, blob.ErrNotFound)
}
