package providers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMockStructuredOnlyFillsSchemaKeys(t *testing.T) {
	schema := map[string]any{"properties": map[string]any{"current_title": map[string]any{}, "awards": map[string]any{}}}
	resp, _, err := NewMockProvider().GenerateStructured(context.Background(), StructuredRequest{Schema: schema})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.JSON, &out))
	require.Len(t, out, 2)
	require.Equal(t, "Senior Software Engineer", out["current_title"])
	require.Nil(t, out["awards"])
}

type countingVision struct{ calls int }

func (c *countingVision) ExtractImage(context.Context, VisionRequest) (VisionResponse, ProviderInfo, error) {
	c.calls++
	return VisionResponse{Complete: true}, ProviderInfo{Name: "count"}, nil
}

func TestRateLimitedVisionHonoursContext(t *testing.T) {
	next := &countingVision{}
	lim := rate.NewLimiter(rate.Limit(0.001), 1)
	p := NewRateLimitedVision(next, lim)

	_, _, err := p.ExtractImage(context.Background(), VisionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.ExtractImage(ctx, VisionRequest{})
	require.Error(t, err)
	require.Equal(t, 1, next.calls)
}

func TestRateLimitedVisionKeepsProviderIdentityOnWaitFailure(t *testing.T) {
	p := NewRateLimitedVision(NewOllamaProvider("local", time.Second), rate.NewLimiter(rate.Limit(0.001), 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, info, err := p.ExtractImage(ctx, VisionRequest{ImageData: []byte{1}})
	require.Error(t, err)
	require.Equal(t, "ollama", info.Name)
	require.Equal(t, "local", info.Key)
	require.NotEmpty(t, info.Model)
}

func TestManagerDefaultsToMock(t *testing.T) {
	m, err := NewManager(context.Background(), testConfig("", ""))
	require.NoError(t, err)
	p, ref := m.VisionProviderByIndex(5)
	require.Equal(t, "mock", ref.Name)
	require.IsType(t, &MockProvider{}, p)
	require.Equal(t, 0, m.PreferredStructuredIndex())
}

func TestManagerPrefersRealProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	m, err := NewManager(context.Background(), testConfig("mock|openai", "mock|openai:key1"))
	require.NoError(t, err)
	require.Equal(t, 1, m.PreferredVisionIndex())
	require.Equal(t, 1, m.FindStructuredProviderIndex("openai:key1"))
	require.Equal(t, -1, m.FindStructuredProviderIndex("groq"))
}

func TestManagerRejectsUnknownProvider(t *testing.T) {
	_, err := NewManager(context.Background(), testConfig("bogus", ""))
	require.Error(t, err)
}
