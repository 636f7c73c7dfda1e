package providers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiProvider struct {
	keyName         string
	visionModel     string
	structuredModel string
	client          *genai.Client
	initErr         error
}

// NewGeminiProvider never fails on a missing key; the error surfaces on the
// first call instead, like the other providers. A positive timeout bounds
// every request.
func NewGeminiProvider(ctx context.Context, keyName string, timeout time.Duration) (*GeminiProvider, error) {
	g := &GeminiProvider{
		keyName:         keyName,
		visionModel:     envOr("RESUMEFLOW_GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		structuredModel: envOr("RESUMEFLOW_GEMINI_STRUCTURED_MODEL", "gemini-2.5-flash"),
	}
	apiKey := resolveGeminiKey(keyName)
	if apiKey == "" {
		g.initErr = fmt.Errorf("gemini key missing for alias %q", keyName)
		return g, nil
	}
	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if timeout > 0 {
		cc.HTTPOptions.Timeout = &timeout
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		g.initErr = fmt.Errorf("create gemini client: %w", err)
		return g, nil
	}
	g.client = c
	return g, nil
}

func (g *GeminiProvider) VisionInfo() ProviderInfo {
	return ProviderInfo{Name: "gemini", Model: g.visionModel, Key: g.keyName}
}

func (g *GeminiProvider) ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error) {
	info := g.VisionInfo()
	if g.initErr != nil {
		return VisionResponse{}, info, g.initErr
	}
	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	switch {
	case len(req.ImageData) > 0:
		parts = append(parts, genai.NewPartFromBytes(req.ImageData, mimeType))
	case req.ImageURL != "":
		parts = append(parts, genai.NewPartFromURI(req.ImageURL, mimeType))
	default:
		return VisionResponse{}, info, fmt.Errorf("gemini vision request has no image")
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return VisionResponse{}, info, fmt.Errorf("gemini vision request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return VisionResponse{}, info, fmt.Errorf("gemini returned no candidates")
	}
	finish := resp.Candidates[0].FinishReason
	return VisionResponse{
		Text:         resp.Text(),
		FinishReason: strings.ToLower(string(finish)),
		Complete:     finish == genai.FinishReasonStop,
	}, info, nil
}

func (g *GeminiProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (StructuredResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: g.structuredModel, Key: g.keyName}
	if g.initErr != nil {
		return StructuredResponse{}, info, g.initErr
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.structuredModel, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: req.Schema,
	})
	if err != nil {
		return StructuredResponse{}, info, fmt.Errorf("gemini structured request failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return StructuredResponse{}, info, fmt.Errorf("gemini returned no candidates")
	}
	return StructuredResponse{
		JSON:         []byte(resp.Text()),
		FinishReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
	}, info, nil
}

func resolveGeminiKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("RESUMEFLOW_GEMINI_KEY_" + strings.ToUpper(sanitizeEnvToken(alias))); v != "" {
			return v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_API_KEY")
}
