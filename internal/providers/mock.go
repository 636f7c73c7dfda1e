package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockProvider returns deterministic output so the pipeline can run end to
// end without credentials.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) VisionInfo() ProviderInfo {
	return ProviderInfo{Name: "mock", Model: "mock-vision-v1", Key: "mock"}
}

func (m *MockProvider) ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error) {
	_ = ctx
	var b strings.Builder
	b.WriteString("# Mock Candidate\n\n")
	b.WriteString("Email: mock.candidate@example.com\n")
	b.WriteString("Phone: +1 555 010 0000\n\n")
	b.WriteString("## Experience\n")
	b.WriteString("- Senior Software Engineer, Example Corp (2019 - present)\n")
	fmt.Fprintf(&b, "\n<!-- mock extraction of %d bytes -->\n", len(req.ImageData))
	return VisionResponse{Text: b.String(), FinishReason: "stop", Complete: true}, m.VisionInfo(), nil
}

var mockProfileValues = map[string]any{
	"display_name":          "Mock Candidate",
	"email":                 "mock.candidate@example.com",
	"phone":                 "+1 555 010 0000",
	"current_title":         "Senior Software Engineer",
	"current_company":       "Example Corp",
	"city":                  "Lisbon",
	"country":               "Portugal",
	"years_of_experience":   7,
	"skills":                []string{"Distributed systems", "API design"},
	"programming_languages": []string{"Go", "SQL"},
	"employment_history": []map[string]any{{
		"company": "Example Corp", "title": "Senior Software Engineer", "start_date": "2019", "current": true,
	}},
	"education": []map[string]any{{
		"institution": "Example University", "degree": "BSc", "field_of_study": "Computer Science",
	}},
}

func (m *MockProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (StructuredResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-structured-v1", Key: "mock"}
	props, _ := req.Schema["properties"].(map[string]any)
	out := make(map[string]any, len(props))
	for key := range props {
		if v, ok := mockProfileValues[key]; ok {
			out[key] = v
		} else {
			out[key] = nil
		}
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return StructuredResponse{}, info, fmt.Errorf("encode mock response: %w", err)
	}
	return StructuredResponse{JSON: raw, FinishReason: "stop"}, info, nil
}
