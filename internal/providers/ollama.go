package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// OllamaProvider runs vision and structured extraction against a local
// Ollama server. Example model: llama3.2-vision or qwen2.5vl.
type OllamaProvider struct {
	alias   string
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider(alias string, timeout time.Duration) *OllamaProvider {
	baseURL := strings.TrimSpace(os.Getenv("RESUMEFLOW_OLLAMA_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		alias:   alias,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   resolveOllamaModel(alias),
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message    ollamaMessage `json:"message"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason"`
}

func (o *OllamaProvider) VisionInfo() ProviderInfo {
	return ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
}

func (o *OllamaProvider) ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error) {
	info := o.VisionInfo()
	if len(req.ImageData) == 0 {
		// Ollama only accepts inline images.
		return VisionResponse{}, info, fmt.Errorf("ollama vision request has no image data")
	}
	parsed, err := o.chat(ctx, map[string]any{
		"model":  o.model,
		"stream": false,
		"messages": []ollamaMessage{{
			Role:    "user",
			Content: req.Prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(req.ImageData)},
		}},
	})
	if err != nil {
		return VisionResponse{}, info, err
	}
	return VisionResponse{
		Text:         parsed.Message.Content,
		FinishReason: parsed.DoneReason,
		Complete:     parsed.Done && parsed.DoneReason == "stop",
	}, info, nil
}

func (o *OllamaProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (StructuredResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	parsed, err := o.chat(ctx, map[string]any{
		"model":    o.model,
		"stream":   false,
		"format":   req.Schema,
		"messages": []ollamaMessage{{Role: "user", Content: req.Prompt}},
		"options":  map[string]any{"temperature": 0},
	})
	if err != nil {
		return StructuredResponse{}, info, err
	}
	return StructuredResponse{JSON: []byte(parsed.Message.Content), FinishReason: parsed.DoneReason}, info, nil
}

func (o *OllamaProvider) chat(ctx context.Context, body map[string]any) (ollamaChatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("encode ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return ollamaChatResponse{}, fmt.Errorf("ollama chat request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return ollamaChatResponse{}, fmt.Errorf("ollama chat error %d: %s", resp.StatusCode, string(raw))
	}
	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ollamaChatResponse{}, fmt.Errorf("decode ollama chat response: %w", err)
	}
	if strings.TrimSpace(parsed.Message.Content) == "" {
		return ollamaChatResponse{}, fmt.Errorf("ollama returned empty content")
	}
	return parsed, nil
}

func resolveOllamaModel(alias string) string {
	alias = strings.TrimSpace(alias)
	if alias != "" {
		key := "RESUMEFLOW_OLLAMA_MODEL_" + sanitizeEnvToken(alias)
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		switch strings.ToLower(alias) {
		case "llama":
			return "llama3.2-vision"
		case "qwen":
			return "qwen2.5vl"
		}
		// allow a direct model in the provider list, e.g. ollama:minicpm-v:8b
		if strings.ContainsAny(alias, "-/.:") {
			return alias
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESUMEFLOW_OLLAMA_MODEL")); v != "" {
		return v
	}
	return "llama3.2-vision"
}
