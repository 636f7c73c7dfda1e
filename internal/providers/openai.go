package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider talks to OpenAI's chat completions API, or to any
// OpenAI-compatible endpoint when built with a base URL.
type OpenAIProvider struct {
	name            string
	keyName         string
	apiKey          string
	visionModel     string
	structuredModel string
	client          openai.Client
}

func NewOpenAIProvider(keyName string, timeout time.Duration) *OpenAIProvider {
	return newOpenAICompatible("openai", keyName, resolveOpenAIKey(keyName), "",
		envOr("RESUMEFLOW_OPENAI_VISION_MODEL", "gpt-4o-mini"),
		envOr("RESUMEFLOW_OPENAI_STRUCTURED_MODEL", "gpt-4o-mini"),
		timeout)
}

func newOpenAICompatible(name, keyName, apiKey, baseURL, visionModel, structuredModel string, timeout time.Duration) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// a failed call degrades the page; retries are decided by the caller
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		name:            name,
		keyName:         keyName,
		apiKey:          apiKey,
		visionModel:     visionModel,
		structuredModel: structuredModel,
		client:          openai.NewClient(opts...),
	}
}

func (o *OpenAIProvider) VisionInfo() ProviderInfo {
	return ProviderInfo{Name: o.name, Model: o.visionModel, Key: o.keyName}
}

func (o *OpenAIProvider) ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error) {
	info := o.VisionInfo()
	if o.apiKey == "" {
		return VisionResponse{}, info, fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	imageURL := req.ImageURL
	if len(req.ImageData) > 0 {
		imageURL = dataURL(req.MIMEType, req.ImageData)
	}
	if imageURL == "" {
		return VisionResponse{}, info, fmt.Errorf("%s vision request has no image", o.name)
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL, Detail: "high"}),
			}),
		},
	})
	if err != nil {
		return VisionResponse{}, info, fmt.Errorf("%s vision request failed: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return VisionResponse{}, info, fmt.Errorf("%s returned empty choices", o.name)
	}
	choice := resp.Choices[0]
	return VisionResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Complete:     choice.FinishReason == "stop",
	}, info, nil
}

func (o *OpenAIProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (StructuredResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: o.name, Model: o.structuredModel, Key: o.keyName}
	if o.apiKey == "" {
		return StructuredResponse{}, info, fmt.Errorf("%s key missing for alias %q", o.name, o.keyName)
	}
	name := req.SchemaName
	if name == "" {
		name = "structured_output"
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.structuredModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return StructuredResponse{}, info, fmt.Errorf("%s structured request failed: %w", o.name, err)
	}
	if len(resp.Choices) == 0 {
		return StructuredResponse{}, info, fmt.Errorf("%s returned empty choices", o.name)
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return StructuredResponse{}, info, fmt.Errorf("%s refused structured request: %s", o.name, choice.Message.Refusal)
	}
	return StructuredResponse{JSON: []byte(choice.Message.Content), FinishReason: string(choice.FinishReason)}, info, nil
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("RESUMEFLOW_OPENAI_KEY_" + strings.ToUpper(sanitizeEnvToken(alias)))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

func envOr(k, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return fallback
}

func sanitizeEnvToken(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}
