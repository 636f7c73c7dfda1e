package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type VisionRequest struct {
	Operation string `json:"operation"`
	Prompt    string `json:"prompt"`
	ImageURL  string `json:"image_url"`
	MIMEType  string `json:"mime_type"`
	// ImageData, when set, is sent inline instead of ImageURL.
	ImageData []byte `json:"-"`
}

type VisionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	// Complete is true when the model stopped on its own rather than on a
	// length limit or safety filter.
	Complete bool `json:"complete"`
}

type StructuredRequest struct {
	Operation  string         `json:"operation"`
	Prompt     string         `json:"prompt"`
	SchemaName string         `json:"schema_name"`
	Schema     map[string]any `json:"schema"`
}

type StructuredResponse struct {
	JSON         []byte `json:"json"`
	FinishReason string `json:"finish_reason"`
}

type VisionProvider interface {
	ExtractImage(ctx context.Context, req VisionRequest) (VisionResponse, ProviderInfo, error)
}

type StructuredProvider interface {
	GenerateStructured(ctx context.Context, req StructuredRequest) (StructuredResponse, ProviderInfo, error)
}
