package workflows

import (
	"resumeflow/internal/models"
)

type ProcessDocumentInput struct {
	RunID                 string      `json:"run_id,omitempty"`
	OwnerID               string      `json:"owner_id"`
	FileName              string      `json:"file_name"`
	ContentType           string      `json:"content_type,omitempty"`
	Content               []byte      `json:"content"`
	Mode                  models.Mode `json:"mode,omitempty"`
	VisionProviderRef     string      `json:"vision_provider_ref,omitempty"`
	StructuredProviderRef string      `json:"structured_provider_ref,omitempty"`
}

// ReextractProfileInput resumes from a stored consolidated document.
type ReextractProfileInput struct {
	RunID                 string      `json:"run_id,omitempty"`
	OwnerID               string      `json:"owner_id"`
	OriginalFileName      string      `json:"original_file_name"`
	ConsolidatedPath      string      `json:"consolidated_path"`
	ConsolidatedURL       string      `json:"consolidated_url,omitempty"`
	AverageConfidence     float64     `json:"average_confidence"`
	Mode                  models.Mode `json:"mode,omitempty"`
	StructuredProviderRef string      `json:"structured_provider_ref,omitempty"`
}

const workflowIDPrefix = "resume-"

// WorkflowID is the Temporal workflow id for a pipeline run.
func WorkflowID(runID string) string {
	return workflowIDPrefix + runID
}
