package activities

import (
	"resumeflow/internal/models"
	"resumeflow/internal/profile"
)

type UploadDocumentInput struct {
	RunID       string `json:"run_id"`
	OwnerID     string `json:"owner_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	Content     []byte `json:"content"`
}

type UploadDocumentOutput struct {
	Document models.DocumentReference `json:"document"`
}

type SplitPagesInput struct {
	RunID    string                   `json:"run_id"`
	Document models.DocumentReference `json:"document"`
}

type SplitPagesOutput struct {
	Images        []models.PageImage `json:"images"`
	TotalPages    int                `json:"total_pages"`
	ExpectedPages int                `json:"expected_pages"`
	MissingPages  []int              `json:"missing_pages,omitempty"`
}

type ExtractPagesInput struct {
	RunID            string             `json:"run_id"`
	OwnerID          string             `json:"owner_id"`
	OriginalFileName string             `json:"original_file_name"`
	Images           []models.PageImage `json:"images"`
	ProviderRef      string             `json:"provider_ref,omitempty"`
}

type ExtractPagesOutput struct {
	ProcessedImages []models.PageExtractionResult `json:"processed_images"`
	TotalProcessed  int                           `json:"total_processed"`
}

type ConsolidateInput struct {
	RunID            string                        `json:"run_id"`
	OwnerID          string                        `json:"owner_id"`
	OriginalFileName string                        `json:"original_file_name"`
	ProcessedImages  []models.PageExtractionResult `json:"processed_images"`
	MissingPages     []int                         `json:"missing_pages,omitempty"`
}

// ConsolidateOutput carries the artifact location and metadata; the markdown
// itself stays in blob storage.
type ConsolidateOutput struct {
	URL         string                      `json:"url"`
	StoragePath string                      `json:"storage_path"`
	Metadata    models.ConsolidatedMetadata `json:"metadata"`
}

type ExtractProfileInput struct {
	RunID             string      `json:"run_id"`
	OwnerID           string      `json:"owner_id"`
	Mode              models.Mode `json:"mode"`
	ConsolidatedPath  string      `json:"consolidated_path"`
	AverageConfidence float64     `json:"average_confidence"`
	MissingPages      []int       `json:"missing_pages,omitempty"`
	ProviderRef       string      `json:"provider_ref,omitempty"`
}

type ExtractProfileOutput struct {
	Profile         profile.Extraction `json:"profile"`
	FieldsExtracted []string           `json:"fields_extracted"`
	Confidence      float64            `json:"confidence"`
	Notes           []string           `json:"notes,omitempty"`
}

type PersistProfileInput struct {
	RunID           string             `json:"run_id"`
	OwnerID         string             `json:"owner_id"`
	Mode            models.Mode        `json:"mode"`
	Profile         profile.Extraction `json:"profile"`
	FieldsExtracted []string           `json:"fields_extracted"`
}

type PersistProfileOutput struct {
	ProfileID     string              `json:"profile_id"`
	FieldsUpdated []string            `json:"fields_updated"`
	UpdateStatus  models.UpdateStatus `json:"update_status"`
	Error         string              `json:"error,omitempty"`
}

type UpdateRunStatusInput struct {
	Run models.PipelineRun `json:"run"`
}
