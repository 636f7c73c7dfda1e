package models

import "time"

type Mode string

const (
	ModeFull       Mode = "full"
	ModeOnboarding Mode = "onboarding"
)

func (m Mode) OrDefault() Mode {
	if m == ModeOnboarding {
		return ModeOnboarding
	}
	return ModeFull
}

type DocumentReference struct {
	URL              string `json:"url"`
	StoragePath      string `json:"storage_path"`
	OriginalFileName string `json:"original_file_name"`
	OwnerID          string `json:"owner_id"`
}

type PageImage struct {
	URL         string `json:"url"`
	StoragePath string `json:"storage_path"`
	PageNumber  int    `json:"page_number"`
}

type PageMetadata struct {
	Confidence float64   `json:"confidence"`
	Elements   []string  `json:"elements"`
	Timestamp  time.Time `json:"timestamp"`
}

// PageExtractionResult is the per-page output of the vision stage. A zero
// confidence marks a page whose extraction failed.
type PageExtractionResult struct {
	PageNumber      int          `json:"page_number"`
	ImageURL        string       `json:"image_url"`
	ExtractedText   string       `json:"extracted_text"`
	MarkdownContent string       `json:"markdown_content"`
	Metadata        PageMetadata `json:"metadata"`
	Error           string       `json:"error,omitempty"`
}

func (r PageExtractionResult) Failed() bool {
	return r.Metadata.Confidence == 0
}

type PageBreakdown struct {
	PageNumber int      `json:"page_number"`
	Confidence float64  `json:"confidence"`
	Elements   []string `json:"elements"`
	ImageURL   string   `json:"image_url"`
}

type ConsolidatedMetadata struct {
	OriginalFileName  string          `json:"original_file_name"`
	OwnerID           string          `json:"owner_id"`
	TotalPages        int             `json:"total_pages"`
	ProcessedAt       time.Time       `json:"processed_at"`
	AverageConfidence float64         `json:"average_confidence"`
	AllElements       []string        `json:"all_elements"`
	PageBreakdown     []PageBreakdown `json:"page_breakdown"`
	MissingPages      []int           `json:"missing_pages,omitempty"`
}

type ConsolidatedDocument struct {
	Content  string               `json:"content"`
	Metadata ConsolidatedMetadata `json:"metadata"`
}

type StageName string

const (
	StageUpload            StageName = "upload"
	StageSplit             StageName = "split"
	StageLLMProcessing     StageName = "llm_processing"
	StageMarkdownGenerate  StageName = "markdown_generation"
	StageProfileExtraction StageName = "profile_extraction"
	StageProfileUpdate     StageName = "profile_update"
)

// StageOrder is the execution order of the document pipeline.
var StageOrder = []StageName{
	StageUpload,
	StageSplit,
	StageLLMProcessing,
	StageMarkdownGenerate,
	StageProfileExtraction,
	StageProfileUpdate,
}

type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
)

type StageReport struct {
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

type UpdateStatus string

const (
	UpdateSuccess UpdateStatus = "success"
	UpdatePartial UpdateStatus = "partial"
	UpdateFailed  UpdateStatus = "failed"
)

// PdfProcessingResult is the final outcome of one pipeline run.
type PdfProcessingResult struct {
	Success           bool                      `json:"success"`
	RunID             string                    `json:"run_id"`
	OwnerID           string                    `json:"owner_id"`
	OriginalFileName  string                    `json:"original_file_name"`
	Mode              Mode                      `json:"mode"`
	Document          *DocumentReference        `json:"document,omitempty"`
	TotalPages        int                       `json:"total_pages"`
	ExpectedPages     int                       `json:"expected_pages,omitempty"`
	MissingPages      []int                     `json:"missing_pages,omitempty"`
	ConsolidatedURL   string                    `json:"consolidated_url,omitempty"`
	ConsolidatedPath  string                    `json:"consolidated_path,omitempty"`
	AverageConfidence float64                   `json:"average_confidence"`
	ProfileID         string                    `json:"profile_id,omitempty"`
	FieldsExtracted   []string                  `json:"fields_extracted,omitempty"`
	FieldsUpdated     []string                  `json:"fields_updated,omitempty"`
	UpdateStatus      UpdateStatus              `json:"update_status,omitempty"`
	FailedStage       StageName                 `json:"failed_stage,omitempty"`
	Error             string                    `json:"error,omitempty"`
	Stages            map[StageName]StageReport `json:"stages"`
}

type PipelineRun struct {
	RunID            string                    `json:"run_id"`
	OwnerID          string                    `json:"owner_id"`
	OriginalFileName string                    `json:"original_file_name"`
	Mode             Mode                      `json:"mode"`
	Status           string                    `json:"status"`
	CurrentStage     StageName                 `json:"current_stage,omitempty"`
	FailedStage      StageName                 `json:"failed_stage,omitempty"`
	FailReason       string                    `json:"fail_reason,omitempty"`
	Stages           map[StageName]StageReport `json:"stages"`
	Result           *PdfProcessingResult      `json:"result,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}
