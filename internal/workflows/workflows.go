package workflows

import (
	"errors"
	"time"

	"resumeflow/internal/activities"
	"resumeflow/internal/models"
	"resumeflow/internal/storage"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetPipelineStatus = "GetPipelineStatus"

// stageTimeouts are execution ceilings; a stage that runs past its ceiling
// fails the run like any other stage error.
var stageTimeouts = map[models.StageName]time.Duration{
	models.StageUpload:            2 * time.Minute,
	models.StageSplit:             5 * time.Minute,
	models.StageLLMProcessing:     20 * time.Minute,
	models.StageMarkdownGenerate:  2 * time.Minute,
	models.StageProfileExtraction: 5 * time.Minute,
	models.StageProfileUpdate:     time.Minute,
}

const visionHeartbeatTimeout = 3 * time.Minute

var errProfileWriteFailed = errors.New("profile write failed")

type step struct {
	name models.StageName
	run  func(ctx workflow.Context) error
}

// stageOptions runs every stage exactly once; a retry is a new run.
func stageOptions(ctx workflow.Context, stage models.StageName) workflow.Context {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: stageTimeouts[stage],
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	if stage == models.StageLLMProcessing {
		ao.HeartbeatTimeout = visionHeartbeatTimeout
	}
	return workflow.WithActivityOptions(ctx, ao)
}

func ProcessDocumentWorkflow(ctx workflow.Context, input ProcessDocumentInput) (models.PdfProcessingResult, error) {
	runID := input.RunID
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	mode := input.Mode.OrDefault()
	result := models.PdfProcessingResult{
		RunID:            runID,
		OwnerID:          input.OwnerID,
		OriginalFileName: input.FileName,
		Mode:             mode,
	}
	status := newRunStatus(ctx, runID, input.OwnerID, input.FileName, mode, models.StageOrder)
	if err := workflow.SetQueryHandler(ctx, QueryGetPipelineStatus, func() (models.PipelineRun, error) {
		return status, nil
	}); err != nil {
		return result, err
	}

	var (
		doc         models.DocumentReference
		split       activities.SplitPagesOutput
		pages       activities.ExtractPagesOutput
		consolidate activities.ConsolidateOutput
		extracted   activities.ExtractProfileOutput
	)
	steps := []step{
		{models.StageUpload, func(ctx workflow.Context) error {
			var out activities.UploadDocumentOutput
			err := workflow.ExecuteActivity(ctx, "UploadDocumentActivity", activities.UploadDocumentInput{
				RunID:       runID,
				OwnerID:     input.OwnerID,
				FileName:    input.FileName,
				ContentType: input.ContentType,
				Content:     input.Content,
			}).Get(ctx, &out)
			doc = out.Document
			if err == nil {
				result.Document = &doc
			}
			return err
		}},
		{models.StageSplit, func(ctx workflow.Context) error {
			err := workflow.ExecuteActivity(ctx, "SplitPagesActivity", activities.SplitPagesInput{RunID: runID, Document: doc}).Get(ctx, &split)
			result.TotalPages = split.TotalPages
			result.ExpectedPages = split.ExpectedPages
			result.MissingPages = split.MissingPages
			return err
		}},
		{models.StageLLMProcessing, func(ctx workflow.Context) error {
			return workflow.ExecuteActivity(ctx, "ExtractPagesActivity", activities.ExtractPagesInput{
				RunID:            runID,
				OwnerID:          input.OwnerID,
				OriginalFileName: doc.OriginalFileName,
				Images:           split.Images,
				ProviderRef:      input.VisionProviderRef,
			}).Get(ctx, &pages)
		}},
		{models.StageMarkdownGenerate, func(ctx workflow.Context) error {
			err := workflow.ExecuteActivity(ctx, "ConsolidateActivity", activities.ConsolidateInput{
				RunID:            runID,
				OwnerID:          input.OwnerID,
				OriginalFileName: doc.OriginalFileName,
				ProcessedImages:  pages.ProcessedImages,
				MissingPages:     split.MissingPages,
			}).Get(ctx, &consolidate)
			result.ConsolidatedURL = consolidate.URL
			result.ConsolidatedPath = consolidate.StoragePath
			result.AverageConfidence = consolidate.Metadata.AverageConfidence
			return err
		}},
		{models.StageProfileExtraction, func(ctx workflow.Context) error {
			err := workflow.ExecuteActivity(ctx, "ExtractProfileActivity", activities.ExtractProfileInput{
				RunID:             runID,
				OwnerID:           input.OwnerID,
				Mode:              mode,
				ConsolidatedPath:  consolidate.StoragePath,
				AverageConfidence: consolidate.Metadata.AverageConfidence,
				MissingPages:      split.MissingPages,
				ProviderRef:       input.StructuredProviderRef,
			}).Get(ctx, &extracted)
			result.FieldsExtracted = extracted.FieldsExtracted
			return err
		}},
		{models.StageProfileUpdate, persistStep(runID, input.OwnerID, mode, &extracted, &result)},
	}

	runSteps(ctx, steps, &status, &result)
	return result, nil
}

// ReextractProfileWorkflow runs structured extraction and persistence again
// from the consolidated checkpoint. Upload, split, vision and consolidation
// are not repeated and do not appear in the stage map.
func ReextractProfileWorkflow(ctx workflow.Context, input ReextractProfileInput) (models.PdfProcessingResult, error) {
	runID := input.RunID
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.ID
	}
	mode := input.Mode.OrDefault()
	result := models.PdfProcessingResult{
		RunID:             runID,
		OwnerID:           input.OwnerID,
		OriginalFileName:  input.OriginalFileName,
		Mode:              mode,
		ConsolidatedURL:   input.ConsolidatedURL,
		ConsolidatedPath:  input.ConsolidatedPath,
		AverageConfidence: input.AverageConfidence,
	}
	order := []models.StageName{models.StageProfileExtraction, models.StageProfileUpdate}
	status := newRunStatus(ctx, runID, input.OwnerID, input.OriginalFileName, mode, order)
	if err := workflow.SetQueryHandler(ctx, QueryGetPipelineStatus, func() (models.PipelineRun, error) {
		return status, nil
	}); err != nil {
		return result, err
	}

	var extracted activities.ExtractProfileOutput
	steps := []step{
		{models.StageProfileExtraction, func(ctx workflow.Context) error {
			err := workflow.ExecuteActivity(ctx, "ExtractProfileActivity", activities.ExtractProfileInput{
				RunID:             runID,
				OwnerID:           input.OwnerID,
				Mode:              mode,
				ConsolidatedPath:  input.ConsolidatedPath,
				AverageConfidence: input.AverageConfidence,
				ProviderRef:       input.StructuredProviderRef,
			}).Get(ctx, &extracted)
			result.FieldsExtracted = extracted.FieldsExtracted
			return err
		}},
		{models.StageProfileUpdate, persistStep(runID, input.OwnerID, mode, &extracted, &result)},
	}

	runSteps(ctx, steps, &status, &result)
	return result, nil
}

func persistStep(runID, ownerID string, mode models.Mode, extracted *activities.ExtractProfileOutput, result *models.PdfProcessingResult) func(workflow.Context) error {
	return func(ctx workflow.Context) error {
		var out activities.PersistProfileOutput
		err := workflow.ExecuteActivity(ctx, "PersistProfileActivity", activities.PersistProfileInput{
			RunID:           runID,
			OwnerID:         ownerID,
			Mode:            mode,
			Profile:         extracted.Profile,
			FieldsExtracted: extracted.FieldsExtracted,
		}).Get(ctx, &out)
		if err != nil {
			return err
		}
		result.ProfileID = out.ProfileID
		result.FieldsUpdated = out.FieldsUpdated
		result.UpdateStatus = out.UpdateStatus
		if out.UpdateStatus == models.UpdateFailed {
			if out.Error != "" {
				return errors.New(errProfileWriteFailed.Error() + ": " + out.Error)
			}
			return errProfileWriteFailed
		}
		return nil
	}
}

// runSteps folds over steps in order and stops at the first error. Every
// stage in status.Stages that was not reached stays pending.
func runSteps(ctx workflow.Context, steps []step, status *models.PipelineRun, result *models.PdfProcessingResult) {
	mirrorRun(ctx, *status)
	for _, s := range steps {
		status.CurrentStage = s.name
		status.Stages[s.name] = models.StageReport{Status: models.StageRunning}
		mirrorRun(ctx, *status)

		if err := s.run(stageOptions(ctx, s.name)); err != nil {
			msg := errorMessage(err)
			status.Stages[s.name] = models.StageReport{Status: models.StageFailed, Error: msg}
			status.Status = storage.RunFailed
			status.FailedStage = s.name
			status.FailReason = msg
			result.FailedStage = s.name
			result.Error = msg
			break
		}
		status.Stages[s.name] = models.StageReport{Status: models.StageSuccess}
	}
	if status.Status != storage.RunFailed {
		status.Status = storage.RunCompleted
		result.Success = true
	}
	result.Stages = copyStages(status.Stages)
	status.CurrentStage = ""
	status.Result = result
	mirrorRun(ctx, *status)
}

func newRunStatus(ctx workflow.Context, runID, ownerID, fileName string, mode models.Mode, order []models.StageName) models.PipelineRun {
	now := workflow.Now(ctx)
	stages := make(map[models.StageName]models.StageReport, len(order))
	for _, name := range order {
		stages[name] = models.StageReport{Status: models.StagePending}
	}
	return models.PipelineRun{
		RunID:            runID,
		OwnerID:          ownerID,
		OriginalFileName: fileName,
		Mode:             mode,
		Status:           storage.RunRunning,
		Stages:           stages,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// mirrorRun writes the run row. Failures are logged and otherwise ignored.
func mirrorRun(ctx workflow.Context, run models.PipelineRun) {
	run.Stages = copyStages(run.Stages)
	run.UpdatedAt = workflow.Now(ctx)
	actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})
	if err := workflow.ExecuteActivity(actx, "UpdateRunStatusActivity", activities.UpdateRunStatusInput{Run: run}).Get(actx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("run status mirror failed", "run_id", run.RunID, "error", err)
	}
}

func copyStages(in map[models.StageName]models.StageReport) map[models.StageName]models.StageReport {
	out := make(map[models.StageName]models.StageReport, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// errorMessage unwraps the activity error chain to the message the stage
// actually produced.
func errorMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "stage timed out: " + timeoutErr.Error()
	}
	return err.Error()
}
