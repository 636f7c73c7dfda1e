package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resumeflow/internal/blob"
	"resumeflow/internal/config"
	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/pipeline"
	"resumeflow/internal/providers"
	"resumeflow/internal/raster"
	"resumeflow/internal/storage"
	"resumeflow/internal/util"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
)

// RunStore mirrors run status for the API and CLI.
type RunStore interface {
	UpsertRun(ctx context.Context, run models.PipelineRun) error
}

// CallAuditor records model calls.
type CallAuditor interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

// Deps are the collaborators the stages run against. PageCache, Runs and
// Audit may be nil.
type Deps struct {
	Store      blob.Store
	Rasterizer raster.Rasterizer
	Providers  *providers.Manager
	PageCache  pipeline.PageCache
	Profiles   pipeline.ProfileStore
	Users      pipeline.UserStore
	Runs       RunStore
	Audit      CallAuditor
	Logger     zerolog.Logger
}

type Activities struct {
	cfg        config.Config
	deps       Deps
	uploader   *pipeline.Uploader
	splitter   *pipeline.Splitter
	consolider *pipeline.Consolidator
	persister  *pipeline.ProfilePersister
	onboarding *pipeline.OnboardingPersister
	log        zerolog.Logger
}

func New(cfg config.Config, deps Deps) *Activities {
	log := deps.Logger
	return &Activities{
		cfg:        cfg,
		deps:       deps,
		uploader:   pipeline.NewUploader(deps.Store, log),
		splitter:   pipeline.NewSplitter(deps.Store, deps.Rasterizer, cfg.ScratchDir, cfg.UploadConcurrency, log),
		consolider: pipeline.NewConsolidator(deps.Store, log),
		persister:  pipeline.NewProfilePersister(deps.Profiles, cfg.PlaceholderName, log),
		onboarding: pipeline.NewOnboardingPersister(deps.Users, log),
		log:        log,
	}
}

// NewFromDB wires the Postgres repositories into deps.
func NewFromDB(cfg config.Config, db *storage.DB, deps Deps) *Activities {
	deps.Profiles = storage.NewProfileRepo(db)
	deps.Users = storage.NewUserRepo(db)
	deps.Runs = storage.NewRunRepo(db)
	deps.Audit = storage.NewLLMAuditRepo(db)
	return New(cfg, deps)
}

func observe(stage models.StageName, start time.Time, err *error) {
	metrics.ObserveStage(string(stage), *err, time.Since(start))
}

func (a *Activities) UploadDocumentActivity(ctx context.Context, in UploadDocumentInput) (out UploadDocumentOutput, err error) {
	defer observe(models.StageUpload, time.Now(), &err)
	doc, err := a.uploader.Upload(ctx, pipeline.UploadInput{
		FileName:    in.FileName,
		OwnerID:     in.OwnerID,
		ContentType: in.ContentType,
		Content:     in.Content,
	})
	if err != nil {
		return UploadDocumentOutput{}, err
	}
	return UploadDocumentOutput{Document: doc}, nil
}

func (a *Activities) SplitPagesActivity(ctx context.Context, in SplitPagesInput) (out SplitPagesOutput, err error) {
	defer observe(models.StageSplit, time.Now(), &err)
	res, err := a.splitter.Split(ctx, in.Document)
	if err != nil {
		return SplitPagesOutput{}, err
	}
	return SplitPagesOutput{
		Images:        res.Images,
		TotalPages:    res.TotalPages,
		ExpectedPages: res.ExpectedPages,
		MissingPages:  res.MissingPages,
	}, nil
}

func (a *Activities) ExtractPagesActivity(ctx context.Context, in ExtractPagesInput) (out ExtractPagesOutput, err error) {
	defer observe(models.StageLLMProcessing, time.Now(), &err)
	idx := a.deps.Providers.PreferredVisionIndex()
	if in.ProviderRef != "" {
		if idx = a.deps.Providers.FindVisionProviderIndex(in.ProviderRef); idx < 0 {
			return ExtractPagesOutput{}, fmt.Errorf("vision provider ref not configured in worker: %s", in.ProviderRef)
		}
	}
	provider, _ := a.deps.Providers.VisionProviderByIndex(idx)
	extractor := pipeline.NewVisionExtractor(a.deps.Store, provider, a.deps.PageCache, a.log)

	res, err := extractor.Extract(ctx, in.Images, pipeline.VisionOptions{
		BatchSize:  a.cfg.VisionBatchSize,
		BatchDelay: time.Duration(a.cfg.VisionBatchDelayMS) * time.Millisecond,
		OnBatch: func(done, total int) {
			activity.RecordHeartbeat(ctx, done)
		},
	})
	if err != nil {
		return ExtractPagesOutput{}, err
	}
	a.audit(ctx, in.RunID, in.OwnerID, res.Calls...)
	return ExtractPagesOutput{ProcessedImages: res.Pages, TotalProcessed: len(res.Pages)}, nil
}

func (a *Activities) ConsolidateActivity(ctx context.Context, in ConsolidateInput) (out ConsolidateOutput, err error) {
	defer observe(models.StageMarkdownGenerate, time.Now(), &err)
	res, err := a.consolider.Consolidate(ctx, pipeline.ConsolidateInput{
		OwnerID:          in.OwnerID,
		OriginalFileName: in.OriginalFileName,
		Pages:            in.ProcessedImages,
		MissingPages:     in.MissingPages,
	})
	if err != nil {
		return ConsolidateOutput{}, err
	}
	return ConsolidateOutput{URL: res.URL, StoragePath: res.StoragePath, Metadata: res.Document.Metadata}, nil
}

func (a *Activities) ExtractProfileActivity(ctx context.Context, in ExtractProfileInput) (out ExtractProfileOutput, err error) {
	defer observe(models.StageProfileExtraction, time.Now(), &err)
	idx := a.deps.Providers.PreferredStructuredIndex()
	if in.ProviderRef != "" {
		if idx = a.deps.Providers.FindStructuredProviderIndex(in.ProviderRef); idx < 0 {
			return ExtractProfileOutput{}, fmt.Errorf("structured provider ref not configured in worker: %s", in.ProviderRef)
		}
	}
	provider, _ := a.deps.Providers.StructuredProviderByIndex(idx)
	res, err := pipeline.NewProfileExtractor(a.deps.Store, provider, a.log).Extract(ctx, pipeline.ExtractInput{
		OwnerID:           in.OwnerID,
		Mode:              in.Mode,
		ConsolidatedPath:  in.ConsolidatedPath,
		AverageConfidence: in.AverageConfidence,
		MissingPages:      in.MissingPages,
	})
	if res.Call.Provider.Name != "" {
		a.audit(ctx, in.RunID, in.OwnerID, res.Call)
	}
	if err != nil {
		return ExtractProfileOutput{}, err
	}
	return ExtractProfileOutput{
		Profile:         res.Profile,
		FieldsExtracted: res.FieldsExtracted,
		Confidence:      res.Confidence,
		Notes:           res.Notes,
	}, nil
}

// PersistProfileActivity never returns an error for a failed write; the
// outcome is carried in UpdateStatus.
func (a *Activities) PersistProfileActivity(ctx context.Context, in PersistProfileInput) (PersistProfileOutput, error) {
	start := time.Now()
	pin := pipeline.PersistInput{OwnerID: in.OwnerID, Profile: in.Profile, FieldsExtracted: in.FieldsExtracted}
	var res pipeline.PersistResult
	if in.Mode.OrDefault() == models.ModeOnboarding {
		res = a.onboarding.Persist(ctx, pin)
	} else {
		res = a.persister.Persist(ctx, pin)
	}
	var stageErr error
	if res.UpdateStatus == models.UpdateFailed {
		stageErr = errors.New(res.Error)
	}
	metrics.ObserveStage(string(models.StageProfileUpdate), stageErr, time.Since(start))
	return PersistProfileOutput(res), nil
}

// UpdateRunStatusActivity is best-effort; the workflow does not fail on it.
func (a *Activities) UpdateRunStatusActivity(ctx context.Context, in UpdateRunStatusInput) error {
	if a.deps.Runs == nil {
		return nil
	}
	return a.deps.Runs.UpsertRun(ctx, in.Run)
}

const auditMessageRunes = 500

func (a *Activities) audit(ctx context.Context, runID, ownerID string, calls ...pipeline.CallRecord) {
	if a.deps.Audit == nil {
		return
	}
	for _, c := range calls {
		rec := storage.LLMCallRecord{
			RunID:        runID,
			OwnerID:      ownerID,
			Operation:    c.Operation,
			PageNumber:   c.PageNumber,
			ProviderName: c.Provider.Name,
			Model:        c.Provider.Model,
			FinishReason: c.FinishReason,
			Status:       "ok",
		}
		if c.Err != nil {
			rec.Status = "error"
			rec.ErrorType = string(providers.ClassifyError(c.Err))
			rec.ErrorMessage = util.Snippet(c.Err.Error(), auditMessageRunes)
		}
		if err := a.deps.Audit.Insert(ctx, rec); err != nil {
			a.log.Warn().Err(err).Str("run_id", runID).Str("operation", c.Operation).Msg("llm call audit insert failed")
		}
	}
}
