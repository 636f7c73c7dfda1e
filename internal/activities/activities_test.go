package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"resumeflow/internal/blob"
	"resumeflow/internal/config"
	"resumeflow/internal/models"
	"resumeflow/internal/profile"
	"resumeflow/internal/providers"
	"resumeflow/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
)

type threePageRasterizer struct{}

func (threePageRasterizer) Rasterize(_ context.Context, _, outDir string) error {
	for i := 1; i <= 3; i++ {
		if err := os.WriteFile(filepath.Join(outDir, fmt.Sprintf("page-%d.png", i)), []byte{0x89, 'P', 'N', 'G', byte(i)}, 0o644); err != nil {
			return err
		}
	}
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	recs []storage.LLMCallRecord
}

func (r *recordingAudit) Insert(_ context.Context, rec storage.LLMCallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

type singleProfileStore struct {
	id     string
	values map[string]any
	err    error
}

func (s *singleProfileStore) FindProfileIDByOwner(context.Context, string) (string, bool, error) {
	return s.id, s.id != "", s.err
}

func (s *singleProfileStore) UpdateProfile(_ context.Context, _ string, values []profile.Value) error {
	for _, v := range values {
		s.values[v.Key] = v.Value
	}
	return nil
}

func (s *singleProfileStore) InsertProfile(_ context.Context, _ string, values []profile.Value, placeholder string) (string, error) {
	s.id = "profile-1"
	s.values["display_name"] = placeholder
	return s.id, s.UpdateProfile(context.Background(), s.id, values)
}

func newTestActivities(t *testing.T) (*Activities, *recordingAudit, *singleProfileStore) {
	t.Helper()
	cfg := config.Config{
		ScratchDir:          t.TempDir(),
		UploadConcurrency:   2,
		VisionProviders:     "mock",
		StructuredProviders: "mock",
		VisionBatchSize:     2,
		PlaceholderName:     "Anonymous",
	}
	store, err := blob.NewLocalStore(t.TempDir(), "https://blobs.test")
	require.NoError(t, err)
	pm, err := providers.NewManager(context.Background(), cfg)
	require.NoError(t, err)

	audit := &recordingAudit{}
	profiles := &singleProfileStore{values: map[string]any{}}
	a := New(cfg, Deps{
		Store:      store,
		Rasterizer: threePageRasterizer{},
		Providers:  pm,
		Profiles:   profiles,
		Audit:      audit,
		Logger:     zerolog.Nop(),
	})
	return a, audit, profiles
}

func TestActivitiesRunTheWholeDocumentChain(t *testing.T) {
	a, audit, profiles := newTestActivities(t)
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	var heartbeats []int
	env.SetOnActivityHeartbeatListener(func(_ *activity.Info, details converter.EncodedValues) {
		var done int
		if err := details.Get(&done); err == nil {
			heartbeats = append(heartbeats, done)
		}
	})

	val, err := env.ExecuteActivity(a.UploadDocumentActivity, UploadDocumentInput{RunID: "r1", OwnerID: "owner-1", FileName: "cv.pdf", Content: []byte("%PDF-1.7\n")})
	require.NoError(t, err)
	var up UploadDocumentOutput
	require.NoError(t, val.Get(&up))

	val, err = env.ExecuteActivity(a.SplitPagesActivity, SplitPagesInput{RunID: "r1", Document: up.Document})
	require.NoError(t, err)
	var split SplitPagesOutput
	require.NoError(t, val.Get(&split))
	require.Equal(t, 3, split.TotalPages)

	val, err = env.ExecuteActivity(a.ExtractPagesActivity, ExtractPagesInput{RunID: "r1", OwnerID: "owner-1", OriginalFileName: "cv.pdf", Images: split.Images})
	require.NoError(t, err)
	var pages ExtractPagesOutput
	require.NoError(t, val.Get(&pages))
	require.Equal(t, 3, pages.TotalProcessed)
	require.NotEmpty(t, heartbeats)

	val, err = env.ExecuteActivity(a.ConsolidateActivity, ConsolidateInput{RunID: "r1", OwnerID: "owner-1", OriginalFileName: "cv.pdf", ProcessedImages: pages.ProcessedImages})
	require.NoError(t, err)
	var cons ConsolidateOutput
	require.NoError(t, val.Get(&cons))
	require.Equal(t, 1.0, cons.Metadata.AverageConfidence)

	val, err = env.ExecuteActivity(a.ExtractProfileActivity, ExtractProfileInput{RunID: "r1", OwnerID: "owner-1", ConsolidatedPath: cons.StoragePath, AverageConfidence: cons.Metadata.AverageConfidence})
	require.NoError(t, err)
	var ext ExtractProfileOutput
	require.NoError(t, val.Get(&ext))
	require.Contains(t, ext.FieldsExtracted, "display_name")

	val, err = env.ExecuteActivity(a.PersistProfileActivity, PersistProfileInput{RunID: "r1", OwnerID: "owner-1", Profile: ext.Profile, FieldsExtracted: ext.FieldsExtracted})
	require.NoError(t, err)
	var persisted PersistProfileOutput
	require.NoError(t, val.Get(&persisted))
	require.Equal(t, models.UpdateSuccess, persisted.UpdateStatus)
	require.Equal(t, "profile-1", persisted.ProfileID)
	require.Equal(t, "Mock Candidate", profiles.values["display_name"])

	require.Len(t, audit.recs, 4)
	require.Equal(t, "profile_extraction", audit.recs[3].Operation)
	for _, rec := range audit.recs {
		require.Equal(t, "r1", rec.RunID)
		require.Equal(t, "ok", rec.Status)
	}
}

func TestPersistProfileActivityReportsFailureWithoutError(t *testing.T) {
	a, _, profiles := newTestActivities(t)
	profiles.err = fmt.Errorf("db down")
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.PersistProfileActivity, PersistProfileInput{OwnerID: "owner-1"})
	require.NoError(t, err)
	var out PersistProfileOutput
	require.NoError(t, val.Get(&out))
	require.Equal(t, models.UpdateFailed, out.UpdateStatus)
	require.Equal(t, "00000000-0000-0000-0000-000000000000", out.ProfileID)
}

func TestExtractPagesActivityRejectsUnknownProvider(t *testing.T) {
	a, _, _ := newTestActivities(t)
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.ExtractPagesActivity, ExtractPagesInput{ProviderRef: "gemini:missing", Images: []models.PageImage{{PageNumber: 1}}})
	require.ErrorContains(t, err, "not configured")
}

func TestUpdateRunStatusActivityWithoutStoreIsNoop(t *testing.T) {
	a, _, _ := newTestActivities(t)
	require.NoError(t, a.UpdateRunStatusActivity(context.Background(), UpdateRunStatusInput{Run: models.PipelineRun{RunID: "r"}}))
}
