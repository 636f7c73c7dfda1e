package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumeflow/internal/config"
	"resumeflow/internal/models"
	"resumeflow/internal/storage"
	"resumeflow/internal/workflows"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
)

type fakeRun struct {
	tclient.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "temporal-run" }

type jsonValue struct {
	v any
}

func (j jsonValue) HasValue() bool { return j.v != nil }

func (j jsonValue) Get(ptr interface{}) error {
	b, err := json.Marshal(j.v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, ptr)
}

type fakeTemporal struct {
	started  []workflows.ProcessDocumentInput
	options  []tclient.StartWorkflowOptions
	startErr error
	live     map[string]models.PipelineRun
}

func (f *fakeTemporal) ExecuteWorkflow(_ context.Context, options tclient.StartWorkflowOptions, _ interface{}, args ...interface{}) (tclient.WorkflowRun, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.options = append(f.options, options)
	f.started = append(f.started, args[0].(workflows.ProcessDocumentInput))
	return fakeRun{id: options.ID}, nil
}

func (f *fakeTemporal) QueryWorkflow(_ context.Context, workflowID string, _ string, queryType string, _ ...interface{}) (converter.EncodedValue, error) {
	if queryType != workflows.QueryGetPipelineStatus {
		return nil, fmt.Errorf("unknown query %s", queryType)
	}
	run, ok := f.live[workflowID]
	if !ok {
		return nil, errors.New("workflow not found")
	}
	return jsonValue{v: run}, nil
}

type memRuns struct {
	rows map[string]models.PipelineRun
}

func (m *memRuns) UpsertRun(_ context.Context, run models.PipelineRun) error {
	m.rows[run.RunID] = run
	return nil
}

func (m *memRuns) GetRun(_ context.Context, runID string) (models.PipelineRun, error) {
	run, ok := m.rows[runID]
	if !ok {
		return models.PipelineRun{}, fmt.Errorf("get run: %w", pgx.ErrNoRows)
	}
	return run, nil
}

type memProfiles map[string]storage.StoredProfile

func (m memProfiles) GetProfileByOwner(_ context.Context, ownerID string) (storage.StoredProfile, error) {
	p, ok := m[ownerID]
	if !ok {
		return storage.StoredProfile{}, fmt.Errorf("get profile by owner: %w", pgx.ErrNoRows)
	}
	return p, nil
}

type fixture struct {
	temporal *fakeTemporal
	runs     *memRuns
	handler  http.Handler
}

func newFixture(maxUpload int) *fixture {
	cfg := config.Load()
	cfg.MaxUploadBytes = maxUpload
	cfg.TemporalTaskQueue = "resumeflow-test"
	f := &fixture{
		temporal: &fakeTemporal{live: map[string]models.PipelineRun{}},
		runs:     &memRuns{rows: map[string]models.PipelineRun{}},
	}
	profiles := memProfiles{"user-42": {ProfileID: "p-1", OwnerID: "user-42", Fields: map[string]any{"display_name": "Ana Lima"}}}
	f.handler = NewServer(cfg, f.temporal, f.runs, profiles, zerolog.Nop()).Routes()
	return f
}

func multipartUpload(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error.Code
}

func TestUploadStartsPipelineRun(t *testing.T) {
	f := newFixture(1 << 20)
	body, ctype := multipartUpload(t, "cv.pdf", []byte("%PDF-1.4 fake"), map[string]string{"mode": "onboarding"})
	req := httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)

	rec := do(f.handler, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	runID := out["run_id"].(string)
	require.NotEmpty(t, runID)
	require.Equal(t, workflows.WorkflowID(runID), out["workflow_id"])

	require.Len(t, f.temporal.started, 1)
	in := f.temporal.started[0]
	require.Equal(t, runID, in.RunID)
	require.Equal(t, "user-42", in.OwnerID)
	require.Equal(t, "cv.pdf", in.FileName)
	require.Equal(t, models.ModeOnboarding, in.Mode)
	require.Equal(t, []byte("%PDF-1.4 fake"), in.Content)
	require.Equal(t, "resumeflow-test", f.temporal.options[0].TaskQueue)

	require.Equal(t, storage.RunQueued, f.runs.rows[runID].Status)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(16)

	body, ctype := multipartUpload(t, "", nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)
	rec := do(f.handler, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "RF-API-4001", errorCode(t, rec))

	body, ctype = multipartUpload(t, "cv.pdf", []byte("%PDF-"), map[string]string{"mode": "summary"})
	req = httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)
	rec = do(f.handler, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body, ctype = multipartUpload(t, "cv.pdf", bytes.Repeat([]byte("x"), 64), nil)
	req = httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)
	rec = do(f.handler, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "RF-API-4013", errorCode(t, rec))

	req = httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = do(f.handler, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Empty(t, f.temporal.started)
}

func TestUploadConflictWhenStartFails(t *testing.T) {
	f := newFixture(1 << 20)
	f.temporal.startErr = serviceerror.NewWorkflowExecutionAlreadyStarted("workflow execution already started", "", "")
	body, ctype := multipartUpload(t, "cv.pdf", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)

	rec := do(f.handler, req)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "RF-API-4009", errorCode(t, rec))
}

func TestUploadMarksRunFailedWhenStartRejected(t *testing.T) {
	f := newFixture(1 << 20)
	f.temporal.startErr = errors.New("blob data size exceeds limit")
	body, ctype := multipartUpload(t, "cv.pdf", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest(http.MethodPost, "/owners/user-42/documents", body)
	req.Header.Set("Content-Type", ctype)

	rec := do(f.handler, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "RF-API-5020", errorCode(t, rec))

	require.Len(t, f.runs.rows, 1)
	for _, run := range f.runs.rows {
		require.Equal(t, storage.RunFailed, run.Status)
		require.Contains(t, run.FailReason, "blob data size exceeds limit")
		require.Equal(t, "user-42", run.OwnerID)

		status := do(f.handler, httptest.NewRequest(http.MethodGet, "/runs/"+run.RunID, nil))
		require.Equal(t, http.StatusOK, status.Code)
		var got models.PipelineRun
		require.NoError(t, json.Unmarshal(status.Body.Bytes(), &got))
		require.Equal(t, storage.RunFailed, got.Status)
	}
}

func TestRunStatusPrefersLiveQuery(t *testing.T) {
	f := newFixture(1 << 20)
	f.temporal.live[workflows.WorkflowID("r1")] = models.PipelineRun{RunID: "r1", Status: storage.RunRunning, CurrentStage: models.StageSplit}
	f.runs.rows["r1"] = models.PipelineRun{RunID: "r1", Status: storage.RunQueued}

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run models.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.Equal(t, storage.RunRunning, run.Status)
	require.Equal(t, models.StageSplit, run.CurrentStage)
}

func TestRunStatusFallsBackToDatabase(t *testing.T) {
	f := newFixture(1 << 20)
	f.runs.rows["r2"] = models.PipelineRun{RunID: "r2", Status: storage.RunCompleted}

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/runs/r2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run models.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.Equal(t, storage.RunCompleted, run.Status)

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "RF-API-4004", errorCode(t, rec))
}

func TestProfileLookup(t *testing.T) {
	f := newFixture(1 << 20)

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/owners/user-42/profile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var p storage.StoredProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.Equal(t, "Ana Lima", p.Fields["display_name"])

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/owners/nobody/profile", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutingAndCORS(t *testing.T) {
	f := newFixture(1 << 20)

	rec := do(f.handler, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(f.handler, httptest.NewRequest(http.MethodOptions, "/owners/user-42/documents", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/owners/user-42/documents", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "RF-API-4005", errorCode(t, rec))

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.handler, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestToAPIErrorHidesInternals(t *testing.T) {
	e := toAPIError(http.StatusInternalServerError, errors.New(`ERROR: relation "profiles" does not exist`))
	require.Equal(t, "RF-DB-5001", e.Code)

	e = toAPIError(http.StatusInternalServerError, errors.New("dial tcp 127.0.0.1:5432: connection refused"))
	require.Equal(t, "RF-DB-5002", e.Code)

	e = toAPIError(http.StatusInternalServerError, errors.New("something secret"))
	require.NotContains(t, e.Message, "secret")
}
