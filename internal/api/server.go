package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resumeflow/internal/config"
	"resumeflow/internal/metrics"
	"resumeflow/internal/models"
	"resumeflow/internal/storage"
	"resumeflow/internal/workflows"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/converter"
)

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type RunStore interface {
	UpsertRun(ctx context.Context, run models.PipelineRun) error
	GetRun(ctx context.Context, runID string) (models.PipelineRun, error)
}

type ProfileReader interface {
	GetProfileByOwner(ctx context.Context, ownerID string) (storage.StoredProfile, error)
}

type Server struct {
	cfg      config.Config
	temporal WorkflowClient
	runs     RunStore
	profiles ProfileReader
	log      zerolog.Logger
}

func NewServer(cfg config.Config, temporal WorkflowClient, runs RunStore, profiles ProfileReader, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		temporal: temporal,
		runs:     runs,
		profiles: profiles,
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/owners/{ownerID}", func(r chi.Router) {
		r.Post("/documents", s.handleUpload)
		r.Get("/profile", s.handleProfile)
	})
	r.Get("/runs/{runID}", s.handleRun)
	return withCORS(r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("owner id is required"))
		return
	}
	limit := int64(s.cfg.MaxUploadBytes)
	// multipart framing needs headroom above the file limit
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	mode, err := parseMode(r.FormValue("mode"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, errors.New("no file provided"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if int64(len(content)) > limit {
		writeErr(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", limit))
		return
	}
	if len(content) == 0 {
		writeErr(w, http.StatusBadRequest, errors.New("no file provided"))
		return
	}

	runID := uuid.NewString()
	queued := models.PipelineRun{
		RunID:            runID,
		OwnerID:          ownerID,
		OriginalFileName: hdr.Filename,
		Mode:             mode,
		Status:           storage.RunQueued,
	}
	s.recordRun(r.Context(), queued)

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(runID),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ProcessDocumentWorkflow, workflows.ProcessDocumentInput{
		RunID:                 runID,
		OwnerID:               ownerID,
		FileName:              hdr.Filename,
		ContentType:           hdr.Header.Get("Content-Type"),
		Content:               content,
		Mode:                  mode,
		VisionProviderRef:     r.FormValue("vision_provider"),
		StructuredProviderRef: r.FormValue("structured_provider"),
	})
	if err != nil {
		failed := queued
		failed.Status = storage.RunFailed
		failed.FailReason = "workflow start failed: " + err.Error()
		s.recordRun(r.Context(), failed)
		s.log.Error().Err(err).Str("run_id", runID).Msg("start pipeline workflow")
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	metrics.IncRunStarted(string(mode))
	s.log.Info().Str("run_id", runID).Str("owner_id", ownerID).Str("mode", string(mode)).Int("bytes", len(content)).Msg("pipeline run started")
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":          runID,
		"workflow_id":     we.GetID(),
		"workflow_run_id": we.GetRunID(),
		"mode":            mode,
	})
}

func (s *Server) recordRun(ctx context.Context, run models.PipelineRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.UpsertRun(ctx, run); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.RunID).Str("status", run.Status).Msg("record run")
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	resp, err := s.temporal.QueryWorkflow(r.Context(), workflows.WorkflowID(runID), "", workflows.QueryGetPipelineStatus)
	if err == nil {
		var run models.PipelineRun
		if err := resp.Get(&run); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}
	if s.runs == nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	// Fallback to the mirrored row when the workflow cannot answer queries.
	run, dbErr := s.runs.GetRun(r.Context(), runID)
	if errors.Is(dbErr, pgx.ErrNoRows) {
		writeErr(w, http.StatusNotFound, dbErr)
		return
	}
	if dbErr != nil {
		writeErr(w, http.StatusInternalServerError, dbErr)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeErr(w, http.StatusNotFound, errors.New("profiles are not available"))
		return
	}
	p, err := s.profiles.GetProfileByOwner(r.Context(), chi.URLParam(r, "ownerID"))
	if errors.Is(err, pgx.ErrNoRows) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func parseMode(raw string) (models.Mode, error) {
	switch models.Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", models.ModeFull:
		return models.ModeFull, nil
	case models.ModeOnboarding:
		return models.ModeOnboarding, nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "RF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case status == http.StatusBadGateway:
			return apiError{
				Code:    "RF-API-5020",
				Message: "The workflow service did not accept this run. Check the upload size and retry.",
			}
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "RF-DB-5001",
				Message: "Database schema is not initialized. Start the worker once and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "RF-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "RF-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "RF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "RF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "RF-API-4009"
		msg = "A run with this id is already in progress."
	case status == http.StatusMethodNotAllowed:
		code = "RF-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusRequestEntityTooLarge:
		code = "RF-API-4013"
		msg = "The uploaded résumé is larger than the configured limit."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "owner id is required"):
			msg = "Owner id is required."
		case strings.Contains(raw, "no file provided"):
			msg = "No PDF file was provided in the \"file\" field."
		case strings.Contains(raw, "unknown mode"):
			msg = "Mode must be \"full\" or \"onboarding\"."
		case strings.Contains(raw, "invalid multipart form"):
			msg = "Malformed multipart request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
