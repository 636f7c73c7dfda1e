package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"resumeflow/internal/models"
)

const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// UpsertRun records the latest state of a run. Empty fields keep the stored
// value.
func (r *RunRepo) UpsertRun(ctx context.Context, run models.PipelineRun) error {
	var stages, result []byte
	var err error
	if len(run.Stages) > 0 {
		if stages, err = json.Marshal(run.Stages); err != nil {
			return fmt.Errorf("encode run stages: %w", err)
		}
	}
	if run.Result != nil {
		if result, err = json.Marshal(run.Result); err != nil {
			return fmt.Errorf("encode run result: %w", err)
		}
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO pipeline_runs (run_id, owner_id, original_file_name, mode, status, current_stage, failed_stage, fail_reason, stages, result)
VALUES ($1, $2, $3, COALESCE(NULLIF($4,''),'full'), $5, NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), COALESCE($9::jsonb, '{}'::jsonb), $10::jsonb)
ON CONFLICT (run_id)
DO UPDATE SET
  owner_id = COALESCE(NULLIF(EXCLUDED.owner_id,''), pipeline_runs.owner_id),
  original_file_name = COALESCE(NULLIF(EXCLUDED.original_file_name,''), pipeline_runs.original_file_name),
  status = EXCLUDED.status,
  current_stage = COALESCE(EXCLUDED.current_stage, pipeline_runs.current_stage),
  failed_stage = COALESCE(EXCLUDED.failed_stage, pipeline_runs.failed_stage),
  fail_reason = COALESCE(EXCLUDED.fail_reason, pipeline_runs.fail_reason),
  stages = CASE WHEN $9::jsonb IS NULL THEN pipeline_runs.stages ELSE EXCLUDED.stages END,
  result = COALESCE(EXCLUDED.result, pipeline_runs.result),
  updated_at = NOW()`,
		run.RunID, run.OwnerID, run.OriginalFileName, string(run.Mode), run.Status,
		string(run.CurrentStage), string(run.FailedStage), run.FailReason, nullableJSON(stages), nullableJSON(result),
	)
	if err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, runID string) (models.PipelineRun, error) {
	var (
		run            models.PipelineRun
		mode           string
		current, fail  string
		stages, result []byte
	)
	err := r.db.Pool.QueryRow(ctx, `
SELECT run_id, owner_id, original_file_name, mode, status, COALESCE(current_stage,''), COALESCE(failed_stage,''),
       COALESCE(fail_reason,''), stages, result, created_at, updated_at
FROM pipeline_runs
WHERE run_id=$1`, runID).
		Scan(&run.RunID, &run.OwnerID, &run.OriginalFileName, &mode, &run.Status, &current, &fail,
			&run.FailReason, &stages, &result, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return models.PipelineRun{}, fmt.Errorf("get run: %w", err)
	}
	run.Mode = models.Mode(mode)
	run.CurrentStage = models.StageName(current)
	run.FailedStage = models.StageName(fail)
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &run.Stages); err != nil {
			return models.PipelineRun{}, fmt.Errorf("decode run stages: %w", err)
		}
	}
	if len(result) > 0 {
		run.Result = &models.PdfProcessingResult{}
		if err := json.Unmarshal(result, run.Result); err != nil {
			return models.PipelineRun{}, fmt.Errorf("decode run result: %w", err)
		}
	}
	return run, nil
}

func (r *RunRepo) ListRunsByOwner(ctx context.Context, ownerID string, limit int) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id, owner_id, original_file_name, mode, status, COALESCE(current_stage,''), COALESCE(failed_stage,''),
       COALESCE(fail_reason,''), created_at, updated_at
FROM pipeline_runs
WHERE owner_id=$1
ORDER BY created_at DESC
LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := make([]models.PipelineRun, 0)
	for rows.Next() {
		var (
			run           models.PipelineRun
			mode          string
			current, fail string
		)
		if err := rows.Scan(&run.RunID, &run.OwnerID, &run.OriginalFileName, &mode, &run.Status, &current, &fail, &run.FailReason, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Mode = models.Mode(mode)
		run.CurrentStage = models.StageName(current)
		run.FailedStage = models.StageName(fail)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
