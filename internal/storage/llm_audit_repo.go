package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	RunID        string
	OwnerID      string
	Operation    string
	PageNumber   int
	ProviderName string
	Model        string
	FinishReason string
	Status       string
	ErrorType    string
	ErrorMessage string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(run_id, owner_id, operation, page_number, provider_name, model, finish_reason, status, error_type, error_message)
VALUES (NULLIF($1,''), NULLIF($2,''), $3, NULLIF($4,0), $5, $6, NULLIF($7,''), $8, NULLIF($9,''), NULLIF($10,''))`,
		rec.RunID, rec.OwnerID, rec.Operation, rec.PageNumber, rec.ProviderName, rec.Model, rec.FinishReason, rec.Status, rec.ErrorType, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

// CountByRun returns how many model calls a run made.
func (r *LLMAuditRepo) CountByRun(ctx context.Context, runID string) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM llm_calls WHERE run_id=$1`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count llm calls: %w", err)
	}
	return n, nil
}
