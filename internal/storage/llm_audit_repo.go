package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	CallID       string
	Operation    string
	JobID        string
	UserID       string
	ProviderName string
	Model        string
	Batches      int
	FailedCount  int
	Status       string
	ErrorType    string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, job_id, user_id, provider_name, model, batches, failed_count, status, error_type)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,'')::uuid, NULLIF($4,'')::uuid, $5, $6, $7, $8, $9, NULLIF($10,''))`,
		rec.CallID, rec.Operation, rec.JobID, rec.UserID, rec.ProviderName, rec.Model, rec.Batches, rec.FailedCount, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
