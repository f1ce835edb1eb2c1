package storage

import (
	"context"
	"fmt"

	"coeus/internal/models"
)

type JobRepo struct {
	db *DB
}

func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) CreateJob(ctx context.Context, j models.Job) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO jobs (job_id, user_id, filename, status)
VALUES ($1, $2, $3, $4)`,
		j.JobID, j.UserID, j.Filename, j.Status)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepo) UpdateJobStatus(ctx context.Context, jobID, status, failReason string) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE jobs SET status=$2, fail_reason=NULLIF($3,''), updated_at=NOW()
WHERE job_id=$1`, jobID, status, failReason)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (r *JobRepo) UpdateJobCounts(ctx context.Context, jobID string, chromaCount, elasticCount int) error {
	_, err := r.db.Pool.Exec(ctx, `
UPDATE jobs SET chroma_count=$2, elastic_count=$3, updated_at=NOW()
WHERE job_id=$1`, jobID, chromaCount, elasticCount)
	if err != nil {
		return fmt.Errorf("update job counts: %w", err)
	}
	return nil
}

func (r *JobRepo) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	var j models.Job
	err := r.db.Pool.QueryRow(ctx, `
SELECT j.job_id::text, j.user_id::text, u.user_name, j.filename, j.status,
       COALESCE(j.fail_reason,''), j.chroma_count, j.elastic_count, j.created_at, j.updated_at
FROM jobs j JOIN users u ON u.user_id = j.user_id
WHERE j.job_id=$1`, jobID).
		Scan(&j.JobID, &j.UserID, &j.UserName, &j.Filename, &j.Status, &j.Error, &j.ChromaCount, &j.ElasticCount, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return models.Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *JobRepo) ListJobsByUser(ctx context.Context, userID string) ([]models.Job, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT j.job_id::text, j.user_id::text, u.user_name, j.filename, j.status,
       COALESCE(j.fail_reason,''), j.chroma_count, j.elastic_count, j.created_at, j.updated_at
FROM jobs j JOIN users u ON u.user_id = j.user_id
WHERE j.user_id=$1
ORDER BY j.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := make([]models.Job, 0)
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.JobID, &j.UserID, &j.UserName, &j.Filename, &j.Status, &j.Error, &j.ChromaCount, &j.ElasticCount, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}
