package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/supplier-scraper/internal/models"
)

// JobRepository persists batch jobs in the batch_jobs table.
type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *models.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobPending
	job.CreatedAt = time.Now()

	urls, err := json.Marshal(job.URLs)
	if err != nil {
		return fmt.Errorf("failed to marshal urls: %w", err)
	}

	query := `
		INSERT INTO batch_jobs (id, status, urls, product_created_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.db.pool.Exec(ctx, query,
		job.ID, string(job.Status), urls, job.ProductCreatedAt, job.CreatedAt); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

const jobColumns = `id, status, urls, product_created_at, processed, summary, error,
	created_at, started_at, completed_at`

func (r *JobRepository) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	job, err := scanJob(r.db.pool.QueryRow(ctx,
		"SELECT "+jobColumns+" FROM batch_jobs WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns the most recent jobs first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.BatchJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.pool.Query(ctx,
		"SELECT "+jobColumns+" FROM batch_jobs ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.BatchJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return jobs, nil
}

// ClaimNext marks the oldest pending job as running and returns it. It returns
// nil when no job is pending. Concurrent workers never claim the same job.
func (r *JobRepository) ClaimNext(ctx context.Context) (*models.BatchJob, error) {
	query := `
		UPDATE batch_jobs SET status = $1, started_at = $2
		WHERE id = (
			SELECT id FROM batch_jobs
			WHERE status = $3
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	job, err := scanJob(r.db.pool.QueryRow(ctx, query,
		string(models.JobRunning), time.Now(), string(models.JobPending)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, id string, processed int) error {
	_, err := r.db.pool.Exec(ctx,
		"UPDATE batch_jobs SET processed = $1 WHERE id = $2", processed, id)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (r *JobRepository) Complete(ctx context.Context, id string, summary *models.BatchSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		UPDATE batch_jobs
		SET status = $1, summary = $2, processed = $3, completed_at = $4
		WHERE id = $5`

	if _, err := r.db.pool.Exec(ctx, query,
		string(models.JobCompleted), data, summary.Total, time.Now(), id); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

func (r *JobRepository) Fail(ctx context.Context, id string, jobErr error) error {
	query := `
		UPDATE batch_jobs
		SET status = $1, error = $2, completed_at = $3
		WHERE id = $4`

	if _, err := r.db.pool.Exec(ctx, query,
		string(models.JobFailed), jobErr.Error(), time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark job as failed: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*models.BatchJob, error) {
	var (
		job           models.BatchJob
		status        string
		urls, summary []byte
	)
	if err := row.Scan(&job.ID, &status, &urls, &job.ProductCreatedAt, &job.Processed,
		&summary, &job.Error, &job.CreatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)

	if err := json.Unmarshal(urls, &job.URLs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal urls: %w", err)
	}
	if len(summary) > 0 {
		job.Summary = &models.BatchSummary{}
		if err := json.Unmarshal(summary, job.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
		}
	}
	return &job, nil
}
