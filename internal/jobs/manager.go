// Package jobs runs batch scrapes in the background.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/scraper"
)

var (
	ErrNotFound = errors.New("job not found")
	ErrEmptyJob = errors.New("job has no urls")
)

// Repository persists jobs. ClaimNext returns nil, nil when nothing is pending.
type Repository interface {
	Create(ctx context.Context, job *models.BatchJob) error
	Get(ctx context.Context, id string) (*models.BatchJob, error)
	List(ctx context.Context, limit int) ([]*models.BatchJob, error)
	ClaimNext(ctx context.Context) (*models.BatchJob, error)
	UpdateProgress(ctx context.Context, id string, processed int) error
	Complete(ctx context.Context, id string, summary *models.BatchSummary) error
	Fail(ctx context.Context, id string, err error) error
}

type BatchRunner interface {
	RunBatch(ctx context.Context, urls []string, opts scraper.ScrapeOptions, progress scraper.ProgressFunc) (*models.BatchSummary, error)
}

type Manager struct {
	repo     Repository
	runner   BatchRunner
	logger   *slog.Logger
	interval time.Duration
	wake     chan struct{}
}

func NewManager(repo Repository, runner BatchRunner, interval time.Duration, logger *slog.Logger) *Manager {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Manager{
		repo:     repo,
		runner:   runner,
		logger:   logger.With("component", "job_manager"),
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Submit creates a pending job and wakes the worker.
func (m *Manager) Submit(ctx context.Context, urls []string, createdAt *time.Time) (*models.BatchJob, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyJob
	}

	job := &models.BatchJob{
		URLs:             urls,
		ProductCreatedAt: createdAt,
	}
	if err := m.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "urls", len(urls))

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return job, nil
}

func (m *Manager) GetJob(ctx context.Context, id string) (*models.BatchJob, error) {
	job, err := m.repo.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	return job, err
}

func (m *Manager) ListJobs(ctx context.Context, limit int) ([]*models.BatchJob, error) {
	return m.repo.List(ctx, limit)
}
