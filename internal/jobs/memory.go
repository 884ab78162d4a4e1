package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/supplier-scraper/internal/models"
	"github.com/maltedev/supplier-scraper/internal/queue"
)

// MemoryRepository keeps jobs in process memory. Pending jobs are claimed in
// submission order.
type MemoryRepository struct {
	mu      sync.RWMutex
	jobs    map[string]*models.BatchJob
	pending queue.Queue
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs:    make(map[string]*models.BatchJob),
		pending: queue.NewInMemoryQueue(),
	}
}

func (r *MemoryRepository) Create(_ context.Context, job *models.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobPending
	job.CreatedAt = time.Now()

	r.mu.Lock()
	stored := *job
	r.jobs[job.ID] = &stored
	r.mu.Unlock()

	return r.pending.Push(&queue.Task{ID: job.ID})
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, limit int) ([]*models.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*models.BatchJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *MemoryRepository) ClaimNext(_ context.Context) (*models.BatchJob, error) {
	task, err := r.pending.TryPop()
	if errors.Is(err, queue.ErrQueueEmpty) || errors.Is(err, queue.ErrQueueClosed) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[task.ID]
	if !ok {
		return nil, nil
	}
	now := time.Now()
	job.Status = models.JobRunning
	job.StartedAt = &now
	cp := *job
	return &cp, nil
}

func (r *MemoryRepository) UpdateProgress(_ context.Context, id string, processed int) error {
	return r.update(id, func(job *models.BatchJob) {
		job.Processed = processed
	})
}

func (r *MemoryRepository) Complete(_ context.Context, id string, summary *models.BatchSummary) error {
	return r.update(id, func(job *models.BatchJob) {
		now := time.Now()
		job.Status = models.JobCompleted
		job.Summary = summary
		job.Processed = summary.Total
		job.CompletedAt = &now
	})
}

func (r *MemoryRepository) Fail(_ context.Context, id string, jobErr error) error {
	return r.update(id, func(job *models.BatchJob) {
		now := time.Now()
		job.Status = models.JobFailed
		job.Error = jobErr.Error()
		job.CompletedAt = &now
	})
}

func (r *MemoryRepository) update(id string, fn func(*models.BatchJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(job)
	return nil
}
