package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/supplier-scraper/internal/scraper"
)

// StartWorker processes pending jobs one at a time until ctx is cancelled. It
// polls every interval and immediately after a Submit.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		for m.processNextJob(ctx) {
		}

		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case <-ticker.C:
		case <-m.wake:
		}
	}
}

// processNextJob runs the next pending job and reports whether one was found.
func (m *Manager) processNextJob(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	job, err := m.repo.ClaimNext(ctx)
	if err != nil {
		m.logger.Error("failed to claim job", "error", err)
		return false
	}
	if job == nil {
		return false
	}

	m.logger.Info("processing job", "id", job.ID, "urls", len(job.URLs))

	opts := scraper.ScrapeOptions{CreatedAt: job.ProductCreatedAt}
	summary, err := m.runner.RunBatch(ctx, job.URLs, opts, func(p scraper.Progress) {
		if err := m.repo.UpdateProgress(ctx, job.ID, p.Done); err != nil {
			m.logger.Warn("failed to update job progress", "id", job.ID, "error", err)
		}
	})

	// The job outcome is written even when ctx was cancelled mid-batch.
	finishCtx := context.WithoutCancel(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Warn("job interrupted", "id", job.ID)
		} else {
			m.logger.Error("job failed", "id", job.ID, "error", err)
		}
		if failErr := m.repo.Fail(finishCtx, job.ID, err); failErr != nil {
			m.logger.Error("failed to mark job as failed", "id", job.ID, "error", failErr)
		}
		return false
	}

	if err := m.repo.Complete(finishCtx, job.ID, summary); err != nil {
		m.logger.Error("failed to mark job as completed", "id", job.ID, "error", err)
	}

	m.logger.Info("job completed",
		"id", job.ID,
		"added", summary.Added,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return true
}
