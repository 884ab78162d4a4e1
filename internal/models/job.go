package models

import "time"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// BatchJob is a batch of product URLs processed in the background.
type BatchJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
	URLs   []string  `json:"urls"`
	// CreatedAt applied to every product of the batch when set.
	ProductCreatedAt *time.Time    `json:"product_created_at,omitempty"`
	Processed        int           `json:"processed"`
	Summary          *BatchSummary `json:"summary,omitempty"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j *BatchJob) Finished() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}
