// Package jobs defines the asynchronous job model used for slow outward
// calls such as AI summaries, Notion sync and warehouse export.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeGenerateInsight asks the AI service for a narrative summary.
	JobTypeGenerateInsight JobType = "generate_insight"
	// JobTypeNotionSync mirrors a profile's savings goals into Notion.
	JobTypeNotionSync JobType = "notion_sync"
	// JobTypeWarehouseExport writes a profile's cashflow to BigQuery.
	JobTypeWarehouseExport JobType = "warehouse_export"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// Job is one unit of background work against a profile.
type Job struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"jobId"`

	Type    JobType `json:"type"`
	Profile string  `json:"profile"`

	// Params carries type-specific arguments such as language or as_of.
	Params map[string]string `json:"params,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Result holds the handler output, e.g. the summary text.
	Result string `json:"result,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`
}

// Param returns a parameter or "" when unset.
func (j *Job) Param(key string) string {
	if j.Params == nil {
		return ""
	}
	return j.Params[key]
}

// Clone returns a deep copy so stores can hand out snapshots.
func (j *Job) Clone() *Job {
	c := *j
	if j.Params != nil {
		c.Params = make(map[string]string, len(j.Params))
		for k, v := range j.Params {
			c.Params[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// Publish enqueues job, assigning an ID and defaults when missing.
	Publish(ctx context.Context, job *Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job and returns its result. A non-nil error marks
// the attempt as failed and may trigger a retry.
type JobHandler func(ctx context.Context, job *Job) (string, error)

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Profile string
	Type    JobType
	Status  JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
