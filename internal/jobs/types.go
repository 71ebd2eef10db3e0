package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/domain"
)

// JobStatus represents the current status of an analysis job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for a free slot.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates the handler is running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the analysis was produced and stored.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the handler returned an error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was removed before it ran.
	JobStatusCancelled JobStatus = "cancelled"
)

// Finished reports whether s is terminal.
func (s JobStatus) Finished() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

var (
	// ErrQueueClosed is returned by Submit after Stop.
	ErrQueueClosed = errors.New("queue is closed")
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = fmt.Errorf("job %w", domain.ErrNotFound)
	// ErrNotCancellable is returned when cancelling a job that already started.
	ErrNotCancellable = errors.New("job is not pending")
)

// AnalysisJob is one document queued for analysis.
type AnalysisJob struct {
	// JobID has the form job_<unixmilli>_<8 hex chars>.
	JobID string `json:"jobId"`

	FileName string `json:"fileName,omitempty"`

	// DocumentURI is a local path or gs:// URI. Ignored when Text is set.
	DocumentURI string `json:"documentUri,omitempty"`

	// Text is the already-extracted document text.
	Text string `json:"-"`

	UserID         string `json:"userId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`

	// Priority orders pending jobs; higher runs first.
	Priority int `json:"priority"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Error is set on failure as "analysis failed: <reason>".
	Error string `json:"error,omitempty"`

	// AnalysisID is the stored analysis produced by a completed job.
	AnalysisID string `json:"analysisId,omitempty"`
}

// Clone returns a copy that shares no pointers with j.
func (j *AnalysisJob) Clone() *AnalysisJob {
	c := *j
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

// NewJobID builds a job ID from the submission time.
func NewJobID(now time.Time) string {
	return fmt.Sprintf("job_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// JobHandler analyzes one job and returns the ID of the stored analysis.
// The job passed in is a copy; changes to it are not seen by the queue.
type JobHandler func(ctx context.Context, job *AnalysisJob) (analysisID string, err error)

// QueueStatus is a snapshot of the queue counters.
type QueueStatus struct {
	Pending       int  `json:"pending"`
	Processing    int  `json:"processing"`
	Completed     int  `json:"completed"`
	Failed        int  `json:"failed"`
	Cancelled     int  `json:"cancelled"`
	MaxConcurrent int  `json:"maxConcurrent"`
	Running       bool `json:"running"`
}

// Total is the number of tracked jobs.
func (s QueueStatus) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed + s.Cancelled
}

// JobStore defines the interface for storing and retrieving job state.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *AnalysisJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*AnalysisJob, error)

	// ListJobs retrieves jobs ordered by creation time.
	ListJobs(ctx context.Context, filter JobFilter) ([]*AnalysisJob, error)

	// DeleteJob removes a job record.
	DeleteJob(ctx context.Context, jobID string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// UserID filters jobs by owner.
	UserID string

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
