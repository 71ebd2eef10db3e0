package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
)

const (
	// DefaultMaxConcurrent is the number of jobs that run at once unless configured.
	DefaultMaxConcurrent = 3
	minConcurrent        = 1
	maxConcurrent        = 10
)

// Queue is an in-memory priority queue that runs at most maxConcurrent
// handlers at a time. Pending jobs are ordered by descending priority and
// keep submission order among equal priorities. The backlog is unbounded.
//
// All job and counter mutations happen under mu.
type Queue struct {
	mu            sync.Mutex
	pending       []*jobs.AnalysisJob
	all           map[string]*jobs.AnalysisJob
	order         []string
	active        int
	maxConcurrent int
	handler       jobs.JobHandler
	closed        bool
	changed       chan struct{}

	store jobs.JobStore
	now   func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxConcurrent sets the initial concurrency limit, clamped to 1..10.
func WithMaxConcurrent(n int) Option {
	return func(q *Queue) { q.maxConcurrent = clampConcurrency(n) }
}

// WithClock overrides the time source used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates a queue. Jobs submitted before Start wait in the backlog.
// store may be nil.
func NewQueue(store jobs.JobStore, opts ...Option) *Queue {
	q := &Queue{
		all:           make(map[string]*jobs.AnalysisJob),
		maxConcurrent: DefaultMaxConcurrent,
		changed:       make(chan struct{}),
		store:         store,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start sets the handler and begins dispatching. ctx is the parent of every
// handler context; cancelling it aborts running jobs.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if q.handler != nil {
		return fmt.Errorf("Start: queue already started")
	}
	q.handler = handler
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.dispatchLocked()
	return nil
}

// Submit enqueues job and returns its ID. The job is copied; later changes
// by the caller are not seen by the queue.
func (q *Queue) Submit(ctx context.Context, job *jobs.AnalysisJob) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", jobs.ErrQueueClosed
	}

	j := job.Clone()
	now := q.now()
	if j.JobID == "" {
		j.JobID = jobs.NewJobID(now)
	}
	if _, dup := q.all[j.JobID]; dup {
		return "", fmt.Errorf("Submit: duplicate job ID %s", j.JobID)
	}
	j.Status = jobs.JobStatusPending
	j.CreatedAt = now
	j.StartedAt, j.CompletedAt = nil, nil
	j.Error, j.AnalysisID = "", ""

	q.insertLocked(j)
	q.all[j.JobID] = j
	q.order = append(q.order, j.JobID)
	q.saveLocked(ctx, j)

	log := logger.FromContext(ctx)
	log.Info().
		Str("job_id", j.JobID).
		Int("priority", j.Priority).
		Int("pending", len(q.pending)).
		Msg("Job submitted")

	q.dispatchLocked()
	q.notifyLocked()
	return j.JobID, nil
}

// insertLocked places j before the first pending job with a lower priority.
func (q *Queue) insertLocked(j *jobs.AnalysisJob) {
	idx := len(q.pending)
	for i, p := range q.pending {
		if p.Priority < j.Priority {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = j
}

func (q *Queue) dispatchLocked() {
	if q.handler == nil || q.closed {
		return
	}
	for q.active < q.maxConcurrent && len(q.pending) > 0 {
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		started := q.now()
		j.Status = jobs.JobStatusProcessing
		j.StartedAt = &started
		q.active++
		q.saveLocked(q.ctx, j)

		q.wg.Add(1)
		go q.run(j.Clone())
	}
}

func (q *Queue) run(job *jobs.AnalysisJob) {
	defer q.wg.Done()

	log := logger.FromContext(q.ctx).With().Str("job_id", job.JobID).Logger()
	ctx := logger.WithContext(q.ctx, log)
	log.Info().Str("file", job.FileName).Msg("Processing job")

	analysisID, err := q.invoke(ctx, job)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.active--
	// Running jobs are never cleared, so the record is still tracked.
	j := q.all[job.JobID]
	completed := q.now()
	j.CompletedAt = &completed
	if err != nil {
		j.Status = jobs.JobStatusFailed
		j.Error = failureMessage(err)
		log.Error().Err(err).Msg("Job failed")
	} else {
		j.Status = jobs.JobStatusCompleted
		j.AnalysisID = analysisID
		log.Info().
			Str("analysis_id", analysisID).
			Dur("duration", completed.Sub(*j.StartedAt)).
			Msg("Job completed")
	}
	q.saveLocked(ctx, j)

	q.dispatchLocked()
	q.notifyLocked()
}

// invoke runs the handler and turns a panic into an error so one document
// cannot take the queue down.
func (q *Queue) invoke(ctx context.Context, job *jobs.AnalysisJob) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return q.handler(ctx, job)
}

// failureMessage reads "analysis failed: <reason>". Stage errors already
// carry that prefix.
func failureMessage(err error) string {
	if errors.Is(err, domain.ErrAnalysis) {
		return err.Error()
	}
	return "analysis failed: " + err.Error()
}

func (q *Queue) saveLocked(ctx context.Context, j *jobs.AnalysisJob) {
	if q.store == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := q.store.SaveJob(ctx, j); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", j.JobID).Msg("Failed to save job state")
	}
}

// notifyLocked wakes Drain callers.
func (q *Queue) notifyLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// Status returns the current counters.
func (q *Queue) Status() jobs.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := jobs.QueueStatus{
		MaxConcurrent: q.maxConcurrent,
		Running:       q.handler != nil && !q.closed,
	}
	for _, j := range q.all {
		switch j.Status {
		case jobs.JobStatusPending:
			s.Pending++
		case jobs.JobStatusProcessing:
			s.Processing++
		case jobs.JobStatusCompleted:
			s.Completed++
		case jobs.JobStatusFailed:
			s.Failed++
		case jobs.JobStatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Job returns a copy of the tracked job.
func (q *Queue) Job(id string) (*jobs.AnalysisJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.all[id]
	if !ok {
		return nil, fmt.Errorf("Job: %s: %w", id, jobs.ErrJobNotFound)
	}
	return j.Clone(), nil
}

// Jobs returns copies of all tracked jobs in submission order.
func (q *Queue) Jobs() []*jobs.AnalysisJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*jobs.AnalysisJob, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.all[id].Clone())
	}
	return out
}

// Cancel removes a pending job from the backlog. Running and finished jobs
// cannot be cancelled.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.all[id]
	if !ok {
		return fmt.Errorf("Cancel: %s: %w", id, jobs.ErrJobNotFound)
	}
	if j.Status != jobs.JobStatusPending {
		return fmt.Errorf("Cancel: %s is %s: %w", id, j.Status, jobs.ErrNotCancellable)
	}
	q.cancelLocked(ctx, j)
	q.notifyLocked()
	return nil
}

func (q *Queue) cancelLocked(ctx context.Context, j *jobs.AnalysisJob) {
	for i, p := range q.pending {
		if p == j {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	now := q.now()
	j.Status = jobs.JobStatusCancelled
	j.CompletedAt = &now
	q.saveLocked(ctx, j)
}

// SetMaxConcurrent changes the concurrency limit, clamped to 1..10, and
// returns the value applied. Raising it starts waiting jobs immediately;
// lowering it lets running jobs finish.
func (q *Queue) SetMaxConcurrent(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.maxConcurrent = clampConcurrency(n)
	q.dispatchLocked()
	return q.maxConcurrent
}

func clampConcurrency(n int) int {
	return max(minConcurrent, min(maxConcurrent, n))
}

// ClearFinished forgets completed, failed and cancelled jobs and returns how
// many were removed.
func (q *Queue) ClearFinished(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.order[:0]
	removed := 0
	for _, id := range q.order {
		j := q.all[id]
		if !j.Status.Finished() {
			kept = append(kept, id)
			continue
		}
		delete(q.all, id)
		removed++
		if q.store != nil {
			if err := q.store.DeleteJob(ctx, id); err != nil {
				log := logger.FromContext(ctx)
				log.Warn().Err(err).Str("job_id", id).Msg("Failed to delete job")
			}
		}
	}
	q.order = kept
	q.notifyLocked()
	return removed
}

// Drain blocks until no job is pending or processing, or ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := len(q.pending) == 0 && q.active == 0
		if !idle && q.handler == nil {
			q.mu.Unlock()
			return fmt.Errorf("Drain: queue not started")
		}
		ch := q.changed
		q.mu.Unlock()

		if idle {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop closes the queue, cancels every pending job and waits for running
// jobs. If ctx expires first, running jobs are cancelled through their
// context and ctx.Err() is returned without waiting further.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for len(q.pending) > 0 {
		q.cancelLocked(ctx, q.pending[0])
	}
	q.notifyLocked()
	cancel := q.cancel
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
		if cancel != nil {
			cancel()
		}
		return ctx.Err()
	}
}
