package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/jobs"
	"github.com/dvloznov/finance-insights/internal/logger"
	"github.com/dvloznov/finance-insights/internal/pipeline"
	"github.com/dvloznov/finance-insights/internal/report"
	"github.com/dvloznov/finance-insights/internal/store"
)

// maxRequestBytes caps JSON request bodies, which may carry full statement text.
const maxRequestBytes = 12 << 20

// Queue is the part of inmemory.Queue the API drives.
type Queue interface {
	Submit(ctx context.Context, job *jobs.AnalysisJob) (string, error)
	Job(id string) (*jobs.AnalysisJob, error)
	Cancel(ctx context.Context, id string) error
	Status() jobs.QueueStatus
	SetMaxConcurrent(n int) int
	ClearFinished(ctx context.Context) int
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Text           string `json:"text"`
	FileName       string `json:"fileName"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Save           bool   `json:"save"`
}

// AnalysesHandler serves synchronous analysis and stored analyses.
type AnalysesHandler struct {
	analyzer pipeline.TextAnalyzer
	store    store.Store
}

// NewAnalysesHandler creates a new analyses handler. st may be nil, in which
// case nothing is saved and the read endpoints answer 503.
func NewAnalysesHandler(analyzer pipeline.TextAnalyzer, st store.Store) *AnalysesHandler {
	return &AnalysesHandler{analyzer: analyzer, store: st}
}

// Analyze handles POST /api/analyze
func (h *AnalysesHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.FileName == "" {
		req.FileName = pipeline.DefaultFileName
	}

	result, err := h.analyzer.AnalyzeText(ctx, pipeline.Input{
		Text:           req.Text,
		FileName:       req.FileName,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		log.Error().Err(err).Str("file_name", req.FileName).Msg("Analysis failed")
		middleware.WriteError(w, analysisStatus(err), err.Error())
		return
	}

	if req.Save {
		if h.store == nil {
			middleware.WriteError(w, http.StatusServiceUnavailable, "No analysis store configured")
			return
		}
		if err := h.store.SaveAnalysis(ctx, result); err != nil {
			log.Error().Err(err).Str("analysis_id", result.ID).Msg("Failed to save analysis")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to save analysis")
			return
		}
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetAnalysis handles GET /api/analyses/{id}
func (h *AnalysesHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetReport handles GET /api/analyses/{id}/report.html
func (h *AnalysesHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	result, ok := h.load(w, r)
	if !ok {
		return
	}

	page, err := report.HTML(result.ReportData)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("analysis_id", result.ID).Msg("Failed to render report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

// GetSuspicious handles GET /api/analyses/{id}/suspicious
func (h *AnalysesHandler) GetSuspicious(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	id := r.PathValue("id")

	txs, err := h.store.SuspiciousTransactions(r.Context(), id)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("analysis_id", id).Msg("Failed to list suspicious transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list suspicious transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ListAnalyses handles GET /api/analyses. Exactly one of riskLevel,
// minScore+maxScore or from+to selects the query.
func (h *AnalysesHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	ctx := r.Context()
	query := r.URL.Query()

	var (
		summaries []store.Summary
		err       error
	)
	switch {
	case query.Has("riskLevel"):
		level := domain.RiskLevel(query.Get("riskLevel"))
		if !level.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "riskLevel must be low, medium or high")
			return
		}
		summaries, err = h.store.ListByRiskLevel(ctx, level)

	case query.Has("minScore") || query.Has("maxScore"):
		lo, errLo := strconv.Atoi(query.Get("minScore"))
		hi, errHi := strconv.Atoi(query.Get("maxScore"))
		if errLo != nil || errHi != nil || lo > hi {
			middleware.WriteError(w, http.StatusBadRequest, "minScore and maxScore must be integers with minScore <= maxScore")
			return
		}
		summaries, err = h.store.ListByScoreRange(ctx, lo, hi)

	case query.Has("from") || query.Has("to"):
		from, errFrom := civil.ParseDate(query.Get("from"))
		to, errTo := civil.ParseDate(query.Get("to"))
		if errFrom != nil || errTo != nil || to.Before(from) {
			middleware.WriteError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD dates with from <= to")
			return
		}
		summaries, err = h.store.ListByDateRange(ctx, from, to)

	default:
		middleware.WriteError(w, http.StatusBadRequest, "One of riskLevel, minScore/maxScore or from/to is required")
		return
	}

	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list analyses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list analyses")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"analyses": summaries,
		"count":    len(summaries),
	})
}

// GetStats handles GET /api/analyses/stats
func (h *AnalysesHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to compute stats")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, stats)
}

func (h *AnalysesHandler) load(w http.ResponseWriter, r *http.Request) (*domain.AnalysisResult, bool) {
	if !h.requireStore(w) {
		return nil, false
	}
	id := r.PathValue("id")

	result, err := h.store.GetAnalysis(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Analysis not found")
		return nil, false
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("analysis_id", id).Msg("Failed to get analysis")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get analysis")
		return nil, false
	}
	return result, true
}

func (h *AnalysesHandler) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "No analysis store configured")
		return false
	}
	return true
}

// analysisStatus maps pipeline failures caused by the document itself to 422.
func analysisStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrContentExtraction), errors.Is(err, domain.ErrTransactionExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// EnqueueRequest is the body of POST /api/jobs.
type EnqueueRequest struct {
	Text           string `json:"text"`
	DocumentURI    string `json:"documentUri"`
	FileName       string `json:"fileName"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Priority       int    `json:"priority"`
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	queue Queue
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(queue Queue, store jobs.JobStore) *JobsHandler {
	return &JobsHandler{queue: queue, store: store}
}

// EnqueueJob handles POST /api/jobs
func (h *JobsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EnqueueRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" && req.DocumentURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Either text or documentUri is required")
		return
	}

	jobID, err := h.queue.Submit(ctx, &jobs.AnalysisJob{
		Text:           req.Text,
		DocumentURI:    req.DocumentURI,
		FileName:       req.FileName,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Priority:       req.Priority,
	})
	if errors.Is(err, jobs.ErrQueueClosed) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Queue is shutting down")
		return
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to enqueue job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]any{
		"jobId":  jobID,
		"status": jobs.JobStatusPending,
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.queue.Job(jobID)
	if errors.Is(err, domain.ErrNotFound) {
		// Cleared from the queue; the store may still have it.
		job, err = h.store.GetJob(r.Context(), jobID)
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
		UserID: query.Get("userId"),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// CancelJob handles DELETE /api/jobs/{id}
func (h *JobsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	err := h.queue.Cancel(r.Context(), jobID)
	switch {
	case err == nil:
		middleware.WriteJSON(w, http.StatusOK, map[string]any{
			"jobId":  jobID,
			"status": jobs.JobStatusCancelled,
		})
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, jobs.ErrNotCancellable):
		middleware.WriteError(w, http.StatusConflict, "Only pending jobs can be cancelled")
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to cancel job")
	}
}

// QueueStatus handles GET /api/queue
func (h *JobsHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status := h.queue.Status()
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"pending":       status.Pending,
		"processing":    status.Processing,
		"completed":     status.Completed,
		"failed":        status.Failed,
		"cancelled":     status.Cancelled,
		"total":         status.Total(),
		"maxConcurrent": status.MaxConcurrent,
		"running":       status.Running,
	})
}

// SetConcurrency handles PUT /api/queue/concurrency. Values are clamped to 1..10.
func (h *JobsHandler) SetConcurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxConcurrent *int `json:"maxConcurrent"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.MaxConcurrent == nil {
		middleware.WriteError(w, http.StatusBadRequest, "maxConcurrent is required")
		return
	}

	applied := h.queue.SetMaxConcurrent(*req.MaxConcurrent)
	log := logger.FromContext(r.Context())
	log.Info().
		Int("requested", *req.MaxConcurrent).
		Int("max_concurrent", applied).
		Msg("Queue concurrency changed")

	middleware.WriteJSON(w, http.StatusOK, map[string]int{"maxConcurrent": applied})
}

// ClearFinished handles DELETE /api/queue/finished.
func (h *JobsHandler) ClearFinished(w http.ResponseWriter, r *http.Request) {
	n := h.queue.ClearFinished(r.Context())
	log := logger.FromContext(r.Context())
	log.Info().Int("cleared", n).Msg("Finished jobs cleared")
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": pipeline.Version,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
