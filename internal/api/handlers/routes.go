package handlers

import "net/http"

// Routes registers every API endpoint on mux.
func Routes(mux *http.ServeMux, analyses *AnalysesHandler, jobsH *JobsHandler) {
	mux.HandleFunc("POST /api/analyze", analyses.Analyze)
	mux.HandleFunc("GET /api/analyses", analyses.ListAnalyses)
	mux.HandleFunc("GET /api/analyses/stats", analyses.GetStats)
	mux.HandleFunc("GET /api/analyses/{id}", analyses.GetAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/report.html", analyses.GetReport)
	mux.HandleFunc("GET /api/analyses/{id}/suspicious", analyses.GetSuspicious)

	mux.HandleFunc("POST /api/jobs", jobsH.EnqueueJob)
	mux.HandleFunc("GET /api/jobs", jobsH.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsH.GetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", jobsH.CancelJob)

	mux.HandleFunc("GET /api/queue", jobsH.QueueStatus)
	mux.HandleFunc("PUT /api/queue/concurrency", jobsH.SetConcurrency)
	mux.HandleFunc("DELETE /api/queue/finished", jobsH.ClearFinished)

	mux.HandleFunc("GET /health", Health)
}
