package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/api/middleware"
	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/jobs"
	"github.com/dvloznov/finance-dashboard/internal/profiles"
)

// JobTypes reports which job types have a registered handler.
type JobTypes interface {
	Handles(t jobs.JobType) bool
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	repo      *profiles.Repository
	store     jobs.JobStore
	publisher jobs.Publisher
	types     JobTypes
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(repo *profiles.Repository, store jobs.JobStore, publisher jobs.Publisher, types JobTypes, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		repo:      repo,
		store:     store,
		publisher: publisher,
		types:     types,
		log:       log,
	}
}

// Register adds the job routes to mux.
func (h *JobsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("POST /api/profiles/{profile}/insights", h.EnqueueInsight)
	mux.HandleFunc("POST /api/profiles/{profile}/jobs", h.EnqueueJob)
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Profile: query.Get("profile"),
		Type:    jobs.JobType(query.Get("type")),
		Status:  jobs.JobStatus(query.Get("status")),
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

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		writeFailure(w, h.log, err, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.Job{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// EnqueueInsight handles POST /api/profiles/{profile}/insights
func (h *JobsHandler) EnqueueInsight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AsOf     string `json:"asOf"`
		Language string `json:"language"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeFailure(w, h.log, err, "Invalid request body")
			return
		}
	}

	params := map[string]string{}
	if req.AsOf != "" {
		d, err := domain.ParseDate(req.AsOf)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid asOf date")
			return
		}
		params["as_of"] = d.String()
	}
	if req.Language != "" {
		params["language"] = req.Language
	}

	h.enqueue(w, r, jobs.JobTypeGenerateInsight, params)
}

// EnqueueJob handles POST /api/profiles/{profile}/jobs
func (h *JobsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   jobs.JobType      `json:"type"`
		Params map[string]string `json:"params"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, h.log, err, "Invalid request body")
		return
	}
	if v := req.Params["as_of"]; v != "" {
		if _, err := civil.ParseDate(v); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid as_of date")
			return
		}
	}

	h.enqueue(w, r, req.Type, req.Params)
}

func (h *JobsHandler) enqueue(w http.ResponseWriter, r *http.Request, t jobs.JobType, params map[string]string) {
	ctx := r.Context()

	if !h.types.Handles(t) {
		middleware.WriteError(w, http.StatusBadRequest, "Job type "+strings.TrimSpace(string(t))+" is not available")
		return
	}

	profile := r.PathValue("profile")
	if _, err := h.repo.Load(ctx, profile); err != nil {
		writeFailure(w, h.log, err, "Failed to load profile")
		return
	}

	job := &jobs.Job{Type: t, Profile: profile, Params: params}
	if err := h.publisher.Publish(ctx, job); err != nil {
		writeFailure(w, h.log, err, "Failed to enqueue job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("type", string(t)).Str("profile", profile).Msg("Job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}
