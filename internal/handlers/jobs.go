package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobboard/apiserver/internal/services"
)

// JobHandler provides HTTP handlers for the job catalog.
type JobHandler struct {
	jobService *services.JobService
	logger     *slog.Logger
}

func NewJobHandler(jobService *services.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobService: jobService, logger: logger}
}

// JobRouter registers catalog routes under /jobs on the given router.
func JobRouter(r chi.Router, jobService *services.JobService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewJobHandler(jobService, logger)

	r.Get("/jobs", handler.ListJobs)
	r.With(requireSession).Post("/jobs", handler.CreateJob)
	r.With(requireSession).Get("/jobs/posted", handler.ListPostedJobs)
	r.Get("/jobs/{jobID}", handler.GetJob)
	r.With(requireSession).Delete("/jobs/{jobID}", handler.DeleteJob)
}

type JobRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	JobType     string `json:"jobType"`
	Description string `json:"description"`
	Salary      string `json:"salary"`
	Experience  string `json:"experience"`
	Skills      string `json:"skills"`
}

// ListJobs returns active jobs, optionally filtered by ?q= and ordered by
// ?sort=.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	jobs, err := h.jobService.List(r.Context(), services.ListOptions{
		Query: query.Get("q"),
		Sort:  query.Get("sort"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch jobs")
		return
	}
	writeSuccess(w, http.StatusOK, "", jobs)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := urlParamID(r, "jobID")
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	job, err := h.jobService.Get(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch job")
		return
	}
	writeSuccess(w, http.StatusOK, "", job)
}

// CreateJob posts a job owned by the caller.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req JobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.jobService.Create(r.Context(), services.CreateJobInput{
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		JobType:     req.JobType,
		Description: req.Description,
		Salary:      req.Salary,
		Experience:  req.Experience,
		Skills:      req.Skills,
	}, identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to post job")
		return
	}
	writeSuccess(w, http.StatusCreated, "Job posted successfully", job)
}

// ListPostedJobs returns the caller's own postings with applicant counts.
func (h *JobHandler) ListPostedJobs(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	jobs, err := h.jobService.ListPostedBy(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch jobs")
		return
	}
	writeSuccess(w, http.StatusOK, "", jobs)
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	jobID, ok := urlParamID(r, "jobID")
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	if err := h.jobService.Delete(r.Context(), identity.UserID, jobID); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to delete job")
		return
	}
	writeSuccess(w, http.StatusOK, "Job deleted", nil)
}
