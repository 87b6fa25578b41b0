package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobboard/apiserver/internal/services"
	"github.com/jobboard/apiserver/types"
)

const (
	// maxApplyBodyBytes bounds the whole multipart body. It leaves room above
	// the resume limit so an oversized resume is reported as such.
	maxApplyBodyBytes  = 4 * services.MaxResumeSize
	maxMultipartMemory = 8 << 20

	formFieldJobID       = "jobId"
	formFieldCoverLetter = "coverLetter"
	formFieldResume      = "resume"
)

// ApplicationHandler provides HTTP handlers for applying to jobs and for
// reviewing the applications a poster received.
type ApplicationHandler struct {
	applicationService *services.ApplicationService
	logger             *slog.Logger
}

func NewApplicationHandler(applicationService *services.ApplicationService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, logger: logger}
}

// ApplicationRouter registers application routes on the given router. Every
// route requires a session.
func ApplicationRouter(r chi.Router, applicationService *services.ApplicationService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewApplicationHandler(applicationService, logger)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/jobs/apply", handler.Apply)
		r.Get("/jobs/applied", handler.ListApplied)
		r.Delete("/jobs/{jobID}/application", handler.Withdraw)
		r.Get("/jobs/{jobID}/applications", handler.ListForJob)
		r.Patch("/applications/{applicationID}", handler.UpdateStatus)
	})
}

type ApplyRequest struct {
	JobID       int64  `json:"jobId"`
	CoverLetter string `json:"coverLetter"`
}

type ApplyResponse struct {
	JobID      int64 `json:"jobId"`
	Applicants int   `json:"applicants"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// Apply accepts multipart/form-data with an optional resume, or a JSON body.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var input services.ApplyInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, err := parseApplyForm(w, r)
		if err != nil {
			if errors.Is(err, services.ErrResumeTooLarge) {
				writeServiceError(w, r, h.logger, err, "Failed to apply")
				return
			}
			writeError(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		input = parsed
	} else {
		var req ApplyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		input = services.ApplyInput{JobID: req.JobID, CoverLetter: req.CoverLetter}
	}
	input.UserID = identity.UserID

	result, err := h.applicationService.Apply(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to apply")
		return
	}

	writeSuccess(w, http.StatusOK, "Application submitted", ApplyResponse{
		JobID:      result.JobID,
		Applicants: result.Applicants,
	})
}

func parseApplyForm(w http.ResponseWriter, r *http.Request) (services.ApplyInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxApplyBodyBytes)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.ApplyInput{}, services.ErrResumeTooLarge
		}
		return services.ApplyInput{}, err
	}

	// An unparsable jobId is treated like a missing one.
	jobID, err := parseOptionalInt64(r.FormValue(formFieldJobID))
	if err != nil {
		jobID = 0
	}
	input := services.ApplyInput{
		JobID:       jobID,
		CoverLetter: r.FormValue(formFieldCoverLetter),
	}

	files := r.MultipartForm.File[formFieldResume]
	if len(files) == 0 || files[0].Size == 0 {
		return input, nil
	}
	fileHeader := files[0]
	if fileHeader.Size > services.MaxResumeSize {
		return services.ApplyInput{}, services.ErrResumeTooLarge
	}

	file, err := fileHeader.Open()
	if err != nil {
		return services.ApplyInput{}, err
	}
	data, err := readFileLimited(file, services.MaxResumeSize)
	_ = file.Close()
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return services.ApplyInput{}, services.ErrResumeTooLarge
		}
		return services.ApplyInput{}, err
	}

	input.Resume = &services.ResumeUpload{Filename: fileHeader.Filename, Data: data}
	return input, nil
}

// ListApplied returns the ids of the jobs the caller has applied to.
func (h *ApplicationHandler) ListApplied(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	jobIDs, err := h.applicationService.AppliedJobIDs(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch applied jobs")
		return
	}
	writeSuccess(w, http.StatusOK, "", jobIDs)
}

func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
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

	applicants, err := h.applicationService.Withdraw(r.Context(), identity.UserID, jobID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to withdraw application")
		return
	}
	writeSuccess(w, http.StatusOK, "Application withdrawn", ApplyResponse{
		JobID:      jobID,
		Applicants: applicants,
	})
}

// ListForJob returns the applications a job received. Only its poster may
// call it.
func (h *ApplicationHandler) ListForJob(w http.ResponseWriter, r *http.Request) {
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

	apps, err := h.applicationService.ListForJob(r.Context(), identity.UserID, jobID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch applications")
		return
	}
	if apps == nil {
		apps = []types.Application{}
	}
	writeSuccess(w, http.StatusOK, "", apps)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	applicationID, ok := urlParamID(r, "applicationID")
	if !ok {
		writeError(w, http.StatusNotFound, "Application not found")
		return
	}

	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	app, err := h.applicationService.UpdateStatus(r.Context(), identity.UserID, applicationID, req.Status)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to update application")
		return
	}
	writeSuccess(w, http.StatusOK, "Application updated", app)
}
