package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jobboard/apiserver/internal/services"
)

// SavedJobHandler provides the bookmark endpoints.
type SavedJobHandler struct {
	savedJobService *services.SavedJobService
	logger          *slog.Logger
}

func NewSavedJobHandler(savedJobService *services.SavedJobService, logger *slog.Logger) *SavedJobHandler {
	return &SavedJobHandler{savedJobService: savedJobService, logger: logger}
}

// SavedJobRouter registers /jobs/saved on the given router.
func SavedJobRouter(r chi.Router, savedJobService *services.SavedJobService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewSavedJobHandler(savedJobService, logger)

	r.With(requireSession).Get("/jobs/saved", handler.List)
	r.With(requireSession).Post("/jobs/saved", handler.Save)
	r.With(requireSession).Delete("/jobs/saved", handler.Unsave)
}

type SavedJobRequest struct {
	JobID int64 `json:"jobId"`
}

func (h *SavedJobHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	jobIDs, err := h.savedJobService.List(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to fetch saved jobs")
		return
	}
	writeSuccess(w, http.StatusOK, "", jobIDs)
}

func (h *SavedJobHandler) Save(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req SavedJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.savedJobService.Save(r.Context(), identity.UserID, req.JobID); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to save job")
		return
	}
	writeSuccess(w, http.StatusOK, "", nil)
}

func (h *SavedJobHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req SavedJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.savedJobService.Unsave(r.Context(), identity.UserID, req.JobID); err != nil {
		writeServiceError(w, r, h.logger, err, "Failed to unsave job")
		return
	}
	writeSuccess(w, http.StatusOK, "", nil)
}
