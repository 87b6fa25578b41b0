package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jobboard/apiserver/internal/services"
)

const maxJSONBodyBytes = 1 << 20

var errUploadTooLarge = errors.New("uploaded file too large")

type errorMapping struct {
	err     error
	status  int
	message string
}

// serviceErrors maps service failures to what the client sees. Anything not
// listed is an internal error.
var serviceErrors = []errorMapping{
	{services.ErrMissingJobID, http.StatusBadRequest, "Missing jobId"},
	{services.ErrResumeTooLarge, http.StatusBadRequest, "Resume file too large (max 5MB)"},
	{services.ErrUnsupportedResume, http.StatusBadRequest, "Unsupported resume format"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{services.ErrSelfApply, http.StatusForbidden, "You cannot apply to your own job posting"},
	{services.ErrForbidden, http.StatusForbidden, "You do not have access to this resource"},
	{services.ErrJobNotFound, http.StatusNotFound, "Job not found"},
	{services.ErrApplicationNotFound, http.StatusNotFound, "Application not found"},
	{services.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{services.ErrEmailTaken, http.StatusConflict, "Email already exists"},
	{services.ErrUsernameTaken, http.StatusConflict, "Username already exists"},
	{services.ErrAlreadyApplied, http.StatusConflict, "You have already applied to this job"},
}

// writeServiceError answers with the status registered for err, or logs it
// and answers 500 with fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		writeError(w, http.StatusBadRequest, validation.Message)
		return
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.message)
			return
		}
	}
	logger.ErrorContext(r.Context(), fallback,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, fallback)
}
