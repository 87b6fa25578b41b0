package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/jobboard/apiserver/internal/storage"
)

const resumeKeyPrefix = "resumes/"

// ObjectReader reads stored objects by key.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// UploadHandler serves stored resumes at the paths recorded on applications.
type UploadHandler struct {
	objects ObjectReader
	logger  *slog.Logger
}

func NewUploadHandler(objects ObjectReader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{objects: objects, logger: logger}
}

// UploadRouter registers /resumes/{name} on the given router.
func UploadRouter(r chi.Router, objects ObjectReader, logger *slog.Logger) {
	handler := NewUploadHandler(objects, logger)
	r.Get("/resumes/{name}", handler.GetResume)
}

func (h *UploadHandler) GetResume(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		http.NotFound(w, r)
		return
	}

	object, err := h.objects.Get(r.Context(), resumeKeyPrefix+name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to read resume", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer object.Close()

	// Sniff the type from the stored bytes rather than trusting the name.
	head := make([]byte, 3072)
	n, err := io.ReadFull(object, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.logger.ErrorContext(r.Context(), "failed to read resume", "name", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	head = head[:n]

	w.Header().Set("Content-Type", mimetype.Detect(head).String())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", "inline")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(head); err != nil {
		return
	}
	if _, err := io.Copy(w, object); err != nil {
		h.logger.WarnContext(r.Context(), "resume stream interrupted", "name", name, "error", err)
	}
}
