package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobboard/apiserver/types"
)

// SavedJobRepository defines persistence operations for saved jobs.
type SavedJobRepository interface {
	ListJobIDs(ctx context.Context, userID int64) ([]int64, error)
	Save(ctx context.Context, userID, jobID int64) (types.SavedJob, error)
	Unsave(ctx context.Context, userID, jobID int64) (bool, error)
}

// SavedJobService toggles a user's bookmarks. Both directions are
// idempotent.
type SavedJobService struct {
	repo   SavedJobRepository
	logger *slog.Logger
}

func NewSavedJobService(repo SavedJobRepository, logger *slog.Logger) *SavedJobService {
	return &SavedJobService{repo: repo, logger: logger}
}

func (s *SavedJobService) List(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.ListJobIDs(ctx, userID)
}

// Save bookmarks jobID, restoring an earlier bookmark for the same pair.
func (s *SavedJobService) Save(ctx context.Context, userID, jobID int64) (types.SavedJob, error) {
	if jobID <= 0 {
		return types.SavedJob{}, ErrMissingJobID
	}
	saved, err := s.repo.Save(ctx, userID, jobID)
	if err != nil {
		return types.SavedJob{}, fmt.Errorf("save job: %w", err)
	}
	return saved, nil
}

func (s *SavedJobService) Unsave(ctx context.Context, userID, jobID int64) error {
	if jobID <= 0 {
		return ErrMissingJobID
	}
	changed, err := s.repo.Unsave(ctx, userID, jobID)
	if err != nil {
		return fmt.Errorf("unsave job: %w", err)
	}
	if !changed {
		s.logger.Debug("unsave was a no-op", "user_id", userID, "job_id", jobID)
	}
	return nil
}
