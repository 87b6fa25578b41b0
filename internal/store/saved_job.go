package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jobboard/apiserver/types"
)

// SavedJobRepository handles persistence for saved-job bookmarks.
type SavedJobRepository struct {
	db *sql.DB
}

func NewSavedJobRepository(db *sql.DB) *SavedJobRepository {
	return &SavedJobRepository{db: db}
}

// ListJobIDs returns the job ids userID has actively saved.
func (r *SavedJobRepository) ListJobIDs(ctx context.Context, userID int64) ([]int64, error) {
	const query = `
		SELECT job_id
		FROM saved_jobs
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`
	return queryIDs(ctx, r.db, query, userID)
}

// Save inserts the bookmark, or restores the soft-deleted row for the same
// pair so its id is kept.
func (r *SavedJobRepository) Save(ctx context.Context, userID, jobID int64) (types.SavedJob, error) {
	const query = `
		INSERT INTO saved_jobs (user_id, job_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, job_id) DO UPDATE SET deleted_at = NULL
		RETURNING id, user_id, job_id, created_at`
	var saved types.SavedJob
	if err := r.db.QueryRowContext(ctx, query, userID, jobID, time.Now()).Scan(
		&saved.ID,
		&saved.UserID,
		&saved.JobID,
		&saved.CreatedAt,
	); err != nil {
		return types.SavedJob{}, err
	}
	return saved, nil
}

// Unsave soft-deletes the active bookmark. It reports whether a row changed;
// calling it again for the same pair is a no-op.
func (r *SavedJobRepository) Unsave(ctx context.Context, userID, jobID int64) (bool, error) {
	const query = `
		UPDATE saved_jobs
		SET deleted_at = $1
		WHERE user_id = $2 AND job_id = $3 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), userID, jobID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
