package types

import "time"

// SavedJob is a bookmark between a user and a job. Unsaving soft-deletes
// the row and saving again restores it.
type SavedJob struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"userId" db:"user_id"`
	JobID     int64      `json:"jobId" db:"job_id"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}
