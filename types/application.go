package types

import "time"

const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// Application records a user's application to a job.
type Application struct {
	ID          int64      `json:"id" db:"id"`
	JobID       int64      `json:"jobId" db:"job_id"`
	UserID      int64      `json:"userId" db:"user_id"`
	Status      string     `json:"status" db:"status"`
	AppliedAt   time.Time  `json:"appliedAt" db:"applied_at"`
	CoverLetter *string    `json:"coverLetter" db:"cover_letter"`
	ResumePath  *string    `json:"resumePath" db:"resume_path"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
}

// ValidApplicationStatus reports whether status is a known application status.
func ValidApplicationStatus(status string) bool {
	switch status {
	case ApplicationStatusPending, ApplicationStatusAccepted, ApplicationStatusRejected:
		return true
	default:
		return false
	}
}
