package types

import "time"

// Job is a job posting in the catalog.
type Job struct {
	// ID is the unique identifier of the job.
	ID int64 `json:"id" db:"id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Company     string `json:"company" db:"company"`
	Location    string `json:"location" db:"location"`

	// Salary is free text such as "$120,000 - $160,000/year".
	Salary *string `json:"salary" db:"salary"`

	// JobType is a free-text category (full-time, internship, ...).
	JobType string `json:"jobType" db:"job_type"`

	// Experience is free text such as "3-5 years".
	Experience *string `json:"experience" db:"experience"`

	// Skills is a comma separated list.
	Skills *string `json:"skills" db:"skills"`

	// PostedBy is the id of the user who owns the posting. It is not a
	// foreign key; ownership is checked by the operations that mutate jobs.
	PostedBy int64 `json:"postedBy" db:"posted_by"`

	// Applicants counts the active applications for this job. It is only
	// changed in the same transaction as the application row it counts.
	Applicants int `json:"applicants" db:"applicants"`

	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}
