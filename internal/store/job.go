package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobboard/apiserver/types"
)

const jobColumns = `id, title, description, company, location, salary, job_type, experience, skills,
	posted_by, applicants, created_at, updated_at, deleted_at`

// JobRepository handles persistence for job postings.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// List returns active jobs, newest first.
func (r *JobRepository) List(ctx context.Context) ([]types.Job, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`
	return r.queryJobs(ctx, query)
}

// ListByPoster returns the active jobs owned by userID, newest first.
func (r *JobRepository) ListByPoster(ctx context.Context, userID int64) ([]types.Job, error) {
	const query = `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE posted_by = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC`
	return r.queryJobs(ctx, query, userID)
}

func (r *JobRepository) Get(ctx context.Context, id int64, visibility Visibility) (types.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1`
	if visibility == ActiveOnly {
		query += ` AND deleted_at IS NULL`
	}
	return scanJob(r.db.QueryRowContext(ctx, query, id))
}

func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Applicants = 0

	const query = `
		INSERT INTO jobs (title, description, company, location, salary, job_type, experience, skills,
			posted_by, applicants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		job.Title,
		job.Description,
		job.Company,
		job.Location,
		job.Salary,
		job.JobType,
		job.Experience,
		job.Skills,
		job.PostedBy,
		job.CreatedAt,
		job.UpdatedAt,
	).Scan(&job.ID); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

// SoftDelete marks an active job as deleted.
func (r *JobRepository) SoftDelete(ctx context.Context, id int64) error {
	const query = `
		UPDATE jobs
		SET deleted_at = $1,
			updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]types.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]types.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func scanJob(row rowScanner) (types.Job, error) {
	var job types.Job
	var salary, experience, skills sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Description,
		&job.Company,
		&job.Location,
		&salary,
		&job.JobType,
		&experience,
		&skills,
		&job.PostedBy,
		&job.Applicants,
		&job.CreatedAt,
		&job.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}
	job.Salary = nullStringPtr(salary)
	job.Experience = nullStringPtr(experience)
	job.Skills = nullStringPtr(skills)
	if deletedAt.Valid {
		job.DeletedAt = &deletedAt.Time
	}
	return job, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
