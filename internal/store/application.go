package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobboard/apiserver/types"
)

const applicationColumns = `id, job_id, user_id, status, applied_at, cover_letter, resume_path, updated_at, deleted_at`

// ApplicationRepository handles persistence for job applications and keeps
// jobs.applicants in step with them.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// ExistsActive reports whether userID has a non-deleted application for jobID.
func (r *ApplicationRepository) ExistsActive(ctx context.Context, jobID, userID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE job_id = $1 AND user_id = $2 AND deleted_at IS NULL
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jobID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateAndCount inserts the application and increments the job's applicant
// counter in one transaction. It returns the stored application and the
// counter value after the increment.
func (r *ApplicationRepository) CreateAndCount(ctx context.Context, app types.Application) (types.Application, int, error) {
	now := time.Now()
	app.AppliedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = types.ApplicationStatusPending
	}

	var applicants int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const insertQuery = `
			INSERT INTO applications (job_id, user_id, status, applied_at, cover_letter, resume_path, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			insertQuery,
			app.JobID,
			app.UserID,
			app.Status,
			app.AppliedAt,
			app.CoverLetter,
			app.ResumePath,
			app.UpdatedAt,
		).Scan(&app.ID); err != nil {
			return translateError(err)
		}

		const incrementQuery = `
			UPDATE jobs
			SET applicants = applicants + 1
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING applicants`
		if err := tx.QueryRowContext(ctx, incrementQuery, app.JobID).Scan(&applicants); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return types.Application{}, 0, err
	}
	return app, applicants, nil
}

// WithdrawAndCount soft-deletes the active application of userID for jobID
// and decrements the job's applicant counter in one transaction.
func (r *ApplicationRepository) WithdrawAndCount(ctx context.Context, jobID, userID int64) (int, error) {
	var applicants int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()
		const withdrawQuery = `
			UPDATE applications
			SET deleted_at = $1,
				updated_at = $1
			WHERE job_id = $2 AND user_id = $3 AND deleted_at IS NULL
			RETURNING id`
		var id int64
		if err := tx.QueryRowContext(ctx, withdrawQuery, now, jobID, userID).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const decrementQuery = `
			UPDATE jobs
			SET applicants = GREATEST(applicants - 1, 0)
			WHERE id = $1
			RETURNING applicants`
		if err := tx.QueryRowContext(ctx, decrementQuery, jobID).Scan(&applicants); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applicants, nil
}

// ListJobIDsByUser returns the job ids userID has active applications for.
func (r *ApplicationRepository) ListJobIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	const query = `
		SELECT job_id
		FROM applications
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY applied_at DESC`
	return queryIDs(ctx, r.db, query, userID)
}

// ListByJob returns the active applications for jobID, oldest first.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID int64) ([]types.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE job_id = $1 AND deleted_at IS NULL
		ORDER BY applied_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]types.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id int64) (types.Application, error) {
	const query = `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE id = $1 AND deleted_at IS NULL`
	return scanApplication(r.db.QueryRowContext(ctx, query, id))
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, status string) (types.Application, error) {
	const query = `
		UPDATE applications
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING ` + applicationColumns
	return scanApplication(r.db.QueryRowContext(ctx, query, status, time.Now(), id))
}

func scanApplication(row rowScanner) (types.Application, error) {
	var app types.Application
	var coverLetter, resumePath sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&app.ID,
		&app.JobID,
		&app.UserID,
		&app.Status,
		&app.AppliedAt,
		&coverLetter,
		&resumePath,
		&app.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	app.CoverLetter = nullStringPtr(coverLetter)
	app.ResumePath = nullStringPtr(resumePath)
	if deletedAt.Valid {
		app.DeletedAt = &deletedAt.Time
	}
	return app, nil
}

func queryIDs(ctx context.Context, db *sql.DB, query string, args ...any) ([]int64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
