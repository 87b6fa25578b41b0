package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jobboard/apiserver/internal/notify"
	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

// MaxResumeSize is the largest resume upload accepted.
const MaxResumeSize = 5 << 20

const (
	resumeKeyPrefix   = "resumes/"
	resumeURLPrefix   = "/uploads/resumes/"
	mimePDF           = "application/pdf"
	mimeMSWord        = "application/msword"
	mimeWordOpenXML   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	defaultResumeName = "resume"
)

var (
	resumeMIMETypes = []string{mimePDF, mimeMSWord, mimeWordOpenXML}
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9.\-_]`)
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	ExistsActive(ctx context.Context, jobID, userID int64) (bool, error)
	CreateAndCount(ctx context.Context, app types.Application) (types.Application, int, error)
	WithdrawAndCount(ctx context.Context, jobID, userID int64) (int, error)
	ListJobIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	ListByJob(ctx context.Context, jobID int64) ([]types.Application, error)
	Get(ctx context.Context, id int64) (types.Application, error)
	UpdateStatus(ctx context.Context, id int64, status string) (types.Application, error)
}

// JobLookup is the read side of the job catalog the workflow needs.
type JobLookup interface {
	Get(ctx context.Context, id int64, visibility store.Visibility) (types.Job, error)
}

// ObjectStore persists uploaded files. *storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher announces committed applications.
type EventPublisher interface {
	ApplicationSubmitted(ctx context.Context, event notify.ApplicationSubmitted) error
}

// ResumeUpload is a resume file received with an application.
type ResumeUpload struct {
	Filename string
	Data     []byte
}

type ApplyInput struct {
	JobID       int64
	UserID      int64
	CoverLetter string
	Resume      *ResumeUpload
}

type ApplyResult struct {
	JobID       int64
	Applicants  int
	Application types.Application
}

// ApplicationService runs the apply/withdraw workflow and the poster's
// review of applications.
type ApplicationService struct {
	apps    ApplicationRepository
	jobs    JobLookup
	objects ObjectStore
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
}

func NewApplicationService(
	apps ApplicationRepository,
	jobs JobLookup,
	objects ObjectStore,
	events EventPublisher,
	logger *slog.Logger,
) *ApplicationService {
	return &ApplicationService{
		apps:    apps,
		jobs:    jobs,
		objects: objects,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

type validResume struct {
	data        []byte
	contentType string
	filename    string
}

// Apply records an application and returns the job's applicant count after
// it was counted.
func (s *ApplicationService) Apply(ctx context.Context, input ApplyInput) (ApplyResult, error) {
	var resume *validResume
	if input.Resume != nil {
		validated, err := validateResume(*input.Resume)
		if err != nil {
			return ApplyResult{}, err
		}
		resume = &validated
	}
	if input.JobID <= 0 {
		return ApplyResult{}, ErrMissingJobID
	}

	exists, err := s.apps.ExistsActive(ctx, input.JobID, input.UserID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("check existing application: %w", err)
	}
	if exists {
		return ApplyResult{}, ErrAlreadyApplied
	}

	job, err := s.jobs.Get(ctx, input.JobID, store.ActiveOnly)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ApplyResult{}, ErrJobNotFound
		}
		return ApplyResult{}, fmt.Errorf("load job: %w", err)
	}
	if job.PostedBy == input.UserID {
		return ApplyResult{}, ErrSelfApply
	}

	app := types.Application{
		JobID:       input.JobID,
		UserID:      input.UserID,
		Status:      types.ApplicationStatusPending,
		CoverLetter: optionalText(input.CoverLetter),
	}

	var resumeKey string
	if resume != nil {
		name := ResumeObjectName(s.now(), input.UserID, input.JobID, resume.filename)
		resumeKey = resumeKeyPrefix + name
		if err := s.objects.Put(ctx, resumeKey, bytes.NewReader(resume.data), int64(len(resume.data)), resume.contentType); err != nil {
			return ApplyResult{}, fmt.Errorf("store resume: %w", err)
		}
		resumePath := resumeURLPrefix + name
		app.ResumePath = &resumePath
	}

	created, applicants, err := s.apps.CreateAndCount(ctx, app)
	if err != nil {
		if resumeKey != "" {
			s.discardResume(resumeKey)
		}
		switch {
		case errors.Is(err, store.ErrConflict):
			return ApplyResult{}, ErrAlreadyApplied
		case errors.Is(err, store.ErrNotFound):
			return ApplyResult{}, ErrJobNotFound
		}
		return ApplyResult{}, fmt.Errorf("create application: %w", err)
	}

	s.logger.Info("application submitted",
		"application_id", created.ID,
		"job_id", created.JobID,
		"user_id", created.UserID,
		"applicants", applicants,
	)
	s.publishSubmitted(ctx, created, job, applicants)

	return ApplyResult{JobID: created.JobID, Applicants: applicants, Application: created}, nil
}

func (s *ApplicationService) discardResume(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.objects.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned resume", "key", key, "error", err)
	}
}

func (s *ApplicationService) publishSubmitted(ctx context.Context, app types.Application, job types.Job, applicants int) {
	if s.events == nil {
		return
	}
	event := notify.ApplicationSubmitted{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		JobTitle:      job.Title,
		UserID:        app.UserID,
		PostedBy:      job.PostedBy,
		Applicants:    applicants,
		AppliedAt:     app.AppliedAt,
	}
	if app.ResumePath != nil {
		event.ResumePath = *app.ResumePath
	}
	if err := s.events.ApplicationSubmitted(ctx, event); err != nil {
		s.logger.Warn("failed to publish application event", "application_id", app.ID, "error", err)
	}
}

// validateResume enforces the size limit and sniffs the content type, which
// must be PDF or Word.
func validateResume(upload ResumeUpload) (validResume, error) {
	if len(upload.Data) > MaxResumeSize {
		return validResume{}, ErrResumeTooLarge
	}
	if len(upload.Data) == 0 {
		return validResume{}, ErrUnsupportedResume
	}
	detected := mimetype.Detect(upload.Data)
	for _, allowed := range resumeMIMETypes {
		if detected.Is(allowed) {
			return validResume{
				data:        upload.Data,
				contentType: allowed,
				filename:    upload.Filename,
			}, nil
		}
	}
	return validResume{}, ErrUnsupportedResume
}

// ResumeObjectName builds "{unixMillis}-{userID}-{jobID}-{name}" where every
// character of the original name outside [A-Za-z0-9.-_] becomes "_".
func ResumeObjectName(at time.Time, userID, jobID int64, original string) string {
	base := path.Base(original)
	if base == "." || base == "/" || base == "" {
		base = defaultResumeName
	}
	return fmt.Sprintf("%d-%d-%d-%s", at.UnixMilli(), userID, jobID, unsafeNameChars.ReplaceAllString(base, "_"))
}

// AppliedJobIDs lists the jobs userID currently has an application for.
func (s *ApplicationService) AppliedJobIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.apps.ListJobIDsByUser(ctx, userID)
}

// Withdraw soft-deletes the caller's application and returns the job's
// applicant count afterwards.
func (s *ApplicationService) Withdraw(ctx context.Context, userID, jobID int64) (int, error) {
	if jobID <= 0 {
		return 0, ErrMissingJobID
	}
	applicants, err := s.apps.WithdrawAndCount(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrApplicationNotFound
		}
		return 0, fmt.Errorf("withdraw application: %w", err)
	}
	s.logger.Info("application withdrawn", "job_id", jobID, "user_id", userID, "applicants", applicants)
	return applicants, nil
}

// ListForJob returns the applications to a job. Only its poster may see them.
func (s *ApplicationService) ListForJob(ctx context.Context, actorID, jobID int64) ([]types.Application, error) {
	if _, err := s.ownedJob(ctx, actorID, jobID); err != nil {
		return nil, err
	}
	return s.apps.ListByJob(ctx, jobID)
}

// UpdateStatus lets a job's poster accept or reject an application.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actorID, applicationID int64, status string) (types.Application, error) {
	if !types.ValidApplicationStatus(status) {
		return types.Application{}, invalid("Status must be pending, accepted or rejected")
	}
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, ErrApplicationNotFound
		}
		return types.Application{}, fmt.Errorf("load application: %w", err)
	}
	if _, err := s.ownedJob(ctx, actorID, app.JobID); err != nil {
		return types.Application{}, err
	}

	updated, err := s.apps.UpdateStatus(ctx, applicationID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Application{}, ErrApplicationNotFound
		}
		return types.Application{}, fmt.Errorf("update application status: %w", err)
	}
	s.logger.Info("application status changed", "application_id", applicationID, "status", status)
	return updated, nil
}

// ownedJob loads a job, deleted or not, and checks actorID posted it.
func (s *ApplicationService) ownedJob(ctx context.Context, actorID, jobID int64) (types.Job, error) {
	job, err := s.jobs.Get(ctx, jobID, store.IncludeDeleted)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Job{}, ErrJobNotFound
		}
		return types.Job{}, fmt.Errorf("load job: %w", err)
	}
	if job.PostedBy != actorID {
		return types.Job{}, ErrForbidden
	}
	return job, nil
}
