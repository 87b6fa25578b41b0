package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

// Sort orders accepted by JobService.List.
const (
	SortNewest       = "newest"
	SortOldest       = "oldest"
	SortSalaryHigh   = "salary-high"
	SortSalaryLow    = "salary-low"
	SortAlphabetical = "alphabetical"
)

var salaryDigits = regexp.MustCompile(`\d+`)

// JobRepository defines persistence operations for jobs.
type JobRepository interface {
	List(ctx context.Context) ([]types.Job, error)
	ListByPoster(ctx context.Context, userID int64) ([]types.Job, error)
	Get(ctx context.Context, id int64, visibility store.Visibility) (types.Job, error)
	Create(ctx context.Context, job types.Job) (types.Job, error)
	SoftDelete(ctx context.Context, id int64) error
}

type ListOptions struct {
	Query string
	Sort  string
}

type CreateJobInput struct {
	Title       string
	Company     string
	Location    string
	JobType     string
	Description string
	Salary      string
	Experience  string
	Skills      string
}

// JobService encapsulates the job catalog.
type JobService struct {
	repo   JobRepository
	logger *slog.Logger
}

func NewJobService(repo JobRepository, logger *slog.Logger) *JobService {
	return &JobService{repo: repo, logger: logger}
}

// List returns active jobs matching opts.Query, ordered by opts.Sort.
// Unknown sort values fall back to newest first.
func (s *JobService) List(ctx context.Context, opts ListOptions) ([]types.Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if query := strings.ToLower(strings.TrimSpace(opts.Query)); query != "" {
		jobs = slices.DeleteFunc(jobs, func(job types.Job) bool {
			return !strings.Contains(strings.ToLower(job.Title), query) &&
				!strings.Contains(strings.ToLower(job.Company), query) &&
				!strings.Contains(strings.ToLower(job.Location), query)
		})
	}

	switch opts.Sort {
	case SortOldest:
		slices.SortStableFunc(jobs, func(a, b types.Job) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
	case SortSalaryHigh:
		slices.SortStableFunc(jobs, func(a, b types.Job) int {
			return cmp.Compare(ParseSalary(b.Salary), ParseSalary(a.Salary))
		})
	case SortSalaryLow:
		slices.SortStableFunc(jobs, func(a, b types.Job) int {
			return cmp.Compare(ParseSalary(a.Salary), ParseSalary(b.Salary))
		})
	case SortAlphabetical:
		slices.SortStableFunc(jobs, func(a, b types.Job) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	}
	return jobs, nil
}

// ParseSalary returns the first run of digits in salary, or 0.
func ParseSalary(salary *string) int64 {
	if salary == nil {
		return 0
	}
	digits := salaryDigits.FindString(*salary)
	if digits == "" {
		return 0
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func (s *JobService) Get(ctx context.Context, id int64) (types.Job, error) {
	job, err := s.repo.Get(ctx, id, store.ActiveOnly)
	if errors.Is(err, store.ErrNotFound) {
		return types.Job{}, ErrJobNotFound
	}
	return job, err
}

func (s *JobService) ListPostedBy(ctx context.Context, userID int64) ([]types.Job, error) {
	return s.repo.ListByPoster(ctx, userID)
}

func (s *JobService) Create(ctx context.Context, input CreateJobInput, postedBy int64) (types.Job, error) {
	job := types.Job{
		Title:       strings.TrimSpace(input.Title),
		Company:     strings.TrimSpace(input.Company),
		Location:    strings.TrimSpace(input.Location),
		JobType:     strings.TrimSpace(input.JobType),
		Description: strings.TrimSpace(input.Description),
		Salary:      optionalText(input.Salary),
		Experience:  optionalText(input.Experience),
		Skills:      optionalText(input.Skills),
		PostedBy:    postedBy,
	}

	switch {
	case job.Title == "":
		return types.Job{}, invalid("Job title is required")
	case job.Company == "":
		return types.Job{}, invalid("Company name is required")
	case job.Location == "":
		return types.Job{}, invalid("Location is required")
	case job.JobType == "":
		return types.Job{}, invalid("Job type is required")
	case job.Description == "":
		return types.Job{}, invalid("Job description is required")
	}

	created, err := s.repo.Create(ctx, job)
	if err != nil {
		return types.Job{}, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("job created", "job_id", created.ID, "posted_by", postedBy)
	return created, nil
}

// Delete soft-deletes a job. Only its poster may delete it.
func (s *JobService) Delete(ctx context.Context, actorID, jobID int64) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.PostedBy != actorID {
		return ErrForbidden
	}
	if err := s.repo.SoftDelete(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("delete job: %w", err)
	}
	s.logger.Info("job deleted", "job_id", jobID)
	return nil
}

func optionalText(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
