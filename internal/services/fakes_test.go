package services

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jobboard/apiserver/internal/notify"
	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memDB is an in-memory stand-in for the relational store. The repositories
// below share it so the applicant counter moves with applications.
type memDB struct {
	mu     sync.Mutex
	nextID int64
	users  []types.User
	jobs   map[int64]*types.Job
	apps   []*types.Application
	saved  []*types.SavedJob
}

func newMemDB() *memDB {
	return &memDB{jobs: make(map[int64]*types.Job)}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

type memUsers struct {
	db *memDB
	// beforeCreate runs ahead of the uniqueness check to simulate a
	// concurrent registration.
	beforeCreate func()
}

func (r *memUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.ID == id && u.DeletedAt == nil {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUsers) FindByEmailOrUsername(_ context.Context, email, username string) ([]types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []types.User
	for _, u := range r.db.users {
		if u.DeletedAt == nil && (u.Email == email || u.Username == username) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.DeletedAt == nil && (u.Email == user.Email || u.Username == user.Username) {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.db.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.db.users = append(r.db.users, user)
	return user, nil
}

func (r *memUsers) UpdateName(_ context.Context, id int64, name string) (types.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.users {
		if r.db.users[i].ID == id && r.db.users[i].DeletedAt == nil {
			r.db.users[i].Name = name
			return r.db.users[i], nil
		}
	}
	return types.User{}, store.ErrNotFound
}

type memJobs struct {
	db *memDB
}

func (r *memJobs) insert(job types.Job) types.Job {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	job.ID = r.db.id()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	stored := job
	r.db.jobs[job.ID] = &stored
	return stored
}

func (r *memJobs) sorted(keep func(types.Job) bool) []types.Job {
	out := make([]types.Job, 0)
	for _, job := range r.db.jobs {
		if job.DeletedAt == nil && keep(*job) {
			out = append(out, *job)
		}
	}
	slices.SortFunc(out, func(a, b types.Job) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out
}

func (r *memJobs) List(_ context.Context) ([]types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(func(types.Job) bool { return true }), nil
}

func (r *memJobs) ListByPoster(_ context.Context, userID int64) ([]types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.sorted(func(j types.Job) bool { return j.PostedBy == userID }), nil
}

func (r *memJobs) Get(_ context.Context, id int64, visibility store.Visibility) (types.Job, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	job, ok := r.db.jobs[id]
	if !ok || (visibility == store.ActiveOnly && job.DeletedAt != nil) {
		return types.Job{}, store.ErrNotFound
	}
	return *job, nil
}

func (r *memJobs) Create(_ context.Context, job types.Job) (types.Job, error) {
	job.Applicants = 0
	return r.insert(job), nil
}

func (r *memJobs) SoftDelete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	job, ok := r.db.jobs[id]
	if !ok || job.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	job.DeletedAt = &now
	return nil
}

type memApplications struct {
	db *memDB
	// failCreate, when set, is returned by CreateAndCount after nothing
	// was written, like a rolled back transaction.
	failCreate error
}

func (r *memApplications) active(jobID, userID int64) *types.Application {
	for _, app := range r.db.apps {
		if app.JobID == jobID && app.UserID == userID && app.DeletedAt == nil {
			return app
		}
	}
	return nil
}

func (r *memApplications) ExistsActive(_ context.Context, jobID, userID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.active(jobID, userID) != nil, nil
}

func (r *memApplications) CreateAndCount(_ context.Context, app types.Application) (types.Application, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.failCreate != nil {
		return types.Application{}, 0, r.failCreate
	}
	if r.active(app.JobID, app.UserID) != nil {
		return types.Application{}, 0, store.ErrConflict
	}
	job, ok := r.db.jobs[app.JobID]
	if !ok || job.DeletedAt != nil {
		return types.Application{}, 0, store.ErrNotFound
	}
	app.ID = r.db.id()
	app.AppliedAt = time.Now()
	app.UpdatedAt = app.AppliedAt
	stored := app
	r.db.apps = append(r.db.apps, &stored)
	job.Applicants++
	return stored, job.Applicants, nil
}

func (r *memApplications) WithdrawAndCount(_ context.Context, jobID, userID int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	app := r.active(jobID, userID)
	if app == nil {
		return 0, store.ErrNotFound
	}
	now := time.Now()
	app.DeletedAt = &now
	job := r.db.jobs[jobID]
	if job.Applicants > 0 {
		job.Applicants--
	}
	return job.Applicants, nil
}

func (r *memApplications) ListJobIDsByUser(_ context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make([]int64, 0)
	for _, app := range r.db.apps {
		if app.UserID == userID && app.DeletedAt == nil {
			ids = append(ids, app.JobID)
		}
	}
	return ids, nil
}

func (r *memApplications) ListByJob(_ context.Context, jobID int64) ([]types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]types.Application, 0)
	for _, app := range r.db.apps {
		if app.JobID == jobID && app.DeletedAt == nil {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (r *memApplications) Get(_ context.Context, id int64) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, app := range r.db.apps {
		if app.ID == id && app.DeletedAt == nil {
			return *app, nil
		}
	}
	return types.Application{}, store.ErrNotFound
}

func (r *memApplications) UpdateStatus(_ context.Context, id int64, status string) (types.Application, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, app := range r.db.apps {
		if app.ID == id && app.DeletedAt == nil {
			app.Status = status
			return *app, nil
		}
	}
	return types.Application{}, store.ErrNotFound
}

type memSavedJobs struct {
	db *memDB
}

func (r *memSavedJobs) ListJobIDs(_ context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make([]int64, 0)
	for _, s := range r.db.saved {
		if s.UserID == userID && s.DeletedAt == nil {
			ids = append(ids, s.JobID)
		}
	}
	return ids, nil
}

func (r *memSavedJobs) Save(_ context.Context, userID, jobID int64) (types.SavedJob, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.saved {
		if s.UserID == userID && s.JobID == jobID {
			s.DeletedAt = nil
			return *s, nil
		}
	}
	s := &types.SavedJob{ID: r.db.id(), UserID: userID, JobID: jobID, CreatedAt: time.Now()}
	r.db.saved = append(r.db.saved, s)
	return *s, nil
}

func (r *memSavedJobs) Unsave(_ context.Context, userID, jobID int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.saved {
		if s.UserID == userID && s.JobID == jobID && s.DeletedAt == nil {
			now := time.Now()
			s.DeletedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *memSavedJobs) activeRows(userID, jobID int64) int {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, s := range r.db.saved {
		if s.UserID == userID && s.JobID == jobID && s.DeletedAt == nil {
			n++
		}
	}
	return n
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) ApplicationSubmitted(ctx context.Context, event notify.ApplicationSubmitted) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
