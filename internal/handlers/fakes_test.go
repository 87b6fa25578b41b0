package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

type memState struct {
	mu     sync.Mutex
	nextID int64
	users  []types.User
	jobs   []*types.Job
	apps   []*types.Application
	saved  map[[2]int64]bool
}

func newMemState() *memState {
	return &memState{saved: make(map[[2]int64]bool)}
}

func (m *memState) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memState) job(id int64) *types.Job {
	for _, job := range m.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

type userRepo struct{ m *memState }

func (r userRepo) GetByID(_ context.Context, id int64) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r userRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r userRepo) FindByEmailOrUsername(_ context.Context, email, username string) ([]types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []types.User
	for _, u := range r.m.users {
		if u.Email == email || u.Username == username {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r userRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user.ID = r.m.id()
	user.CreatedAt = time.Now()
	r.m.users = append(r.m.users, user)
	return user, nil
}

func (r userRepo) UpdateName(_ context.Context, id int64, name string) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range r.m.users {
		if r.m.users[i].ID == id {
			r.m.users[i].Name = name
			return r.m.users[i], nil
		}
	}
	return types.User{}, store.ErrNotFound
}

type jobRepo struct{ m *memState }

func (r jobRepo) active(keep func(types.Job) bool) []types.Job {
	out := make([]types.Job, 0)
	for i := len(r.m.jobs) - 1; i >= 0; i-- {
		job := r.m.jobs[i]
		if job.DeletedAt == nil && keep(*job) {
			out = append(out, *job)
		}
	}
	return out
}

func (r jobRepo) List(context.Context) ([]types.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.active(func(types.Job) bool { return true }), nil
}

func (r jobRepo) ListByPoster(_ context.Context, userID int64) ([]types.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.active(func(j types.Job) bool { return j.PostedBy == userID }), nil
}

func (r jobRepo) Get(_ context.Context, id int64, visibility store.Visibility) (types.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	job := r.m.job(id)
	if job == nil || (visibility == store.ActiveOnly && job.DeletedAt != nil) {
		return types.Job{}, store.ErrNotFound
	}
	return *job, nil
}

func (r jobRepo) Create(_ context.Context, job types.Job) (types.Job, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	job.ID = r.m.id()
	job.CreatedAt = time.Now()
	stored := job
	r.m.jobs = append(r.m.jobs, &stored)
	return stored, nil
}

func (r jobRepo) SoftDelete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	job := r.m.job(id)
	if job == nil || job.DeletedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	job.DeletedAt = &now
	return nil
}

type applicationRepo struct{ m *memState }

func (r applicationRepo) find(jobID, userID int64) *types.Application {
	for _, app := range r.m.apps {
		if app.JobID == jobID && app.UserID == userID && app.DeletedAt == nil {
			return app
		}
	}
	return nil
}

func (r applicationRepo) ExistsActive(_ context.Context, jobID, userID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.find(jobID, userID) != nil, nil
}

func (r applicationRepo) CreateAndCount(_ context.Context, app types.Application) (types.Application, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.find(app.JobID, app.UserID) != nil {
		return types.Application{}, 0, store.ErrConflict
	}
	job := r.m.job(app.JobID)
	if job == nil || job.DeletedAt != nil {
		return types.Application{}, 0, store.ErrNotFound
	}
	app.ID = r.m.id()
	app.AppliedAt = time.Now()
	stored := app
	r.m.apps = append(r.m.apps, &stored)
	job.Applicants++
	return stored, job.Applicants, nil
}

func (r applicationRepo) WithdrawAndCount(_ context.Context, jobID, userID int64) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	app := r.find(jobID, userID)
	if app == nil {
		return 0, store.ErrNotFound
	}
	now := time.Now()
	app.DeletedAt = &now
	job := r.m.job(jobID)
	job.Applicants--
	return job.Applicants, nil
}

func (r applicationRepo) ListJobIDsByUser(_ context.Context, userID int64) ([]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := make([]int64, 0)
	for _, app := range r.m.apps {
		if app.UserID == userID && app.DeletedAt == nil {
			ids = append(ids, app.JobID)
		}
	}
	return ids, nil
}

func (r applicationRepo) ListByJob(_ context.Context, jobID int64) ([]types.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]types.Application, 0)
	for _, app := range r.m.apps {
		if app.JobID == jobID && app.DeletedAt == nil {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (r applicationRepo) Get(_ context.Context, id int64) (types.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, app := range r.m.apps {
		if app.ID == id && app.DeletedAt == nil {
			return *app, nil
		}
	}
	return types.Application{}, store.ErrNotFound
}

func (r applicationRepo) UpdateStatus(_ context.Context, id int64, status string) (types.Application, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, app := range r.m.apps {
		if app.ID == id && app.DeletedAt == nil {
			app.Status = status
			return *app, nil
		}
	}
	return types.Application{}, store.ErrNotFound
}

type savedJobRepo struct {
	m    *memState
	fail bool
}

var errDatabaseDown = errors.New("database is down")

func (r savedJobRepo) ListJobIDs(_ context.Context, userID int64) ([]int64, error) {
	if r.fail {
		return nil, errDatabaseDown
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := make([]int64, 0)
	for key, active := range r.m.saved {
		if key[0] == userID && active {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (r savedJobRepo) Save(_ context.Context, userID, jobID int64) (types.SavedJob, error) {
	if r.fail {
		return types.SavedJob{}, errDatabaseDown
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.saved[[2]int64{userID, jobID}] = true
	return types.SavedJob{UserID: userID, JobID: jobID}, nil
}

func (r savedJobRepo) Unsave(_ context.Context, userID, jobID int64) (bool, error) {
	if r.fail {
		return false, errDatabaseDown
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := [2]int64{userID, jobID}
	was := r.m.saved[key]
	r.m.saved[key] = false
	return was, nil
}
