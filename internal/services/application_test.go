package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/apiserver/internal/notify"
	"github.com/jobboard/apiserver/internal/store"
	"github.com/jobboard/apiserver/types"
)

const (
	posterID    int64 = 1
	applicantA  int64 = 2
	applicantB  int64 = 3
	fixedMillis int64 = 1767225600000
)

type applyFixture struct {
	svc     *ApplicationService
	db      *memDB
	jobs    *memJobs
	apps    *memApplications
	objects *mockObjectStore
	events  *mockPublisher
	job     types.Job
}

func newApplyFixture(t *testing.T) *applyFixture {
	t.Helper()
	db := newMemDB()
	jobs := &memJobs{db: db}
	apps := &memApplications{db: db}
	objects := &mockObjectStore{}
	events := &mockPublisher{}
	events.On("ApplicationSubmitted", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewApplicationService(apps, jobs, objects, events, discardLogger())
	svc.now = func() time.Time { return time.UnixMilli(fixedMillis) }

	job := jobs.insert(types.Job{Title: "Go Engineer", Company: "Acme", PostedBy: posterID})
	return &applyFixture{svc: svc, db: db, jobs: jobs, apps: apps, objects: objects, events: events, job: job}
}

func pdfOfSize(size int) []byte {
	data := make([]byte, size)
	copy(data, "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	for i := 16; i < size; i++ {
		data[i] = 'a'
	}
	return data
}

func TestApply_ApplicantCounterScenario(t *testing.T) {
	f := newApplyFixture(t)
	ctx := context.Background()

	result, err := f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	require.NoError(t, err)
	assert.Equal(t, f.job.ID, result.JobID)
	assert.Equal(t, 1, result.Applicants)
	assert.Equal(t, types.ApplicationStatusPending, result.Application.Status)

	_, err = f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	result, err = f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantB})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applicants)

	job, err := f.jobs.Get(ctx, f.job.ID, store.IncludeDeleted)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Applicants)

	f.events.AssertNumberOfCalls(t, "ApplicationSubmitted", 2)
	f.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_SelfApplyRejected(t *testing.T) {
	f := newApplyFixture(t)

	_, err := f.svc.Apply(context.Background(), ApplyInput{JobID: f.job.ID, UserID: posterID, CoverLetter: "hire me"})
	assert.ErrorIs(t, err, ErrSelfApply)
	assert.Empty(t, f.db.apps)
}

func TestApply_JobMissingOrDeleted(t *testing.T) {
	f := newApplyFixture(t)
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, ApplyInput{JobID: 999, UserID: applicantA})
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, f.jobs.SoftDelete(ctx, f.job.ID))
	_, err = f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = f.svc.Apply(ctx, ApplyInput{UserID: applicantA})
	assert.ErrorIs(t, err, ErrMissingJobID)
}

func TestApply_DuplicateCheckedBeforeJob(t *testing.T) {
	f := newApplyFixture(t)
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	require.NoError(t, err)
	require.NoError(t, f.jobs.SoftDelete(ctx, f.job.ID))

	_, err = f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestApply_StoresResume(t *testing.T) {
	f := newApplyFixture(t)
	data := pdfOfSize(4 << 20)

	var stored []byte
	f.objects.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, int64(len(data)), "application/pdf").
		Run(func(args mock.Arguments) {
			stored, _ = io.ReadAll(args.Get(2).(io.Reader))
		}).
		Return(nil).Once()

	result, err := f.svc.Apply(context.Background(), ApplyInput{
		JobID:       f.job.ID,
		UserID:      applicantA,
		CoverLetter: "Hello",
		Resume:      &ResumeUpload{Filename: "my résumé (final).pdf", Data: data},
	})
	require.NoError(t, err)

	wantName := "1767225600000-2-" + itoa(f.job.ID) + "-my_r_sum___final_.pdf"
	require.NotNil(t, result.Application.ResumePath)
	assert.Equal(t, "/uploads/resumes/"+wantName, *result.Application.ResumePath)
	assert.True(t, strings.HasPrefix(*result.Application.ResumePath, "/uploads/resumes/"))
	assert.True(t, bytes.Equal(data, stored))
	require.NotNil(t, result.Application.CoverLetter)
	assert.Equal(t, "Hello", *result.Application.CoverLetter)

	f.objects.AssertCalled(t, "Put", mock.Anything, "resumes/"+wantName, mock.Anything, int64(len(data)), "application/pdf")
	f.events.AssertCalled(t, "ApplicationSubmitted", mock.Anything, mock.MatchedBy(func(e notify.ApplicationSubmitted) bool {
		return e.ResumePath == "/uploads/resumes/"+wantName && e.PostedBy == posterID && e.Applicants == 1
	}))
}

func TestApply_ResumeTooLarge(t *testing.T) {
	f := newApplyFixture(t)

	_, err := f.svc.Apply(context.Background(), ApplyInput{
		JobID:  f.job.ID,
		UserID: applicantA,
		Resume: &ResumeUpload{Filename: "cv.pdf", Data: pdfOfSize(6 << 20)},
	})
	assert.ErrorIs(t, err, ErrResumeTooLarge)
	assert.Empty(t, f.db.apps)
	f.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_ResumeFormat(t *testing.T) {
	f := newApplyFixture(t)

	for name, data := range map[string][]byte{
		"notes.txt": []byte("just some plain text, not a resume document"),
		"cv.pdf":    []byte("\x89PNG\r\n\x1a\n renamed image"),
		"empty.pdf": {},
	} {
		_, err := f.svc.Apply(context.Background(), ApplyInput{
			JobID:  f.job.ID,
			UserID: applicantA,
			Resume: &ResumeUpload{Filename: name, Data: data},
		})
		assert.ErrorIs(t, err, ErrUnsupportedResume, name)
	}
	assert.Empty(t, f.db.apps)
}

func TestApply_ResumeNotStoredWhenRejected(t *testing.T) {
	f := newApplyFixture(t)

	_, err := f.svc.Apply(context.Background(), ApplyInput{
		JobID:  f.job.ID,
		UserID: posterID,
		Resume: &ResumeUpload{Filename: "cv.pdf", Data: pdfOfSize(1024)},
	})
	assert.ErrorIs(t, err, ErrSelfApply)
	f.objects.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApply_RemovesResumeWhenInsertFails(t *testing.T) {
	f := newApplyFixture(t)
	f.apps.failCreate = errors.New("connection reset")
	f.objects.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.objects.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "resumes/")
	})).Return(nil).Once()

	_, err := f.svc.Apply(context.Background(), ApplyInput{
		JobID:  f.job.ID,
		UserID: applicantA,
		Resume: &ResumeUpload{Filename: "cv.pdf", Data: pdfOfSize(1024)},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyApplied)
	f.objects.AssertExpectations(t)
	f.events.AssertNotCalled(t, "ApplicationSubmitted", mock.Anything, mock.Anything)
}

func TestApply_EventFailureDoesNotFailApply(t *testing.T) {
	db := newMemDB()
	jobs := &memJobs{db: db}
	events := &mockPublisher{}
	events.On("ApplicationSubmitted", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	svc := NewApplicationService(&memApplications{db: db}, jobs, &mockObjectStore{}, events, discardLogger())
	job := jobs.insert(types.Job{Title: "Go Engineer", PostedBy: posterID})

	result, err := svc.Apply(context.Background(), ApplyInput{JobID: job.ID, UserID: applicantA})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applicants)
	events.AssertExpectations(t)
}

func TestResumeObjectName(t *testing.T) {
	at := time.UnixMilli(fixedMillis)

	assert.Equal(t, "1767225600000-2-9-cv.pdf", ResumeObjectName(at, 2, 9, "cv.pdf"))
	assert.Equal(t, "1767225600000-2-9-passwd", ResumeObjectName(at, 2, 9, "../../etc/passwd"))
	assert.Equal(t, "1767225600000-2-9-resume", ResumeObjectName(at, 2, 9, ""))
	assert.Equal(t, "1767225600000-2-9-a_b_c.docx", ResumeObjectName(at, 2, 9, "a b;c.docx"))
}

func TestWithdraw(t *testing.T) {
	f := newApplyFixture(t)
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantB})
	require.NoError(t, err)

	applicants, err := f.svc.Withdraw(ctx, applicantA, f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, applicants)

	_, err = f.svc.Withdraw(ctx, applicantA, f.job.ID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	ids, err := f.svc.AppliedJobIDs(ctx, applicantA)
	require.NoError(t, err)
	assert.Empty(t, ids)

	result, err := f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applicants)
}

func TestListForJobAndUpdateStatus_OwnerOnly(t *testing.T) {
	f := newApplyFixture(t)
	ctx := context.Background()
	applied, err := f.svc.Apply(ctx, ApplyInput{JobID: f.job.ID, UserID: applicantA})
	require.NoError(t, err)

	_, err = f.svc.ListForJob(ctx, applicantB, f.job.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	apps, err := f.svc.ListForJob(ctx, posterID, f.job.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, applicantA, apps[0].UserID)

	_, err = f.svc.UpdateStatus(ctx, applicantA, applied.Application.ID, types.ApplicationStatusAccepted)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, posterID, applied.Application.ID, "hired")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UpdateStatus(ctx, posterID, 999, types.ApplicationStatusAccepted)
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	updated, err := f.svc.UpdateStatus(ctx, posterID, applied.Application.ID, types.ApplicationStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, types.ApplicationStatusAccepted, updated.Status)

	_, err = f.svc.ListForJob(ctx, posterID, 999)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
