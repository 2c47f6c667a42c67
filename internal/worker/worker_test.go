package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/delivery"
	"github.com/geocoder89/applyhub/internal/domain/job"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/jobs"
	"github.com/geocoder89/applyhub/internal/notifications"
	"github.com/geocoder89/applyhub/internal/repo/memory"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeJobs struct {
	mu          sync.Mutex
	queue       []job.Job
	done        []string
	failed      map[string]string
	rescheduled map[string]time.Time
}

func newFakeJobs(js ...job.Job) *fakeJobs {
	return &fakeJobs{queue: js, failed: map[string]string{}, rescheduled: map[string]time.Time{}}
}

func (f *fakeJobs) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}
	j := f.queue[0]
	f.queue = f.queue[1:]
	return j, nil
}

func (f *fakeJobs) MarkDone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobs) MarkFailed(ctx context.Context, id string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobs) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeJobs) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	return 0, nil
}

type fakeDeliveries struct {
	TryStartFn func(kind delivery.Kind, subjectID string) error
	sent       []string
	failed     []string
}

func (f *fakeDeliveries) TryStart(ctx context.Context, kind delivery.Kind, subjectID, jobID, recipient string) error {
	if f.TryStartFn != nil {
		return f.TryStartFn(kind, subjectID)
	}
	return nil
}

func (f *fakeDeliveries) MarkSent(ctx context.Context, kind delivery.Kind, subjectID string, providerMessageID *string) error {
	f.sent = append(f.sent, subjectID)
	return nil
}

func (f *fakeDeliveries) MarkFailed(ctx context.Context, kind delivery.Kind, subjectID, errMsg string) error {
	f.failed = append(f.failed, subjectID)
	return nil
}

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) SendFinalizationNotice(ctx context.Context, in notifications.FinalizationNoticeInput) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "msg-" + in.UserID, nil
}

func noticeJob(t *testing.T, id string, attempts, maxAttempts int) job.Job {
	t.Helper()
	raw, err := jobs.Encode(jobs.TypeFinalizationNotice, jobs.FinalizationNoticePayload{
		UserID: "u1", Email: "a@x.com", Name: "Ada", FinalizedAt: t0,
	})
	require.NoError(t, err)

	j := job.New(job.CreateRequest{Type: jobs.TypeFinalizationNotice, Payload: raw, MaxAttempts: maxAttempts}, t0)
	j.ID = id
	j.Attempts = attempts
	return j
}

func newTestWorker(js *fakeJobs, d *fakeDeliveries, n *fakeNotifier) *Worker {
	return New(Config{WorkerID: "test"}, Deps{
		Jobs:       js,
		Deliveries: d,
		Notifier:   n,
		Now:        func() time.Time { return t0 },
	})
}

func TestProcessOne_NothingToDo(t *testing.T) {
	w := newTestWorker(newFakeJobs(), &fakeDeliveries{}, &fakeNotifier{})

	processed, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestProcessOne_SendsFinalizationNotice(t *testing.T) {
	js := newFakeJobs(noticeJob(t, "j1", 0, 5))
	d := &fakeDeliveries{}
	n := &fakeNotifier{}

	processed, err := newTestWorker(js, d, n).ProcessOne(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Equal(t, 1, n.calls)
	require.Equal(t, []string{"u1"}, d.sent)
	require.Equal(t, []string{"j1"}, js.done)
}

func TestProcessOne_AlreadySentIsDone(t *testing.T) {
	js := newFakeJobs(noticeJob(t, "j1", 0, 5))
	d := &fakeDeliveries{TryStartFn: func(delivery.Kind, string) error { return delivery.ErrAlreadySent }}
	n := &fakeNotifier{}

	_, err := newTestWorker(js, d, n).ProcessOne(context.Background())
	require.NoError(t, err)

	require.Zero(t, n.calls)
	require.Equal(t, []string{"j1"}, js.done)
}

func TestProcessOne_RetriesWithBackoff(t *testing.T) {
	js := newFakeJobs(noticeJob(t, "j1", 1, 5))
	d := &fakeDeliveries{}
	n := &fakeNotifier{err: notifications.ErrProviderDown}

	_, err := newTestWorker(js, d, n).ProcessOne(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"u1"}, d.failed)
	require.Empty(t, js.done)
	runAt, ok := js.rescheduled["j1"]
	require.True(t, ok)
	require.GreaterOrEqual(t, runAt.Sub(t0), 4*time.Second)
}

func TestProcessOne_LastAttemptFails(t *testing.T) {
	js := newFakeJobs(noticeJob(t, "j1", 4, 5))
	n := &fakeNotifier{err: errors.New("boom")}

	_, err := newTestWorker(js, &fakeDeliveries{}, n).ProcessOne(context.Background())
	require.NoError(t, err)

	require.Contains(t, js.failed["j1"], "boom")
	require.Empty(t, js.rescheduled)
}

func TestProcessOne_BadPayloadFailsPermanently(t *testing.T) {
	j := job.New(job.CreateRequest{Type: jobs.TypeFinalizationNotice, Payload: json.RawMessage(`{"userId":""}`)}, t0)
	js := newFakeJobs(j)

	_, err := newTestWorker(js, &fakeDeliveries{}, &fakeNotifier{}).ProcessOne(context.Background())
	require.NoError(t, err)

	require.Contains(t, js.failed, j.ID)
	require.Empty(t, js.rescheduled)
}

func exportFixture(t *testing.T, requesterRole user.Role) (*Worker, *fakeJobs, string, job.Job) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for i, u := range []user.User{
		{ID: "admin", Email: "admin@x.com", Name: "Admin", Role: requesterRole, CreatedAt: t0},
		{ID: "u1", Email: "a@x.com", Name: "Ada", Role: user.RoleApplicant, CreatedAt: t0.Add(time.Second)},
		{ID: "u2", Email: "b@x.com", Name: "Bob, Jr.", Role: user.RoleApplicant, CreatedAt: t0.Add(2 * time.Second)},
	} {
		u.PasswordHash = "x"
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, store.Users().Create(ctx, u), "user %d", i)
	}

	raw, err := jobs.Encode(jobs.TypeExportApplicantsCSV, jobs.ExportApplicantsCSVPayload{RequestedBy: "admin", RequestedAt: t0})
	require.NoError(t, err)
	j := job.New(job.CreateRequest{Type: jobs.TypeExportApplicantsCSV, Payload: raw, MaxAttempts: 5}, t0)

	dir := t.TempDir()
	js := newFakeJobs(j)
	w := New(Config{WorkerID: "test", ExportDir: dir}, Deps{
		Jobs:     js,
		Accounts: service.NewAccounts(store, security.Hasher{Cost: bcrypt.MinCost}),
		Ranking:  service.NewRanking(store),
		Now:      func() time.Time { return t0 },
	})
	return w, js, dir, j
}

func TestProcessOne_ExportWritesCSV(t *testing.T) {
	w, js, dir, j := exportFixture(t, user.RoleAdmin)

	_, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{j.ID}, js.done)

	b, err := os.ReadFile(filepath.Join(dir, jobs.ExportFileName(j.ID)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Rank,Name,Email,Total Submissions,Finalized", lines[0])
	require.Equal(t, "1,Ada,a@x.com,0,No", lines[1])
	require.Equal(t, `2,"Bob, Jr.",b@x.com,0,No`, lines[2])
}

func TestProcessOne_ExportByDemotedRequesterFails(t *testing.T) {
	w, js, dir, j := exportFixture(t, user.RoleApplicant)

	_, err := w.ProcessOne(context.Background())
	require.NoError(t, err)

	require.Contains(t, js.failed, j.ID)
	require.Empty(t, js.rescheduled)

	_, statErr := os.Stat(filepath.Join(dir, jobs.ExportFileName(j.ID)))
	require.True(t, os.IsNotExist(statErr))
}

func TestExponentialBackoff(t *testing.T) {
	require.GreaterOrEqual(t, ExponentialBackoff(0), 2*time.Second)
	require.Less(t, ExponentialBackoff(0), 3*time.Second)
	require.GreaterOrEqual(t, ExponentialBackoff(2), 8*time.Second)
	require.LessOrEqual(t, ExponentialBackoff(40), 5*time.Minute+250*time.Millisecond)
}
