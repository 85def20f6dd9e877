package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gathrio/gathrio/internal/domain/job"
	"github.com/gathrio/gathrio/internal/jobs"
	"github.com/gathrio/gathrio/internal/notifications"
)

type fakeJobsRepo struct {
	mu sync.Mutex

	queue       []job.Job
	done        []string
	failed      map[string]string
	rescheduled map[string]time.Time
}

func newFakeJobsRepo(queue ...job.Job) *fakeJobsRepo {
	return &fakeJobsRepo{
		queue:       queue,
		failed:      make(map[string]string),
		rescheduled: make(map[string]time.Time),
	}
}

func (f *fakeJobsRepo) ClaimNext(_ context.Context, _ string) (job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return job.Job{}, job.ErrJobNotFound
	}

	j := f.queue[0]
	f.queue = f.queue[1:]
	return j, nil
}

func (f *fakeJobsRepo) MarkDone(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobsRepo) MarkFailed(_ context.Context, id string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failed[id] = errMsg
	return nil
}

func (f *fakeJobsRepo) Reschedule(_ context.Context, id string, runAt time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rescheduled[id] = runAt
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	resets   []notifications.PasswordResetInput
	welcomes []notifications.WelcomeInput
	err      error
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, in notifications.PasswordResetInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, in)
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, in notifications.WelcomeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.welcomes = append(f.welcomes, in)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorker(repo *fakeJobsRepo, notifier *fakeNotifier) *Worker {
	return New(Config{WorkerID: "test-worker"}, repo, notifier, nil, discardLogger())
}

func resetJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	raw, err := jobs.PasswordResetEmailPayload{
		UserID:     "user-1",
		Email:      "a@example.com",
		FirstName:  "Ada",
		ResetToken: "the-plaintext-secret",
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}.JSON()
	if err != nil {
		t.Fatalf("payload JSON error: %v", err)
	}

	j := job.New(job.CreateRequest{
		Type:        jobs.TypePasswordResetEmail,
		Payload:     raw,
		MaxAttempts: maxAttempts,
	})
	j.Attempts = attempts
	return j
}

func TestProcessOne_Delivers(t *testing.T) {
	repo := newFakeJobsRepo(resetJob(t, 0, 10))
	notifier := &fakeNotifier{}
	w := testWorker(repo, notifier)

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if !processed {
		t.Fatalf("expected a job to be processed")
	}

	if len(notifier.resets) != 1 {
		t.Fatalf("expected 1 reset mail, got %d", len(notifier.resets))
	}
	if notifier.resets[0].ResetToken != "the-plaintext-secret" {
		t.Fatalf("plaintext secret must reach the notifier")
	}
	if len(repo.done) != 1 {
		t.Fatalf("expected job marked done, done=%v failed=%v", repo.done, repo.failed)
	}
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := testWorker(newFakeJobsRepo(), &fakeNotifier{})

	processed, err := w.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}
	if processed {
		t.Fatalf("nothing to process, got processed=true")
	}
}

func TestProcessOne_RetriesOnFailure(t *testing.T) {
	j := resetJob(t, 2, 10)
	repo := newFakeJobsRepo(j)
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	w := testWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	runAt, ok := repo.rescheduled[j.ID]
	if !ok {
		t.Fatalf("expected a reschedule, failed=%v", repo.failed)
	}
	if !runAt.After(time.Now().UTC()) {
		t.Fatalf("retry must be in the future, got %v", runAt)
	}
}

func TestProcessOne_DeadLettersAtMaxAttempts(t *testing.T) {
	j := resetJob(t, 9, 10) // this failure is the last allowed attempt
	repo := newFakeJobsRepo(j)
	w := testWorker(repo, &fakeNotifier{err: errors.New("smtp down")})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("expected dead-letter, rescheduled=%v", repo.rescheduled)
	}
	if _, ok := repo.rescheduled[j.ID]; ok {
		t.Fatalf("dead-lettered job must not be rescheduled")
	}
}

func TestProcessOne_BadPayloadFailsImmediately(t *testing.T) {
	j := job.New(job.CreateRequest{
		Type:    jobs.TypePasswordResetEmail,
		Payload: []byte(`{"email":"missing-ids"}`),
	})
	repo := newFakeJobsRepo(j)
	w := testWorker(repo, &fakeNotifier{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("malformed payload must dead-letter without retries")
	}
}

func TestProcessOne_UnknownTypeFailsImmediately(t *testing.T) {
	j := job.New(job.CreateRequest{
		Type:    "events.publish",
		Payload: []byte(`{}`),
	})
	repo := newFakeJobsRepo(j)
	w := testWorker(repo, &fakeNotifier{})

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if _, ok := repo.failed[j.ID]; !ok {
		t.Fatalf("unknown type must dead-letter without retries")
	}
}

func TestProcessOne_WelcomeEmail(t *testing.T) {
	raw, err := jobs.WelcomeEmailPayload{UserID: "user-1", Email: "a@example.com", FirstName: "Ada"}.JSON()
	if err != nil {
		t.Fatalf("payload JSON error: %v", err)
	}

	repo := newFakeJobsRepo(job.New(job.CreateRequest{
		Type:    jobs.TypeWelcomeEmail,
		Payload: raw,
	}))
	notifier := &fakeNotifier{}
	w := testWorker(repo, notifier)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne error: %v", err)
	}

	if len(notifier.welcomes) != 1 {
		t.Fatalf("expected 1 welcome mail, got %d", len(notifier.welcomes))
	}
	if len(repo.done) != 1 {
		t.Fatalf("expected job marked done")
	}
}
