package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gathrio/gathrio/internal/domain/job"
	"github.com/gathrio/gathrio/internal/jobs"
	"github.com/gathrio/gathrio/internal/notifications"
)

// ProcessOne claims and runs a single job. It reports whether a job was
// available; claim starvation is not an error.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err = w.execute(ctx, j)

	if err != nil {
		w.handleFailure(ctx, j, err)
		w.observeResultFor(j, start, resultFor(j, err))
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeResultFor(j, start, "failed")
		return true, err
	}

	w.observeResultFor(j, start, "done")
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j.Type, j.Payload)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.PasswordResetEmailPayload:
		return w.notifier.SendPasswordReset(ctx, notifications.PasswordResetInput{
			Email:      p.Email,
			FirstName:  p.FirstName,
			ResetToken: p.ResetToken,
			ExpiresAt:  p.ExpiresAt.UTC().Format(time.RFC3339),
		})

	case jobs.WelcomeEmailPayload:
		return w.notifier.SendWelcome(ctx, notifications.WelcomeInput{
			Email:     p.Email,
			FirstName: p.FirstName,
		})

	default:
		return jobs.ErrUnknownJobType
	}
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	// Malformed or unknown payloads never succeed; dead-letter immediately.
	if errors.Is(execErr, jobs.ErrUnknownJobType) || errors.Is(execErr, jobs.ErrInvalidJobPayload) {
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	if j.Attempts+1 >= j.MaxAttempts {
		_ = w.repo.MarkFailed(ctx, j.ID, fmt.Sprintf("max attempts reached: %v", execErr))
		w.log.Error("job dead-lettered", "job_id", j.ID, "type", j.Type, "err", execErr)
		return
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error())

	if err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "err", err)
	}
}

func resultFor(j job.Job, execErr error) string {
	if errors.Is(execErr, jobs.ErrUnknownJobType) || errors.Is(execErr, jobs.ErrInvalidJobPayload) {
		return "failed"
	}
	if j.Attempts+1 >= j.MaxAttempts {
		return "failed"
	}
	return "retry"
}

func (w *Worker) observeResultFor(j job.Job, start time.Time, result string) {
	if w.prom == nil {
		return
	}

	w.prom.JobResults.WithLabelValues(j.Type, result).Inc()
	w.prom.JobDuration.WithLabelValues(j.Type, result).Observe(time.Since(start).Seconds())
}
