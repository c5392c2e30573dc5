package notifications

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
)

// JobRunner is what the daily trigger invokes.
type JobRunner interface {
	Run(ctx context.Context) Result
}

// StartDaily runs the alert job once per day at hour:minute in loc. Blocks
// until ctx is cancelled. Intended to be called with `go`.
func StartDaily(ctx context.Context, runner JobRunner, hour, minute int, loc *time.Location, logger *slog.Logger) {
	logger.Info("Daily alert scheduler started",
		"at", time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04"),
		"timezone", loc.String())

	for {
		next := NextRun(time.Now(), hour, minute, loc)
		logger.Info("Next alert job scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			runDaily(ctx, runner, logger)
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Daily alert scheduler stopped")
			return
		}
	}
}

func runDaily(ctx context.Context, runner JobRunner, logger *slog.Logger) {
	logger.Info("Running daily deadline alert job")
	result := runner.Run(ctx)
	LogResult(logger, result)
}

// RunLock lets one of several replicas claim a day's scheduled run.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// LockHolder is implemented by run locks that record who claimed a key.
type LockHolder interface {
	Holder(ctx context.Context, key string) (string, error)
}

// RunLockKey is the lock key for a run date.
func RunLockKey(d civil.Date) string {
	return "deadline-alerts:run:" + d.String()
}

type exclusiveRunner struct {
	runner *Runner
	lock   RunLock
	ttl    time.Duration
	logger *slog.Logger
}

// Exclusive wraps runner so that only the replica holding the day's lock
// runs. If the lock backend is unreachable the run goes ahead; notification
// uniqueness still holds.
func Exclusive(runner *Runner, lock RunLock, ttl time.Duration, logger *slog.Logger) JobRunner {
	return &exclusiveRunner{runner: runner, lock: lock, ttl: ttl, logger: logger}
}

func (e *exclusiveRunner) Run(ctx context.Context) Result {
	today := e.runner.Today()
	key := RunLockKey(today)

	ok, err := e.lock.TryLock(ctx, key, e.ttl)
	switch {
	case err != nil:
		e.logger.Warn("Run lock unavailable, running anyway", "key", key, "error", err)
	case !ok:
		e.logger.Info("Alert job already claimed by another instance", "key", key, "holder", e.holder(ctx, key))
		return Result{RunDate: today, Errors: []string{}, Skipped: true}
	}
	return e.runner.RunAt(ctx, today)
}

func (e *exclusiveRunner) holder(ctx context.Context, key string) string {
	h, ok := e.lock.(LockHolder)
	if !ok {
		return ""
	}
	owner, err := h.Holder(ctx, key)
	if err != nil {
		e.logger.Debug("Run lock holder lookup failed", "key", key, "error", err)
		return ""
	}
	return owner
}

// LogResult logs a run summary and one warning per error entry.
func LogResult(logger *slog.Logger, result Result) {
	if result.Skipped {
		logger.Info("Alert job skipped", "run_date", result.RunDate)
		return
	}
	logger.Info("Alert job done",
		"notifications_created", result.NotificationsCreated,
		"users_processed", result.UsersProcessed,
		"run_date", result.RunDate,
		"errors", len(result.Errors))
	for _, e := range result.Errors {
		logger.Warn("Alert job error", "error", e)
	}
}
