// Package report forwards panics and failed alert runs to Sentry. Every
// function is a no-op until Init has configured a client.
package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/keralaseva/deadline-alerts/internal/notifications"
)

// Init configures the global Sentry client. The returned func flushes
// buffered events and should be deferred by main.
func Init(dsn, environment string) (func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return func() {}, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// Middleware captures handler panics and re-panics so chi's Recoverer still
// writes the 500.
func Middleware() func(http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle
}

// JobResult sends a run with error entries to Sentry. A fatal run is an error
// event; partial failures are a warning.
func JobResult(result notifications.Result) {
	if result.Skipped || len(result.Errors) == 0 {
		return
	}

	level := sentry.LevelWarning
	if strings.HasPrefix(result.Errors[0], "fatal:") {
		level = sentry.LevelError
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("run_date", result.RunDate.String())
		scope.SetContext("alert_job", sentry.Context{
			"notifications_created": result.NotificationsCreated,
			"users_processed":       result.UsersProcessed,
			"errors":                result.Errors,
		})
		sentry.CaptureMessage(fmt.Sprintf("deadline alert job finished with %d errors", len(result.Errors)))
	})
}

type reportingRunner struct {
	next notifications.JobRunner
}

// Runner wraps next so every result it returns is passed to JobResult.
func Runner(next notifications.JobRunner) notifications.JobRunner {
	return reportingRunner{next: next}
}

func (r reportingRunner) Run(ctx context.Context) notifications.Result {
	result := r.next.Run(ctx)
	JobResult(result)
	return result
}
