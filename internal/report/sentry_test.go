package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keralaseva/deadline-alerts/internal/notifications"
)

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) all() []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sentry.Event(nil), c.events...)
}

// initCapture points the global client at an in-memory sink. BeforeSend
// drops every event after recording it, so nothing leaves the process.
func initCapture(t *testing.T) *captured {
	t.Helper()
	c := &captured{}
	err := sentry.Init(sentry.ClientOptions{
		Dsn: "https://public@sentry.example.com/1",
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			c.mu.Lock()
			c.events = append(c.events, event)
			c.mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	return c
}

type stubRunner struct{ result notifications.Result }

func (s stubRunner) Run(ctx context.Context) notifications.Result { return s.result }

var runDate = civil.Date{Year: 2025, Month: time.January, Day: 1}

func TestJobResult_CleanRunNotReported(t *testing.T) {
	c := initCapture(t)

	JobResult(notifications.Result{RunDate: runDate, Errors: []string{}})
	JobResult(notifications.Result{RunDate: runDate, Errors: []string{"x"}, Skipped: true})

	assert.Empty(t, c.all())
}

func TestJobResult_Levels(t *testing.T) {
	c := initCapture(t)

	JobResult(notifications.Result{RunDate: runDate, Errors: []string{"processing user u1: boom"}})
	JobResult(notifications.Result{RunDate: runDate, Errors: []string{"fatal: list users: down"}})

	events := c.all()
	require.Len(t, events, 2)
	assert.Equal(t, sentry.LevelWarning, events[0].Level)
	assert.Equal(t, sentry.LevelError, events[1].Level)
	assert.Equal(t, "2025-01-01", events[1].Tags["run_date"])
}

func TestRunner_PassesResultThrough(t *testing.T) {
	c := initCapture(t)
	want := notifications.Result{RunDate: runDate, NotificationsCreated: 3, Errors: []string{"user u, scholarship s: x"}}

	got := Runner(stubRunner{want}).Run(context.Background())

	assert.Equal(t, want, got)
	assert.Len(t, c.all(), 1)
}

func TestMiddleware_Repanics(t *testing.T) {
	c := initCapture(t)
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Len(t, c.all(), 1)
}
