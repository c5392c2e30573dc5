package notifications

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRun(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 1, 1, 6, 0, 0, 0, ist),
			want: time.Date(2025, 1, 1, 8, 0, 0, 0, ist),
		},
		{
			name: "exactly at run time rolls to tomorrow",
			now:  time.Date(2025, 1, 1, 8, 0, 0, 0, ist),
			want: time.Date(2025, 1, 2, 8, 0, 0, 0, ist),
		},
		{
			name: "after run time",
			now:  time.Date(2025, 12, 31, 9, 30, 0, 0, ist),
			want: time.Date(2026, 1, 1, 8, 0, 0, 0, ist),
		},
		{
			name: "now given in UTC",
			now:  time.Date(2025, 1, 1, 2, 29, 0, 0, time.UTC),
			want: time.Date(2025, 1, 1, 8, 0, 0, 0, ist),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 8, 0, ist)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

type stubRunner struct{ result Result }

func (s stubRunner) Run(ctx context.Context) Result { return s.result }

func TestRunDaily_LogsErrorsAsWarnings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	runDaily(context.Background(), stubRunner{Result{
		NotificationsCreated: 1,
		UsersProcessed:       2,
		RunDate:              date("2025-01-01"),
		Errors:               []string{"processing user u1: boom"},
	}}, logger)

	out := buf.String()
	assert.Contains(t, out, "notifications_created=1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "processing user u1: boom")
}

func TestStartDaily_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		StartDaily(ctx, stubRunner{}, 8, 0, time.UTC, discardLogger)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeLock struct {
	held  map[string]bool
	err   error
	keys  []string
	owner string
}

func (f *fakeLock) Holder(ctx context.Context, key string) (string, error) {
	if !f.held[key] {
		return "", nil
	}
	return f.owner, nil
}

func (f *fakeLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, f.err
	}
	if f.held[key] {
		return false, nil
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	f.held[key] = true
	return true, nil
}

func fixedRunner(s *memStore) *Runner {
	r := NewRunner(s.deps(), Options{Location: time.UTC}, discardLogger)
	r.now = func() time.Time { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC) }
	return r
}

func TestExclusive_OnlyFirstHolderRuns(t *testing.T) {
	lock := &fakeLock{}
	a := Exclusive(fixedRunner(seededStore()), lock, time.Hour, discardLogger)
	s := seededStore()
	b := Exclusive(fixedRunner(s), lock, time.Hour, discardLogger)

	first := a.Run(context.Background())
	second := b.Run(context.Background())

	assert.False(t, first.Skipped)
	assert.Positive(t, first.NotificationsCreated)
	assert.True(t, second.Skipped)
	assert.Equal(t, date("2025-01-01"), second.RunDate)
	assert.Zero(t, s.insertCalls)
	assert.Equal(t, []string{"deadline-alerts:run:2025-01-01", "deadline-alerts:run:2025-01-01"}, lock.keys)
}

func TestExclusive_SkipLogsHolder(t *testing.T) {
	lock := &fakeLock{owner: "replica-a:42"}
	_, err := lock.TryLock(context.Background(), RunLockKey(date("2025-01-01")), time.Hour)
	assert.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := seededStore()
	res := Exclusive(fixedRunner(s), lock, time.Hour, logger).Run(context.Background())

	assert.True(t, res.Skipped)
	assert.Zero(t, s.insertCalls)
	assert.Contains(t, buf.String(), "holder=replica-a:42")
}

func TestExclusive_LockFailureStillRuns(t *testing.T) {
	s := seededStore()
	r := Exclusive(fixedRunner(s), &fakeLock{err: errBoom}, time.Hour, discardLogger)

	res := r.Run(context.Background())

	assert.False(t, res.Skipped)
	assert.Positive(t, res.NotificationsCreated)
}

func TestLogResult_Skipped(t *testing.T) {
	var buf bytes.Buffer
	LogResult(slog.New(slog.NewTextHandler(&buf, nil)), Result{RunDate: date("2025-01-01"), Skipped: true})

	assert.Contains(t, buf.String(), "Alert job skipped")
	assert.NotContains(t, buf.String(), "Alert job done")
}
