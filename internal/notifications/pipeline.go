package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
)

// Options tunes a Runner. Zero values mean sequential processing, no
// timeouts, and the local time zone.
type Options struct {
	Workers     int
	JobTimeout  time.Duration
	CallTimeout time.Duration
	Location    *time.Location
}

// Runner executes the deadline alert job.
type Runner struct {
	deps     Deps
	notifier *Notifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(deps Deps, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Runner{
		deps:     deps,
		notifier: NewNotifier(deps.Notifications, opts.CallTimeout, logger),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Today returns the current calendar date in the runner's time zone.
func (r *Runner) Today() civil.Date {
	return civil.DateOf(r.now().In(r.opts.Location))
}

// Run snapshots today's date and runs the job for it.
func (r *Runner) Run(ctx context.Context) Result {
	return r.RunAt(ctx, r.Today())
}

// RunAt runs the job with an explicit "today". Every window comparison in the
// run uses this single date. Failures for one user or one scholarship are
// recorded in Result.Errors and never abort the run; only a failure to
// enumerate users or preferences short-circuits it.
func (r *Runner) RunAt(ctx context.Context, today civil.Date) Result {
	start := time.Now()
	result := Result{RunDate: today, Errors: []string{}}

	if r.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.JobTimeout)
		defer cancel()
	}

	days, err := r.resolve(ctx)
	if err != nil {
		r.logger.Error("alert job aborted", "run_date", today, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("fatal: %v", err))
		result.Duration = time.Since(start)
		return result
	}

	userIDs := make([]string, 0, len(days))
	for id := range days {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	r.logger.Info("alert job started", "run_date", today, "users", len(userIDs), "workers", r.opts.Workers)

	workers := min(r.opts.Workers, len(userIDs))
	ch := make(chan string, len(userIDs))
	for _, id := range userIDs {
		ch <- id
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range ch {
				created, errs := r.processUser(ctx, today, userID, days[userID])

				mu.Lock()
				result.UsersProcessed++
				result.NotificationsCreated += created
				result.Errors = append(result.Errors, errs...)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)

	r.logger.Info("alert job complete", "summary", result.Summary())
	return result
}

// resolve loads users and preferences and merges them into a threshold map.
func (r *Runner) resolve(ctx context.Context) (map[string]int, error) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	userIDs, err := r.deps.Users.ListUserIDs(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	prefs, err := r.deps.Preferences.ListPreferences(callCtx)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return ResolvePreferences(userIDs, prefs, r.logger), nil
}

// processUser matches, filters and notifies a single user. A matcher failure
// skips the user entirely.
func (r *Runner) processUser(ctx context.Context, today civil.Date, userID string, days int) (int, []string) {
	callCtx, cancel := r.callContext(ctx)
	matches, err := r.deps.Matcher.Match(callCtx, userID)
	cancel()
	if err != nil {
		r.logger.Warn("match scholarships failed", "user_id", userID, "error", err)
		return 0, []string{fmt.Sprintf("processing user %s: %v", userID, err)}
	}

	due := FilterDue(today, days, matches)
	if len(due) == 0 {
		return 0, nil
	}
	r.logger.Debug("scholarships due", "user_id", userID, "due", len(due), "matched", len(matches))
	return r.notifier.Notify(ctx, userID, due)
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}
