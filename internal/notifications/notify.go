// Package notifications runs the daily scholarship deadline alert job.
//
// Pipeline: resolve alert preferences → match eligible scholarships per user →
// keep those whose deadline falls inside the user's alert window → insert one
// notification per (user, scholarship) pair. The notification store's unique
// constraint makes re-runs idempotent.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	DefaultAlertBeforeDays = 7
	MinAlertBeforeDays     = 1
	MaxAlertBeforeDays     = 90
)

// ErrDuplicate is returned (possibly wrapped) by a NotificationWriter when a
// notification for the same user and scholarship already exists.
var ErrDuplicate = errors.New("notification already exists")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Preference is a user's stored alert threshold.
type Preference struct {
	UserID          string `json:"user_id"`
	AlertBeforeDays int    `json:"alert_before_days"`
}

// Match is one scholarship a user currently qualifies for, as returned by the
// eligibility matcher. Deadline is nil when the scholarship has none;
// DaysUntilDue is nil when the matcher could not compute it.
type Match struct {
	ScholarshipID string      `json:"scholarship_id"`
	Name          string      `json:"name"`
	Deadline      *civil.Date `json:"deadline"`
	DaysUntilDue  *int        `json:"days_until_due"`
}

// Notification is the row the job inserts. is_read and created_at are left
// to store defaults.
type Notification struct {
	UserID        string
	ScholarshipID string
	Message       string
}

// Result is the summary of one alert job run.
type Result struct {
	NotificationsCreated int           `json:"notifications_created"`
	UsersProcessed       int           `json:"users_processed"`
	RunDate              civil.Date    `json:"run_date"`
	Errors               []string      `json:"errors"`
	Duration             time.Duration `json:"-"`

	// Skipped is set when another replica already claimed this run date.
	Skipped bool `json:"skipped,omitempty"`
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("run_date=%s users=%d created=%d errors=%d dur=%s",
		r.RunDate, r.UsersProcessed, r.NotificationsCreated,
		len(r.Errors), r.Duration.Round(time.Millisecond))
}

// --------------------------------------------------------------------------
// Collaborators
// --------------------------------------------------------------------------

// UserLister enumerates every known user id.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// PreferenceReader returns all stored alert preferences.
type PreferenceReader interface {
	ListPreferences(ctx context.Context) ([]Preference, error)
}

// Matcher returns the scholarships a user currently qualifies for.
type Matcher interface {
	Match(ctx context.Context, userID string) ([]Match, error)
}

// NotificationWriter persists a notification. Implementations must return an
// error matching ErrDuplicate when the (user, scholarship) pair exists.
type NotificationWriter interface {
	InsertNotification(ctx context.Context, n Notification) error
}

// Deps groups the collaborators the job needs.
type Deps struct {
	Users         UserLister
	Preferences   PreferenceReader
	Matcher       Matcher
	Notifications NotificationWriter
}
