// Package store implements the alert job's collaborators and the API's data
// access on top of the hosted Postgres database.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keralaseva/deadline-alerts/internal/notifications"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store queries Postgres through prepared statements registered by package db.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UserNotification is a notification as shown to its owner.
type UserNotification struct {
	ID            int64     `json:"id"`
	ScholarshipID string    `json:"scholarship_id"`
	Message       string    `json:"message"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// --------------------------------------------------------------------------
// Users and preferences
// --------------------------------------------------------------------------

// ListUserIDs returns every profile id.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "list_user_ids")
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan user id: %w", err)
	}
	return ids, nil
}

// ListPreferences returns all stored alert preferences.
func (s *Store) ListPreferences(ctx context.Context) ([]notifications.Preference, error) {
	rows, err := s.pool.Query(ctx, "list_alert_prefs")
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []notifications.Preference
	for rows.Next() {
		var p notifications.Preference
		if err := rows.Scan(&p.UserID, &p.AlertBeforeDays); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// GetPreference returns a user's stored preference or ErrNotFound.
func (s *Store) GetPreference(ctx context.Context, userID string) (notifications.Preference, error) {
	var p notifications.Preference
	err := s.pool.QueryRow(ctx, "get_alert_pref", userID).Scan(&p.UserID, &p.AlertBeforeDays)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

// UpsertPreference inserts or replaces a user's preference.
func (s *Store) UpsertPreference(ctx context.Context, p notifications.Preference) error {
	if _, err := s.pool.Exec(ctx, "upsert_alert_pref", p.UserID, p.AlertBeforeDays); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// IsAdmin reports whether the user's profile carries the admin flag. A
// missing profile is not an admin.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var admin bool
	err := s.pool.QueryRow(ctx, "profile_is_admin", userID).Scan(&admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return admin, nil
}

// --------------------------------------------------------------------------
// Eligibility
// --------------------------------------------------------------------------

// Match calls get_matching_scholarships for a user.
func (s *Store) Match(ctx context.Context, userID string) ([]notifications.Match, error) {
	rows, err := s.pool.Query(ctx, "match_scholarships", userID)
	if err != nil {
		return nil, fmt.Errorf("match scholarships: %w", err)
	}
	defer rows.Close()

	var matches []notifications.Match
	for rows.Next() {
		var (
			m        notifications.Match
			deadline pgtype.Date
			days     pgtype.Int8
		)
		if err := rows.Scan(&m.ScholarshipID, &m.Name, &deadline, &days); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Deadline = toCivil(deadline)
		if days.Valid {
			n := int(days.Int64)
			m.DaysUntilDue = &n
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// toCivil converts a nullable, finite Postgres date.
func toCivil(d pgtype.Date) *civil.Date {
	if !d.Valid || d.InfinityModifier != pgtype.Finite {
		return nil
	}
	c := civil.DateOf(d.Time)
	return &c
}

// --------------------------------------------------------------------------
// Notifications
// --------------------------------------------------------------------------

// InsertNotification stores a notification. An existing row for the same
// user and scholarship yields an error wrapping notifications.ErrDuplicate.
func (s *Store) InsertNotification(ctx context.Context, n notifications.Notification) error {
	tag, err := s.pool.Exec(ctx, "insert_notification", n.UserID, n.ScholarshipID, n.Message)
	return classifyInsert(tag, err)
}

// classifyInsert maps an insert outcome onto the typed duplicate error.
// ON CONFLICT DO NOTHING reports zero rows; a raw unique violation can still
// surface from other unique indexes on the table.
func classifyInsert(tag pgconn.CommandTag, err error) error {
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("insert notification (%s): %w", pgErr.ConstraintName, notifications.ErrDuplicate)
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insert notification: %w", notifications.ErrDuplicate)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]UserNotification, error) {
	rows, err := s.pool.Query(ctx, "list_user_notifications", userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []UserNotification{}
	for rows.Next() {
		var n UserNotification
		if err := rows.Scan(&n.ID, &n.ScholarshipID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID string, id int64) error {
	tag, err := s.pool.Exec(ctx, "mark_notification_read", id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ notifications.UserLister         = (*Store)(nil)
	_ notifications.PreferenceReader   = (*Store)(nil)
	_ notifications.Matcher            = (*Store)(nil)
	_ notifications.NotificationWriter = (*Store)(nil)
)
