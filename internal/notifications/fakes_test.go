package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"cloud.google.com/go/civil"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *civil.Date {
	d := date(s)
	return &d
}

func intPtr(n int) *int { return &n }

type pairKey struct{ user, scholarship string }

// memStore is an in-memory stand-in for the hosted database.
type memStore struct {
	mu sync.Mutex

	users     []string
	prefs     []Preference
	matches   map[string][]Match
	usersErr  error
	prefsErr  error
	matchErrs map[string]error
	insertErr map[pairKey]error

	rows        map[pairKey]Notification
	insertCalls int
}

func newMemStore() *memStore {
	return &memStore{
		matches:   make(map[string][]Match),
		matchErrs: make(map[string]error),
		insertErr: make(map[pairKey]error),
		rows:      make(map[pairKey]Notification),
	}
}

func (s *memStore) deps() Deps {
	return Deps{Users: s, Preferences: s, Matcher: s, Notifications: s}
}

func (s *memStore) ListUserIDs(ctx context.Context) ([]string, error) {
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	return append([]string(nil), s.users...), nil
}

func (s *memStore) ListPreferences(ctx context.Context) ([]Preference, error) {
	if s.prefsErr != nil {
		return nil, s.prefsErr
	}
	return append([]Preference(nil), s.prefs...), nil
}

func (s *memStore) Match(ctx context.Context, userID string) ([]Match, error) {
	if err := s.matchErrs[userID]; err != nil {
		return nil, err
	}
	return s.matches[userID], nil
}

func (s *memStore) InsertNotification(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++

	key := pairKey{n.UserID, n.ScholarshipID}
	if err := s.insertErr[key]; err != nil {
		return err
	}
	if _, exists := s.rows[key]; exists {
		return fmt.Errorf("insert notification: %w", ErrDuplicate)
	}
	s.rows[key] = n
	return nil
}

func (s *memStore) has(user, scholarship string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[pairKey{user, scholarship}]
	return ok
}

var errBoom = errors.New("boom")

// stallingMatcher never answers; it returns once its context is done.
type stallingMatcher struct{}

func (stallingMatcher) Match(ctx context.Context, userID string) ([]Match, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stallingWriter hangs on inserts for the listed scholarships and passes the
// rest through to next.
type stallingWriter struct {
	next  NotificationWriter
	stall map[string]bool
}

func (w stallingWriter) InsertNotification(ctx context.Context, n Notification) error {
	if w.stall[n.ScholarshipID] {
		<-ctx.Done()
		return ctx.Err()
	}
	return w.next.InsertNotification(ctx, n)
}
