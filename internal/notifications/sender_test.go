package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_InsertTimeoutContinues(t *testing.T) {
	s := newMemStore()
	w := stallingWriter{next: s, stall: map[string]bool{"s-slow": true}}
	n := NewNotifier(w, 20*time.Millisecond, discardLogger)

	due := []Match{
		{ScholarshipID: "s-slow", Name: "Slow", Deadline: datePtr("2025-01-03")},
		{ScholarshipID: "s-fast", Name: "Fast", Deadline: datePtr("2025-01-04")},
	}

	created, errs := n.Notify(context.Background(), "alice", due)

	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"user alice, scholarship s-slow: context deadline exceeded"}, errs)
	assert.True(t, s.has("alice", "s-fast"))
	assert.False(t, s.has("alice", "s-slow"))
}

func TestNotifier_DuplicateIsNotAnError(t *testing.T) {
	s := newMemStore()
	n := NewNotifier(s, 0, discardLogger)
	due := []Match{{ScholarshipID: "s1", Name: "One", Deadline: datePtr("2025-01-03")}}

	created, errs := n.Notify(context.Background(), "alice", due)
	assert.Equal(t, 1, created)
	assert.Empty(t, errs)

	created, errs = n.Notify(context.Background(), "alice", due)
	assert.Zero(t, created)
	assert.Empty(t, errs)
}
