package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGetExpire(t *testing.T) {
	c := New(true)
	defer c.Close()

	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	etag := c.Set(MatchesKey("u1"), []byte(`{"count":0}`), time.Minute)
	data, got, ok := c.Get(MatchesKey("u1"))
	assert.True(t, ok)
	assert.Equal(t, etag, got)
	assert.JSONEq(t, `{"count":0}`, string(data))

	now = now.Add(time.Minute)
	_, _, ok = c.Get(MatchesKey("u1"))
	assert.False(t, ok, "entry expires exactly at its TTL")

	c.evict()
	assert.Equal(t, 0, c.Stats()["total_keys"])
}

func TestCache_HitMissCounters(t *testing.T) {
	c := New(true)
	defer c.Close()

	c.Get("k")
	c.Set("k", []byte("v"), time.Hour)
	c.Get("k")
	c.Get("k")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.Equal(t, 1, stats["active_keys"])
}

func TestCache_Disabled(t *testing.T) {
	c := New(false)
	defer c.Close()

	etag := c.Set("k", []byte("v"), time.Hour)
	assert.NotEmpty(t, etag)
	_, _, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, false, c.Stats()["enabled"])
}

func TestCache_CloseTwice(t *testing.T) {
	c := New(true)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestETag(t *testing.T) {
	a := ComputeETag([]byte("a"))
	assert.Equal(t, a, ComputeETag([]byte("a")))
	assert.NotEqual(t, a, ComputeETag([]byte("b")))
	assert.Regexp(t, `^W/"[0-9a-f]{16}"$`, a)
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("a"))
	strong := etag[2:]

	tests := []struct {
		header string
		want   bool
	}{
		{etag, true},
		{strong, true},
		{"*", true},
		{"", false},
		{`W/"other"`, false},
		{`W/"other", ` + etag, true},
		{`"x","y"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckETagMatch(tt.header, etag), tt.header)
	}
}
