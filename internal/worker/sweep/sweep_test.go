package sweep

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/hrportal/internal/cache"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) ClearExpired() int {
	c.calls.Add(1)
	return 0
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestJob_RunOnce_RemovesExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	limiters := ratelimit.NewSet(ratelimit.DefaultSetConfig(), ratelimit.WithClock(clock))
	limiters.API.Allow("10.0.0.1")
	limiters.Auth.Allow("10.0.0.2")

	c := cache.New[any](time.Minute, cache.WithClock(clock))
	c.Set("a", 1)
	c.SetWithTTL("b", 2, time.Hour)

	now = now.Add(10 * time.Minute)

	r := NewJob(limiters, c, testLogger()).RunOnce()
	if r.LimiterKeys != 2 {
		t.Errorf("LimiterKeys = %d, want 2", r.LimiterKeys)
	}
	if r.CacheEntries != 1 {
		t.Errorf("CacheEntries = %d, want 1", r.CacheEntries)
	}
	if c.Len() != 1 {
		t.Errorf("cache Len = %d, want 1", c.Len())
	}
}

func TestJob_RunOnce_NilTargets(t *testing.T) {
	if r := NewJob(nil, nil, testLogger()).RunOnce(); r != (Result{}) {
		t.Errorf("RunOnce = %+v, want zero", r)
	}
}

func TestJob_RunOnce_TypedNilTargets(t *testing.T) {
	var limiters *ratelimit.Set
	var c *cache.Cache[any]

	if r := NewJob(limiters, c, testLogger()).RunOnce(); r != (Result{}) {
		t.Errorf("RunOnce = %+v, want zero", r)
	}
}

func TestJob_Start_StopsOnCancel(t *testing.T) {
	s := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewJob(s, nil, testLogger()).Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(time.Second)
	for s.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper was not called repeatedly")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
