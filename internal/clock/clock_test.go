package clock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"pubquiz-service/internal/clock"
)

type stubFeed struct {
	mu      sync.Mutex
	offset  time.Duration
	err     error
	samples int
}

func (f *stubFeed) ServerOffset(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples++
	return f.offset, f.err
}

func (f *stubFeed) set(offset time.Duration, err error) {
	f.mu.Lock()
	f.offset = offset
	f.err = err
	f.mu.Unlock()
}

func (f *stubFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples
}

func TestNowAppliesOffset(t *testing.T) {
	fake := clockwork.NewFakeClock()
	sc := clock.NewSynchronizer(fake)

	if got := sc.Now(); !got.Equal(fake.Now()) {
		t.Fatalf("expected zero offset before first sample, got %v vs %v", got, fake.Now())
	}

	sc.SetOffset(3 * time.Second)
	want := fake.Now().Add(3 * time.Second)
	if got := sc.Now(); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := sc.NowMillis(); got != want.UnixMilli() {
		t.Fatalf("expected %d ms, got %d", want.UnixMilli(), got)
	}
}

func TestSecondsLeftRoundsUp(t *testing.T) {
	fake := clockwork.NewFakeClock()
	sc := clock.NewSynchronizer(fake)
	now := sc.NowMillis()

	cases := []struct {
		endsAt int64
		want   int
	}{
		{0, 0},
		{now - 1, 0},
		{now, 0},
		{now + 1, 1},
		{now + 1000, 1},
		{now + 1001, 2},
		{now + 60_000, 60},
	}
	for _, tc := range cases {
		if got := sc.SecondsLeft(tc.endsAt); got != tc.want {
			t.Errorf("SecondsLeft(now%+d) = %d, want %d", tc.endsAt-now, got, tc.want)
		}
	}
}

func TestTimedOut(t *testing.T) {
	fake := clockwork.NewFakeClock()
	sc := clock.NewSynchronizer(fake)
	now := sc.NowMillis()

	if sc.TimedOut(true, now+5000) {
		t.Fatalf("open window with a future deadline must not be timed out")
	}
	if !sc.TimedOut(false, now+5000) {
		t.Fatalf("a stopped window is timed out regardless of the deadline")
	}
	fake.Advance(5 * time.Second)
	if !sc.TimedOut(true, now+5000) {
		t.Fatalf("the window closes the instant the deadline is reached")
	}
}

func TestRunSamplesFeedAndSurvivesErrors(t *testing.T) {
	feed := &stubFeed{offset: 2 * time.Second}
	sc := clock.NewSystemSynchronizer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc.Run(ctx, feed, time.Millisecond)
	}()

	waitFor(t, func() bool { return sc.Offset() == 2*time.Second })

	// A failing sample keeps the previous offset.
	feed.set(9*time.Second, errors.New("transient"))
	before := feed.count()
	waitFor(t, func() bool { return feed.count() > before })
	if got := sc.Offset(); got != 2*time.Second {
		t.Fatalf("expected offset to survive a failed sample, got %v", got)
	}

	feed.set(4*time.Second, nil)
	waitFor(t, func() bool { return sc.Offset() == 4*time.Second })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on context cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		secs int
		want string
	}{
		{0, "0s"},
		{7, "7s"},
		{59, "59s"},
		{60, "1:00"},
		{75, "1:15"},
		{615, "10:15"},
	}
	for _, tc := range cases {
		if got := clock.FormatSeconds(tc.secs); got != tc.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tc.secs, got, tc.want)
		}
	}
}
