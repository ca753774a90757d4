package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// OffsetFeed supplies the current local-vs-server clock offset. The document
// store implements this; a feed that has not produced a sample yet reports 0.
type OffsetFeed interface {
	ServerOffset(ctx context.Context) (time.Duration, error)
}

// Synchronizer turns a local clock plus a continuously updated offset into a
// "server now" estimate. Every piece of timer math (deadlines, countdowns,
// accepting-window checks) goes through it so that skewed local clocks agree
// on when a question's window closes.
type Synchronizer struct {
	clock clockwork.Clock

	mu     sync.RWMutex
	offset time.Duration
}

func NewSynchronizer(clock clockwork.Clock) *Synchronizer {
	return &Synchronizer{clock: clock}
}

// NewSystemSynchronizer uses the real wall clock.
func NewSystemSynchronizer() *Synchronizer {
	return NewSynchronizer(clockwork.NewRealClock())
}

// SetOffset records a fresh offset sample.
func (s *Synchronizer) SetOffset(offset time.Duration) {
	s.mu.Lock()
	s.offset = offset
	s.mu.Unlock()
}

// Offset returns the most recent offset sample, 0 before the first one.
func (s *Synchronizer) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// Now is the current server-clock estimate.
func (s *Synchronizer) Now() time.Time {
	return s.clock.Now().Add(s.Offset())
}

// NowMillis is Now in ms since epoch, the unit the session document uses.
func (s *Synchronizer) NowMillis() int64 {
	return s.Now().UnixMilli()
}

// SecondsLeft reports the whole seconds remaining before endsAt, never
// negative. A zero endsAt means no timer is running.
func (s *Synchronizer) SecondsLeft(endsAt int64) int {
	if endsAt == 0 {
		return 0
	}
	left := endsAt - s.NowMillis()
	if left <= 0 {
		return 0
	}
	return int((left + 999) / 1000)
}

// TimedOut reports whether the accepting window has closed, either explicitly
// or because the deadline passed.
func (s *Synchronizer) TimedOut(accepting bool, endsAt int64) bool {
	return !accepting || s.NowMillis() >= endsAt
}

// Run pumps offset samples from the feed until ctx is done. The first sample
// is taken immediately; failures leave the previous offset in place.
func (s *Synchronizer) Run(ctx context.Context, feed OffsetFeed, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	s.sample(ctx, feed)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.sample(ctx, feed)
		}
	}
}

func (s *Synchronizer) sample(ctx context.Context, feed OffsetFeed) {
	if offset, err := feed.ServerOffset(ctx); err == nil {
		s.SetOffset(offset)
	}
}

// FormatSeconds renders a countdown the way quiz screens show it: "m:ss" from
// a minute up, plain "Ns" below.
func FormatSeconds(secs int) string {
	if secs >= 60 {
		return fmt.Sprintf("%d:%02d", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
