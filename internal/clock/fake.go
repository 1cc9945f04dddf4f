package clock

import (
	"sync"
	"time"
)

// FakeClock is a Clock pinned to a settable instant. Safe for use from
// handlers running under httptest.
type FakeClock struct {
	mu  sync.RWMutex
	now time.Time
}

var _ Clock = (*FakeClock)(nil)

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// NewFakeClockInYear pins the clock to noon on 1 July of year, the usual
// fixture for year-versioned rates.
func NewFakeClockInYear(year int) *FakeClock {
	return NewFakeClock(time.Date(year, time.July, 1, 12, 0, 0, 0, time.UTC))
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}
