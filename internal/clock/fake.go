package clock

import "time"

// FakeClock is a Clock pinned to a fixed instant. Ledger cutoffs and
// validation windows depend on "today", so tests move time explicitly.
type FakeClock struct {
	current time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t.UTC()}
}

func (c *FakeClock) Now() time.Time { return c.current }

// Advance moves the pinned instant forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}
