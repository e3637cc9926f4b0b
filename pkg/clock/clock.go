package clock

import "time"

// Clock is the time source used by cancellation and the expiry sweeper. Both
// must share one clock so the "active but past its end time" boundary is
// judged on the same basis.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func System() Clock {
	return systemClock{}
}

// Fixed returns a clock pinned to t, for deterministic tests.
func Fixed(t time.Time) Clock {
	return &fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.t
}

// Advance moves a fixed clock forward. It has no effect on the system clock.
func Advance(c Clock, d time.Duration) {
	if fc, ok := c.(*fixedClock); ok {
		fc.t = fc.t.Add(d)
	}
}
