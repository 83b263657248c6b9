// FILE: evsink/src/internal/clock/clock.go
package clock

import "time"

// Clock reports milliseconds elapsed since its construction. It reads Go's
// monotonic clock, so wall-clock adjustments do not affect it.
type Clock struct {
	zero time.Time
}

func New() *Clock {
	return &Clock{zero: time.Now()}
}

// ElapsedMs returns whole milliseconds since New
func (c *Clock) ElapsedMs() uint64 {
	d := time.Since(c.zero)
	if d < 0 {
		return 0
	}
	return uint64(d / time.Millisecond)
}

// Start returns the reference instant
func (c *Clock) Start() time.Time {
	return c.zero
}
