// Wall clock timing for pipeline stages
package core

import "time"

// Timer measures elapsed wall time. Each caller owns its own Timer; the
// zero value is ready to use once Start is called.
type Timer struct {
	start time.Time
	now   func() time.Time
}

// NewTimer returns a timer reading the given clock, or time.Now when nil
func NewTimer(clock func() time.Time) *Timer {
	return &Timer{now: clock}
}

func (t *Timer) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// Start resets the timer
func (t *Timer) Start() {
	t.start = t.clock()
}

// Stop returns the time elapsed since Start
func (t *Timer) Stop() time.Duration {
	return t.clock().Sub(t.start)
}
