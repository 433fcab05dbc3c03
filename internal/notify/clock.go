package notify

import "time"

// Clock supplies the current time to every time-dependent decision.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t. Useful for scans replayed at a given instant.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
