package activation

import "time"

// MonotonicClock stamps key events as offsets from its creation instant. time.Since
// uses the monotonic reading, so wall-clock adjustments do not move the offsets.
type MonotonicClock struct {
	start time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the elapsed monotonic time.
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.start)
}
