package hostsim

import "time"

// SystemClock implements vm.Clock against the host's real wall clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock whose MillisecondClock starts counting
// from the moment of construction, matching the image's expectation that
// millisecondClockValue wraps a 30-bit counter rather than epoch time.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Time { return time.Now() }

func (c *SystemClock) MillisecondClock() int64 {
	return time.Since(c.start).Milliseconds()
}
