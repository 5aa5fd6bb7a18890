// Package clock provides the monotonic nanosecond timer all profiler timestamps are relative to.
package clock

import (
	"fmt"
	"math"
	"time"
)

// Timestamp is a number of nanoseconds elapsed since a Timer's start epoch.
type Timestamp int64

// Open is the end time of an entry that hasn't been closed yet.
const Open Timestamp = math.MaxInt64

func (ts Timestamp) Duration() time.Duration { return time.Duration(ts) }

// Milliseconds returns ts as fractional milliseconds.
func (ts Timestamp) Milliseconds() float64 {
	return float64(ts) / float64(time.Millisecond)
}

// FormatMilliseconds formats a span as "12.34ms", the label used for frames and regions.
func FormatMilliseconds(start, end Timestamp) string {
	return fmt.Sprintf("%.2fms", (end - start).Milliseconds())
}

// Timer measures elapsed time from an explicit start epoch. It relies on the monotonic reading carried by
// time.Time, so wall clock adjustments don't affect it.
//
// Timer is safe for concurrent reads after Start has returned; Start itself must not race with Now.
type Timer struct {
	epoch time.Time
}

// Start resets the epoch to the current instant.
func (t *Timer) Start() {
	t.epoch = time.Now()
}

// Now returns the time elapsed since the last Start.
func (t *Timer) Now() Timestamp {
	return Timestamp(time.Since(t.epoch))
}
