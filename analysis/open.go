package analysis

import (
	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
)

// CaptureEnd returns the latest timestamp recorded in d. Open entries are considered to end at this time.
func CaptureEnd(d *profiler.Data) clock.Timestamp {
	return d.EndTime()
}

// EffectiveEnd returns the end of e, or captureEnd if e is still open.
func EffectiveEnd(e *profiler.Entry, captureEnd clock.Timestamp) clock.Timestamp {
	if e.IsOpen() {
		return max(captureEnd, e.Start)
	}
	return e.End
}
