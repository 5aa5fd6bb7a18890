package analysis

import (
	"time"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
	"honnef.co/go/spanprof/slices"
)

// ThreadActivity is the call stack of one thread at the start of a frame.
type ThreadActivity struct {
	Thread int
	// Stack holds entry indices, outermost first. It is empty if the thread was idle.
	Stack []uint32
}

// FrameActivity reconstructs what each thread was doing when frame started, from the entry recorded for the
// thread at the frame boundary and the chain of its parents.
func FrameActivity(d *profiler.Data, frame int) []ThreadActivity {
	if frame < 0 || frame >= int(d.CurrentFrame) {
		return nil
	}
	f := &d.Frames[frame]
	end := CaptureEnd(d)
	out := make([]ThreadActivity, 0, f.FrameThreadCount)
	for _, info := range f.LiveThreads() {
		if int(info.ThreadIndex) >= len(d.Threads) {
			continue
		}
		entries := d.Threads[info.ThreadIndex].LiveEntries()
		// A slot that was released and reused after the frame started no longer holds the recorded entry.
		if int(info.ActiveEntry) >= len(entries) {
			continue
		}

		var stack []uint32
		idx := info.ActiveEntry
		for {
			e := &entries[idx]
			// The most recent entry may have ended before the frame started; its parents can still be running.
			if e.Start <= f.Start && EffectiveEnd(e, end) > f.Start {
				stack = append(stack, idx)
			}
			p, ok := e.ParentIndex().Get()
			if !ok || p >= idx {
				break
			}
			idx = p
		}
		out = append(out, ThreadActivity{Thread: int(info.ThreadIndex), Stack: slices.Reverse(stack)})
	}
	return out
}

// FrameSummary describes one frame.
type FrameSummary struct {
	Index    int
	Name     string
	Start    clock.Timestamp
	Duration time.Duration
	// Open is true for the frame that was still running when capture stopped.
	Open bool
	// OverBudget reports whether the frame took longer than the capture's frame time limit.
	OverBudget bool
	Threads    int
}

func Frames(d *profiler.Data) []FrameSummary {
	end := CaptureEnd(d)
	frames := d.LiveFrames()
	out := make([]FrameSummary, len(frames))
	for i := range frames {
		f := &frames[i]
		fend := f.End
		if fend == clock.Open {
			fend = max(end, f.Start)
		}
		dur := time.Duration(fend - f.Start)
		out[i] = FrameSummary{
			Index:      i,
			Name:       f.Name,
			Start:      f.Start,
			Duration:   dur,
			Open:       f.End == clock.Open,
			OverBudget: d.MaxFrameTime > 0 && int64(dur) > d.MaxFrameTime,
			Threads:    int(f.FrameThreadCount),
		}
	}
	return out
}

// RegionsOverLimit returns the indices of completed regions that took longer than the capture's region time
// limit. It returns nothing if no limit is set.
func RegionsOverLimit(d *profiler.Data) []int {
	if d.RegionTimeLimit <= 0 {
		return nil
	}
	var out []int
	for i, r := range d.LiveRegions() {
		if int64(r.Duration()) > d.RegionTimeLimit {
			out = append(out, i)
		}
	}
	return out
}
