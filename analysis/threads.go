package analysis

import (
	"time"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
)

type ThreadSummary struct {
	Slot    int
	Name    string
	Hidden  bool
	Entries int
	// Open is the number of entries that were still running when capture stopped.
	Open     int
	MaxLevel uint32
	// Start and End span the thread's recorded activity. Both are zero for threads without entries.
	Start, End clock.Timestamp
	// Busy is the time covered by top-level entries.
	Busy time.Duration
}

// ThreadSummaries describes every thread slot that recorded at least one entry.
func ThreadSummaries(d *profiler.Data) []ThreadSummary {
	end := CaptureEnd(d)
	var out []ThreadSummary
	for slot := range d.Threads {
		td := &d.Threads[slot]
		entries := td.LiveEntries()
		if len(entries) == 0 {
			continue
		}
		s := ThreadSummary{
			Slot:     slot,
			Name:     td.Name,
			Hidden:   td.Hidden,
			Entries:  len(entries),
			MaxLevel: td.MaxLevel,
			Start:    entries[0].Start,
		}
		for i := range entries {
			e := &entries[i]
			eend := EffectiveEnd(e, end)
			if e.IsOpen() {
				s.Open++
			}
			if e.Level == 0 {
				s.Busy += time.Duration(eend - e.Start)
			}
			s.End = max(s.End, eend)
		}
		out = append(out, s)
	}
	return out
}
