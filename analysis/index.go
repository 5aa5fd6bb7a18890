package analysis

import (
	"golang.org/x/exp/slices"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/container"
	"honnef.co/go/spanprof/profiler"
)

type entryTree = container.IntervalTree[clock.Timestamp, uint32]

// Index answers time-range queries over the entries of a capture.
type Index struct {
	d          *profiler.Data
	captureEnd clock.Timestamp
	trees      []*entryTree
}

// NewIndex indexes the entries of every thread slot in d. Open entries are indexed up to the end of the capture.
func NewIndex(d *profiler.Data) *Index {
	idx := &Index{
		d:          d,
		captureEnd: CaptureEnd(d),
		trees:      make([]*entryTree, len(d.Threads)),
	}
	for slot := range d.Threads {
		t := container.NewIntervalTree[clock.Timestamp, uint32]()
		entries := d.Threads[slot].LiveEntries()
		for i := range entries {
			e := &entries[i]
			t.Insert(e.Start, EffectiveEnd(e, idx.captureEnd), uint32(i))
		}
		idx.trees[slot] = t
	}
	return idx
}

func (idx *Index) CaptureEnd() clock.Timestamp { return idx.captureEnd }

// Overlapping returns the indices of the entries of thread slot thread that overlap [start, end], in ascending
// order.
func (idx *Index) Overlapping(thread int, start, end clock.Timestamp) []uint32 {
	if thread < 0 || thread >= len(idx.trees) || start > end {
		return nil
	}
	var out []uint32
	idx.trees[thread].Overlapping(start, end, func(_, _ clock.Timestamp, entries []uint32) bool {
		out = append(out, entries...)
		return true
	})
	slices.Sort(out)
	return out
}

// At returns the indices of the entries of thread slot thread that were running at t, outermost first. Entries
// that end exactly at t are included.
func (idx *Index) At(thread int, t clock.Timestamp) []uint32 {
	// A thread's running entries form a chain of parents, and parents precede their children.
	return idx.Overlapping(thread, t, t)
}
