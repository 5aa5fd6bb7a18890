package analysis

import (
	"cmp"
	"time"

	"golang.org/x/exp/slices"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/container"
	"honnef.co/go/spanprof/mem"
	"honnef.co/go/spanprof/profiler"
)

// SectionKey identifies an instrumented call site across threads.
type SectionKey struct {
	Section string
	File    string
	Line    int32
}

func (k SectionKey) Compare(o SectionKey) int {
	if c := cmp.Compare(k.Section, o.Section); c != 0 {
		return c
	}
	if c := cmp.Compare(k.File, o.File); c != 0 {
		return c
	}
	return cmp.Compare(k.Line, o.Line)
}

type SectionStats struct {
	SectionKey
	Count int
	// Self is the time spent in the section minus the time spent in sections nested in it.
	Min, Max, Total, Self time.Duration
	Average, Median       float64
	// Open is the number of occurrences that hadn't ended when capture stopped.
	Open int
}

type sectionAccum struct {
	stats  SectionStats
	values mem.BucketSlice[time.Duration]
}

// ComputeStatistics aggregates the entries of the given thread slots by call site, or of all slots if threads is
// empty. The result is sorted by total time, longest first.
func ComputeStatistics(d *profiler.Data, threads ...int) []SectionStats {
	var include container.Set[int]
	if len(threads) > 0 {
		include = container.NewSet(threads...)
	}
	end := CaptureEnd(d)
	accums := map[SectionKey]*sectionAccum{}
	var self []time.Duration

	for slot := range d.Threads {
		if include != nil && !include.Has(slot) {
			continue
		}
		entries := d.Threads[slot].LiveEntries()
		self = SelfTimes(d, slot, end, self)

		for i := range entries {
			e := &entries[i]
			key := SectionKey{Section: d.SectionName(e), File: d.FileName(e), Line: e.Line}
			acc, ok := accums[key]
			if !ok {
				acc = &sectionAccum{stats: SectionStats{SectionKey: key}}
				accums[key] = acc
			}
			stat := &acc.stats
			dur := time.Duration(EffectiveEnd(e, end) - e.Start)
			if stat.Count == 0 || dur < stat.Min {
				stat.Min = dur
			}
			if dur > stat.Max {
				stat.Max = dur
			}
			stat.Count++
			stat.Total += dur
			stat.Self += self[i]
			if e.IsOpen() {
				stat.Open++
			}
			acc.values.Append(dur)
		}
	}

	out := make([]SectionStats, 0, len(accums))
	var values []time.Duration
	for _, acc := range accums {
		stat := &acc.stats
		values = acc.values.AppendTo(values[:0])
		stat.Average = float64(stat.Total) / float64(len(values))
		slices.Sort(values)
		if len(values)%2 == 0 {
			mid := len(values) / 2
			stat.Median = float64(values[mid]+values[mid-1]) / 2
		} else {
			stat.Median = float64(values[len(values)/2])
		}
		out = append(out, *stat)
	}
	slices.SortFunc(out, func(a, b SectionStats) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return a.SectionKey.Compare(b.SectionKey)
	})
	return out
}

// SelfTimes returns, for every entry of thread slot, its duration minus the durations of the entries directly nested
// in it. The result is stored in dst, which is grown as necessary.
func SelfTimes(d *profiler.Data, slot int, captureEnd clock.Timestamp, dst []time.Duration) []time.Duration {
	entries := d.Threads[slot].LiveEntries()
	dst = mem.EnsureLen(dst[:0], len(entries))[:len(entries)]
	for i := range entries {
		e := &entries[i]
		dst[i] = time.Duration(EffectiveEnd(e, captureEnd) - e.Start)
	}
	for i := range entries {
		e := &entries[i]
		if p, ok := e.ParentIndex().Get(); ok && int(p) < len(dst) {
			dst[p] -= time.Duration(EffectiveEnd(e, captureEnd) - e.Start)
		}
	}
	return dst
}
