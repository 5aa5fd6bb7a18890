package capture

import (
	"errors"
	"fmt"
	"io"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/color"
	"honnef.co/go/spanprof/profiler"
)

var (
	// ErrTruncated is returned when the input ends before a record is complete, or when a length prefix exceeds the
	// remaining input.
	ErrTruncated = errors.New("truncated capture")
	// ErrMalformed is returned when the input decodes but describes an inconsistent capture.
	ErrMalformed = errors.New("malformed capture")
)

// Minimum encoded sizes, used to reject length prefixes that can't possibly fit in the remaining input.
const (
	minEntrySize  = 4 + 4 + 4 + 4 + 4 + 8 + 8 + 4
	minThreadSize = 1 + 4 + 4 + 8 + 8 + 4 + 1 + 4 + 4 + 4
	minRegionSize = 4 + 8 + 8
	minFrameSize  = minRegionSize + 4 + 4
	frameInfoSize = 4 + 4
)

type decoder struct {
	b   []byte
	off int
	d   *profiler.Data

	// Entries hold indices into strs until the labels are interned in bulk.
	strs  []string
	local map[string]profiler.Label
}

func (dec *decoder) truncated(what string, want int) error {
	return fmt.Errorf("%w: reading %s at offset %d: need %d bytes, have %d", ErrTruncated, what, dec.off, want, len(dec.b)-dec.off)
}

func (dec *decoder) malformed(at int, format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformed, fmt.Sprintf(format, args...), at)
}

func (dec *decoder) take(what string, n int) ([]byte, error) {
	if len(dec.b)-dec.off < n {
		return nil, dec.truncated(what, n)
	}
	b := dec.b[dec.off : dec.off+n]
	dec.off += n
	return b, nil
}

func (dec *decoder) bool(what string) (bool, error) {
	b, err := dec.take(what, 1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, dec.malformed(dec.off-1, "%s has invalid boolean value %d", what, b[0])
	}
}

func (dec *decoder) u32(what string) (uint32, error) {
	b, err := dec.take(what, 4)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b), nil
}

func (dec *decoder) i64(what string) (int64, error) {
	b, err := dec.take(what, 8)
	if err != nil {
		return 0, err
	}
	return int64(byteOrder.Uint64(b)), nil
}

// length reads a sequence length and checks that elements of at least minSize bytes each can fit in the rest of
// the input.
func (dec *decoder) length(what string, minSize int) (int, error) {
	n, err := dec.u32(what)
	if err != nil {
		return 0, err
	}
	if rest := len(dec.b) - dec.off; uint64(n)*uint64(minSize) > uint64(rest) {
		return 0, fmt.Errorf("%w: %s has %d elements at offset %d, but only %d bytes remain", ErrTruncated, what, n, dec.off-4, rest)
	}
	return int(n), nil
}

func (dec *decoder) str(what string) (string, error) {
	n, err := dec.length(what, 1)
	if err != nil {
		return "", err
	}
	b, err := dec.take(what, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (dec *decoder) label(what string) (profiler.Label, error) {
	s, err := dec.str(what)
	if err != nil {
		return 0, err
	}
	l, ok := dec.local[s]
	if !ok {
		l = profiler.Label(len(dec.strs))
		dec.strs = append(dec.strs, s)
		dec.local[s] = l
	}
	return l, nil
}

// internLabels replaces the decoder-local label indices of all entries with labels from the capture's table.
func (dec *decoder) internLabels() {
	labels := dec.d.Labels.InternAll(dec.strs)
	for i := range dec.d.Threads {
		entries := dec.d.Threads[i].Entries
		for j := range entries {
			entries[j].Section = labels[entries[j].Section]
			entries[j].File = labels[entries[j].File]
		}
	}
}

// entry decodes the entry at index idx of a thread whose earlier entries are prev.
func (dec *decoder) entry(e *profiler.Entry, idx int, prev []profiler.Entry) error {
	start := dec.off
	var err error
	if e.Section, err = dec.label("entry section"); err != nil {
		return err
	}
	if e.File, err = dec.label("entry file"); err != nil {
		return err
	}
	line, err := dec.u32("entry line")
	if err != nil {
		return err
	}
	e.Line = int32(line)
	col, err := dec.u32("entry color")
	if err != nil {
		return err
	}
	e.Color = color.Packed(col)
	if e.Level, err = dec.u32("entry level"); err != nil {
		return err
	}
	s, err := dec.i64("entry start")
	if err != nil {
		return err
	}
	end, err := dec.i64("entry end")
	if err != nil {
		return err
	}
	e.Start, e.End = clock.Timestamp(s), clock.Timestamp(end)
	if e.Parent, err = dec.u32("entry parent"); err != nil {
		return err
	}
	if e.Parent != profiler.NoParent && e.Parent >= uint32(idx) {
		return dec.malformed(start, "entry %d has parent %d", idx, e.Parent)
	}
	if !e.IsOpen() && e.End < e.Start {
		return dec.malformed(start, "entry %d ends at %d before it starts at %d", idx, e.End, e.Start)
	}
	var level uint32
	if e.Parent != profiler.NoParent {
		level = prev[e.Parent].Level + 1
	}
	if e.Level != level {
		return dec.malformed(start, "entry %d has level %d, but its parent chain implies %d", idx, e.Level, level)
	}
	return nil
}

func (dec *decoder) thread(td *profiler.ThreadData, slot int) error {
	start := dec.off
	var err error
	if td.Initialized, err = dec.bool("thread initialized"); err != nil {
		return err
	}
	if td.CallStackDepth, err = dec.u32("thread call stack depth"); err != nil {
		return err
	}
	if td.MaxLevel, err = dec.u32("thread max level"); err != nil {
		return err
	}
	minTime, err := dec.i64("thread min time")
	if err != nil {
		return err
	}
	maxTime, err := dec.i64("thread max time")
	if err != nil {
		return err
	}
	td.MinTime, td.MaxTime = clock.Timestamp(minTime), clock.Timestamp(maxTime)
	if td.CurrentEntry, err = dec.u32("thread current entry"); err != nil {
		return err
	}
	if td.Hidden, err = dec.bool("thread hidden"); err != nil {
		return err
	}
	if td.Name, err = dec.str("thread name"); err != nil {
		return err
	}

	n, err := dec.length("thread entries", minEntrySize)
	if err != nil {
		return err
	}
	if n != int(td.CurrentEntry) {
		return dec.malformed(start, "thread %d has %d entries, but its cursor is %d", slot, n, td.CurrentEntry)
	}
	td.Entries = make([]profiler.Entry, n)
	for i := range td.Entries {
		if err := dec.entry(&td.Entries[i], i, td.Entries[:i]); err != nil {
			return err
		}
	}

	n, err = dec.length("thread entry stack", 4)
	if err != nil {
		return err
	}
	if n != int(td.CallStackDepth) {
		return dec.malformed(start, "thread %d has %d stack slots, but its depth is %d", slot, n, td.CallStackDepth)
	}
	td.EntryStack = make([]uint32, n)
	for i := range td.EntryStack {
		if td.EntryStack[i], err = dec.u32("thread entry stack"); err != nil {
			return err
		}
		if td.EntryStack[i] >= td.CurrentEntry {
			return dec.malformed(dec.off-4, "thread %d has stack slot referring to entry %d of %d", slot, td.EntryStack[i], td.CurrentEntry)
		}
	}
	return nil
}

func (dec *decoder) region(r *profiler.Region) error {
	var err error
	if r.Name, err = dec.str("region name"); err != nil {
		return err
	}
	s, err := dec.i64("region start")
	if err != nil {
		return err
	}
	e, err := dec.i64("region end")
	if err != nil {
		return err
	}
	r.Start, r.End = clock.Timestamp(s), clock.Timestamp(e)
	return nil
}

func (dec *decoder) frame(f *profiler.Frame, idx int) error {
	start := dec.off
	if err := dec.region(&f.Region); err != nil {
		return err
	}
	var err error
	if f.FrameThreadCount, err = dec.u32("frame thread count"); err != nil {
		return err
	}
	n, err := dec.length("frame threads", frameInfoSize)
	if err != nil {
		return err
	}
	if n != int(f.FrameThreadCount) {
		return dec.malformed(start, "frame %d has %d threads, but its count is %d", idx, n, f.FrameThreadCount)
	}
	f.FrameThreads = make([]profiler.FrameThreadInfo, n)
	for i := range f.FrameThreads {
		info := &f.FrameThreads[i]
		if info.ThreadIndex, err = dec.u32("frame thread index"); err != nil {
			return err
		}
		if info.ActiveEntry, err = dec.u32("frame active entry"); err != nil {
			return err
		}
		if int(info.ThreadIndex) >= len(dec.d.Threads) {
			return dec.malformed(dec.off-8, "frame %d refers to thread %d of %d", idx, info.ThreadIndex, len(dec.d.Threads))
		}
		if n := dec.d.Threads[info.ThreadIndex].CurrentEntry; info.ActiveEntry >= n {
			return dec.malformed(dec.off-4, "frame %d refers to entry %d of thread %d, which has %d entries", idx, info.ActiveEntry, info.ThreadIndex, n)
		}
	}
	return nil
}

func (dec *decoder) data() error {
	d := dec.d
	n, err := dec.length("threads", minThreadSize)
	if err != nil {
		return err
	}
	d.Threads = make([]profiler.ThreadData, n)
	for i := range d.Threads {
		if err := dec.thread(&d.Threads[i], i); err != nil {
			return err
		}
	}

	n, err = dec.length("frames", minFrameSize)
	if err != nil {
		return err
	}
	d.Frames = make([]profiler.Frame, n)
	for i := range d.Frames {
		if err := dec.frame(&d.Frames[i], i); err != nil {
			return err
		}
	}

	n, err = dec.length("regions", minRegionSize)
	if err != nil {
		return err
	}
	d.Regions = make([]profiler.Region, n)
	for i := range d.Regions {
		if err := dec.region(&d.Regions[i]); err != nil {
			return err
		}
	}

	if d.MaxFrameTime, err = dec.i64("max frame time"); err != nil {
		return err
	}
	off := dec.off
	if d.CurrentFrame, err = dec.u32("current frame"); err != nil {
		return err
	}
	if int(d.CurrentFrame) != len(d.Frames) {
		return dec.malformed(off, "capture has %d frames, but its cursor is %d", len(d.Frames), d.CurrentFrame)
	}
	off = dec.off
	if d.CurrentRegion, err = dec.u32("current region"); err != nil {
		return err
	}
	if int(d.CurrentRegion) != len(d.Regions) {
		return dec.malformed(off, "capture has %d regions, but its cursor is %d", len(d.Regions), d.CurrentRegion)
	}
	if d.RegionTimeLimit, err = dec.i64("region time limit"); err != nil {
		return err
	}
	if dec.off != len(dec.b) {
		return dec.malformed(dec.off, "%d trailing bytes", len(dec.b)-dec.off)
	}
	return nil
}

// Unmarshal decodes a capture. Labels are interned into labels, or into a new table if labels is nil.
func Unmarshal(b []byte, labels *profiler.LabelTable) (*profiler.Data, error) {
	dec := decoder{b: b, d: profiler.NewData(labels), local: map[string]profiler.Label{}}
	if err := dec.data(); err != nil {
		return nil, err
	}
	dec.internLabels()
	return dec.d, nil
}

func Decode(r io.Reader, labels *profiler.LabelTable) (*profiler.Data, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(b, labels)
}
