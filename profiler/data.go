package profiler

import (
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/color"
	"honnef.co/go/spanprof/container"
)

// NoParent is the parent index of entries at nesting level 0.
const NoParent = math.MaxUint32

const defaultMaxFrameTime = int64(30 * time.Millisecond)

// Site is the static identity of an instrumented call site.
type Site struct {
	Section Label
	File    Label
	Line    int32
	Color   color.Packed
}

// Entry is one occurrence of a profiled section.
type Entry struct {
	Start clock.Timestamp
	// End is clock.Open until the section is popped.
	End     clock.Timestamp
	Section Label
	File    Label
	Line    int32
	Color   color.Packed
	// Level is the nesting depth at push time, 0 being the top of the stack.
	Level uint32
	// Parent is the index of the enclosing entry in the same thread, or NoParent.
	Parent uint32
}

func (e *Entry) IsOpen() bool { return e.End == clock.Open }

func (e *Entry) ParentIndex() container.Option[uint32] {
	if e.Parent == NoParent {
		return container.None[uint32]()
	}
	return container.Some(e.Parent)
}

func (e *Entry) Site() Site {
	return Site{Section: e.Section, File: e.File, Line: e.Line, Color: e.Color}
}

// ThreadData is the entry arena of one thread slot.
type ThreadData struct {
	// Initialized reports whether a thread currently owns the slot.
	Initialized bool
	Hidden      bool
	Name        string

	CallStackDepth uint32
	MaxLevel       uint32
	// CurrentEntry is the index of the next free entry; Entries[:CurrentEntry] are live.
	CurrentEntry uint32
	MinTime      clock.Timestamp
	MaxTime      clock.Timestamp

	Entries []Entry
	// EntryStack holds the indices of open entries; EntryStack[:CallStackDepth] are live.
	EntryStack []uint32

	// committed mirrors CurrentEntry for goroutines other than the owner. It is only advanced once an entry has
	// been written completely.
	committed atomic.Uint32
	named     bool
	// overflow counts pushes refused because the call stack was full and not yet popped.
	overflow uint32
}

func (td *ThreadData) LiveEntries() []Entry {
	return td.Entries[:td.CurrentEntry]
}

func (td *ThreadData) OpenStack() []uint32 {
	return td.EntryStack[:td.CallStackDepth]
}

func (td *ThreadData) reset(slot int) {
	td.Hidden = false
	td.Name = defaultThreadName(slot)
	td.named = false
	td.CallStackDepth = 0
	td.overflow = 0
	td.MaxLevel = 0
	td.CurrentEntry = 0
	td.MinTime = math.MaxInt64
	td.MaxTime = 0
	td.committed.Store(0)
}

func defaultThreadName(slot int) string {
	return "Thread " + strconv.Itoa(slot)
}

// Region is one window of time on the secondary timeline.
type Region struct {
	Name  string
	Start clock.Timestamp
	End   clock.Timestamp
}

func (r *Region) Duration() time.Duration { return time.Duration(r.End - r.Start) }

// FrameThreadInfo records the most recently opened entry of a thread at a frame boundary.
type FrameThreadInfo struct {
	ThreadIndex uint32
	ActiveEntry uint32
}

type Frame struct {
	Region
	FrameThreadCount uint32
	FrameThreads     []FrameThreadInfo
}

func (f *Frame) LiveThreads() []FrameThreadInfo {
	return f.FrameThreads[:f.FrameThreadCount]
}

// Data is everything captured in one session. It is also the unit that gets persisted.
//
// While the owning Controller is capturing, Data is being written to concurrently and must not be read.
type Data struct {
	Threads []ThreadData
	Frames  []Frame
	Regions []Region

	MaxFrameTime    int64
	RegionTimeLimit int64
	CurrentFrame    uint32
	CurrentRegion   uint32

	Labels *LabelTable

	// capacities the arenas were allocated with; zero for decoded captures.
	settings Settings
	timer    clock.Timer
}

// NewData returns an empty capture with no preallocated arenas, suitable for filling in by a decoder.
func NewData(labels *LabelTable) *Data {
	if labels == nil {
		labels = NewLabelTable()
	}
	return &Data{
		Labels:       labels,
		MaxFrameTime: defaultMaxFrameTime,
	}
}

func allocateData(s Settings, labels *LabelTable) *Data {
	d := NewData(labels)
	d.settings = s

	// One backing array per kind keeps the number of allocations independent of the number of threads and frames.
	entries := make([]Entry, int(s.MaxThreads)*int(s.MaxEntriesPerThread))
	stacks := make([]uint32, int(s.MaxThreads)*int(s.MaxCallStack))
	d.Threads = make([]ThreadData, s.MaxThreads)
	for i := range d.Threads {
		td := &d.Threads[i]
		ne, ns := int(s.MaxEntriesPerThread), int(s.MaxCallStack)
		td.Entries = entries[i*ne : (i+1)*ne : (i+1)*ne]
		td.EntryStack = stacks[i*ns : (i+1)*ns : (i+1)*ns]
		td.reset(i)
	}

	infos := make([]FrameThreadInfo, int(s.MaxFrames)*int(s.MaxThreads))
	d.Frames = make([]Frame, s.MaxFrames)
	for i := range d.Frames {
		nt := int(s.MaxThreads)
		d.Frames[i].FrameThreads = infos[i*nt : (i+1)*nt : (i+1)*nt]
	}
	d.Regions = make([]Region, s.MaxRegions)
	return d
}

func (d *Data) Label(l Label) string { return d.Labels.Name(l) }

func (d *Data) SectionName(e *Entry) string { return d.Labels.Name(e.Section) }

func (d *Data) FileName(e *Entry) string { return d.Labels.Name(e.File) }

// LiveEntries returns the recorded entries of thread slot i.
func (d *Data) LiveEntries(i int) []Entry {
	return d.Threads[i].LiveEntries()
}

// LiveFrames returns the frames that have been started.
func (d *Data) LiveFrames() []Frame {
	return d.Frames[:d.CurrentFrame]
}

// LiveRegions returns the regions that have been completed.
func (d *Data) LiveRegions() []Region {
	return d.Regions[:d.CurrentRegion]
}

// EndTime returns the latest timestamp recorded anywhere in the capture.
func (d *Data) EndTime() clock.Timestamp {
	var end clock.Timestamp
	for i := range d.Threads {
		td := &d.Threads[i]
		if td.CurrentEntry > 0 && td.MaxTime > end {
			end = td.MaxTime
		}
	}
	for _, f := range d.LiveFrames() {
		end = max(end, f.Start)
		if f.End != clock.Open {
			end = max(end, f.End)
		}
	}
	for _, r := range d.LiveRegions() {
		end = max(end, r.End)
	}
	return end
}
