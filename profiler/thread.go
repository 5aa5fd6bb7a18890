package profiler

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/color"
)

// LockColor is the color of sections recorded by Thread.Lock.
const LockColor color.Packed = 0xFF0000FF

// Thread is a goroutine's handle to its slot in the capture. It caches the slot together with the session
// generation it was acquired in; when the controller is reset, the next call acquires a new slot.
//
// A Thread must only be used by one goroutine at a time. None of its methods block on other writers, and none of
// them allocate once the slot has been acquired.
type Thread struct {
	c    *Controller
	gen  uint64
	slot int
	data *Data
	td   *ThreadData
}

// resolve returns the thread's slot in the current session, acquiring one if the cached slot is stale. It returns
// nil if no slot is available.
func (th *Thread) resolve() *ThreadData {
	c := th.c
	gen := c.gen.Load()
	if th.gen == gen {
		return th.td
	}

	th.gen = gen
	th.slot = -1
	th.td = nil
	th.data = c.data.Load()
	if th.data == nil || c.gen.Load() != gen {
		// Reset is in progress; the next call resolves against the new session.
		return nil
	}
	slot, err := c.registry.acquire(th.data)
	if errors.Is(err, errStaleCapture) {
		// A Reset replaced the capture after gen was read. Retry on the next call.
		th.gen = 0
		th.data = nil
		return nil
	}
	if err != nil {
		// Only logged once per handle and session: the handle now caches the failed acquisition for gen.
		c.slotExhaustions.Add(1)
		c.logger.WithFields(logrus.Fields{
			"generation": gen,
			"slots":      len(th.data.Threads),
		}).Warn("no free thread slot, profiling calls from this thread are ignored")
		return nil
	}
	th.slot = slot
	th.td = &th.data.Threads[slot]
	return th.td
}

func (th *Thread) bind(gen uint64, d *Data, slot int) {
	th.gen = gen
	th.data = d
	th.slot = slot
	th.td = &d.Threads[slot]
}

// Slot returns the thread's current slot, or -1 if it doesn't own one.
func (th *Thread) Slot() int {
	if th.gen != th.c.gen.Load() {
		return -1
	}
	return th.slot
}

// Push opens a section. It is ignored if capture isn't running, if the thread couldn't get a slot, or if the
// call stack is already MaxCallStack deep. If the thread's entry arena is full, the controller switches to Full
// and the section is not recorded.
func (th *Thread) Push(site Site) {
	c := th.c
	if State(c.state.Load()) != Capturing {
		return
	}
	td := th.resolve()
	if td == nil {
		return
	}
	d := th.data
	if td.CurrentEntry >= uint32(len(td.Entries)) {
		c.markFull("thread entry arena exhausted")
		return
	}
	if td.CallStackDepth >= uint32(len(td.EntryStack)) {
		// Remember the refused push so that its matching Pop doesn't close an enclosing section.
		td.overflow++
		c.stackOverflows.Add(1)
		return
	}

	idx := td.CurrentEntry
	parent := uint32(NoParent)
	if td.CallStackDepth > 0 {
		parent = td.EntryStack[td.CallStackDepth-1]
	}
	now := d.timer.Now()
	td.Entries[idx] = Entry{
		Start:   now,
		End:     clock.Open,
		Section: site.Section,
		File:    site.File,
		Line:    site.Line,
		Color:   site.Color,
		Level:   td.CallStackDepth,
		Parent:  parent,
	}
	td.EntryStack[td.CallStackDepth] = idx
	td.CallStackDepth++
	td.CurrentEntry++
	td.MaxLevel = max(td.MaxLevel, td.CallStackDepth)
	td.MinTime = min(td.MinTime, now)
	td.MaxTime = max(td.MaxTime, now)
	td.committed.Store(td.CurrentEntry)

	if idx == 0 {
		c.registry.registerFirstEntry(d, th.slot)
	}
	if c.restarting.Load() {
		c.restarting.Store(false)
	}
}

// PushSection is like Push, but takes the call site's identity as strings. Known strings are looked up without
// locking; prefer Push with a Site created by Controller.Site in tight loops.
func (th *Thread) PushSection(section string, col color.Packed, file string, line int) {
	if State(th.c.state.Load()) != Capturing {
		return
	}
	th.Push(Site{
		Section: th.c.labels.Intern(section),
		File:    th.c.labels.Intern(file),
		Line:    int32(line),
		Color:   col,
	})
}

// Pop closes the most recently opened section. It is ignored if capture isn't running, if the stack is empty, or if
// the session was reset and nothing has been pushed since.
func (th *Thread) Pop() {
	c := th.c
	if State(c.state.Load()) != Capturing || c.restarting.Load() {
		return
	}
	// A handle from an earlier session has nothing to pop in this one.
	if th.gen != c.gen.Load() || th.td == nil {
		return
	}
	td := th.td
	if td.overflow > 0 {
		td.overflow--
		return
	}
	if td.CallStackDepth == 0 {
		return
	}
	td.CallStackDepth--
	e := &td.Entries[td.EntryStack[td.CallStackDepth]]
	e.End = th.data.timer.Now()
	td.MaxTime = max(td.MaxTime, e.End)
}

// Name sets the thread's display name. Only the first call per slot takes effect.
func (th *Thread) Name(name string) {
	if State(th.c.state.Load()) != Capturing {
		return
	}
	td := th.resolve()
	if td == nil || td.named {
		return
	}
	td.Name = name
	td.named = true
}

// Hide excludes the thread from display. Its entries are still recorded.
func (th *Thread) Hide() {
	if State(th.c.state.Load()) != Capturing {
		return
	}
	if td := th.resolve(); td != nil {
		td.Hidden = true
	}
}

// Lock acquires l, recording the time spent waiting for it as a section.
func (th *Thread) Lock(l sync.Locker, site Site) {
	th.Push(site)
	l.Lock()
	th.Pop()
}

// Finish releases the thread's slot. A later call on the same handle acquires a new slot. While the capture is
// paused or full the slot stays marked as owned, so that the frozen capture isn't modified.
func (th *Thread) Finish() {
	if th.td != nil && th.gen == th.c.gen.Load() && th.c.State() == Capturing {
		th.c.registry.release(th.data, th.slot)
	}
	th.gen = 0
	th.slot = -1
	th.td = nil
	th.data = nil
}
