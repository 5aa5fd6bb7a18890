package profiler

import (
	"errors"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/mysync"
)

// slotTable is the state guarded by the registry lock: which capture slots are being handed out from, and the
// slot ownership flags within it.
type slotTable struct {
	data *Data
}

// registry assigns thread slots. Its lock is the only lock on the capture path, and it is only taken when a
// thread acquires or releases a slot, when a thread records its first entry, and when a frame boundary is
// crossed.
type registry struct {
	mu *mysync.Mutex[*slotTable]
}

func newRegistry() *registry {
	return &registry{mu: mysync.NewMutex(&slotTable{})}
}

// install makes d the capture that slots are handed out from. Slot 0 is reserved for the coordinating goroutine.
func (r *registry) install(d *Data) {
	tbl, u := r.mu.Lock()
	defer u.Unlock()
	tbl.data = d
	if d != nil && len(d.Threads) > 0 {
		d.Threads[0].reset(0)
		d.Threads[0].Initialized = true
	}
}

var (
	errStaleCapture = errors.New("capture was replaced")
	errNoFreeSlot   = errors.New("no free thread slot")
)

// acquire claims the first free slot in d. It returns errStaleCapture if d is no longer the installed capture and
// errNoFreeSlot if all slots are taken.
func (r *registry) acquire(d *Data) (int, error) {
	tbl, u := r.mu.Lock()
	defer u.Unlock()
	if tbl.data != d || d == nil {
		return -1, errStaleCapture
	}
	for i := range d.Threads {
		td := &d.Threads[i]
		if !td.Initialized {
			if td.CurrentEntry > 0 {
				forgetSlot(d, i)
			}
			td.reset(i)
			td.Initialized = true
			return i, nil
		}
	}
	return -1, errNoFreeSlot
}

// forgetSlot removes slot from all frame snapshots. It is called before a slot that already holds entries is handed
// to a new owner, whose entries will overwrite the ones the snapshots refer to.
func forgetSlot(d *Data, slot int) {
	for fi := range d.Frames[:d.CurrentFrame] {
		f := &d.Frames[fi]
		infos := f.FrameThreads[:f.FrameThreadCount]
		n := 0
		for _, info := range infos {
			if info.ThreadIndex != uint32(slot) {
				infos[n] = info
				n++
			}
		}
		f.FrameThreadCount = uint32(n)
	}
}

func (r *registry) release(d *Data, slot int) {
	tbl, u := r.mu.Lock()
	defer u.Unlock()
	if tbl.data != d || slot < 0 || slot >= len(d.Threads) {
		return
	}
	d.Threads[slot].Initialized = false
}

// releaseAll frees every slot and stops handing out new ones.
func (r *registry) releaseAll() {
	tbl, u := r.mu.Lock()
	defer u.Unlock()
	if tbl.data != nil {
		for i := range tbl.data.Threads {
			tbl.data.Threads[i].Initialized = false
		}
	}
	tbl.data = nil
}

// registerFirstEntry adds a thread that just recorded its first entry to the currently open frame, so that frame
// consumers can find it without scanning every slot.
func (r *registry) registerFirstEntry(d *Data, slot int) {
	tbl, u := r.mu.Lock()
	defer u.Unlock()
	if tbl.data != d || d.CurrentFrame == 0 {
		return
	}
	f := &d.Frames[d.CurrentFrame-1]
	for _, info := range f.FrameThreads[:f.FrameThreadCount] {
		if info.ThreadIndex == uint32(slot) {
			// openFrame ran after the entry was committed and already recorded it.
			return
		}
	}
	if int(f.FrameThreadCount) >= len(f.FrameThreads) {
		return
	}
	f.FrameThreads[f.FrameThreadCount] = FrameThreadInfo{ThreadIndex: uint32(slot), ActiveEntry: 0}
	f.FrameThreadCount++
}

// openFrame closes the current frame at now and opens the next one, recording for every owned slot with at least one
// entry its most recently opened entry.
func (r *registry) openFrame(d *Data, now clock.Timestamp) {
	_, u := r.mu.Lock()
	defer u.Unlock()
	f := &d.Frames[d.CurrentFrame]
	f.FrameThreadCount = 0
	for i := range d.Threads {
		td := &d.Threads[i]
		if !td.Initialized {
			continue
		}
		n := td.committed.Load()
		if n == 0 {
			continue
		}
		if int(f.FrameThreadCount) >= len(f.FrameThreads) {
			break
		}
		f.FrameThreads[f.FrameThreadCount] = FrameThreadInfo{ThreadIndex: uint32(i), ActiveEntry: n - 1}
		f.FrameThreadCount++
	}
	f.Name = ""
	f.Start = now
	f.End = clock.Open
	if d.CurrentFrame > 0 {
		d.Frames[d.CurrentFrame-1].End = now
	}
	d.CurrentFrame++
}

// frameCount returns the number of started frames of the installed capture.
func (r *registry) frameCount() uint32 {
	tbl, u := r.mu.RLock()
	defer u.RUnlock()
	if tbl.data == nil {
		return 0
	}
	return tbl.data.CurrentFrame
}

// activeSlots counts owned slots.
func (r *registry) activeSlots() int {
	tbl, u := r.mu.RLock()
	defer u.RUnlock()
	if tbl.data == nil {
		return 0
	}
	var n int
	for i := range tbl.data.Threads {
		if tbl.data.Threads[i].Initialized {
			n++
		}
	}
	return n
}

type ownedSlot struct {
	slot    int
	entries uint32
}

// owned appends to dst every owned slot with the number of entries it has committed.
func (r *registry) owned(dst []ownedSlot) []ownedSlot {
	tbl, u := r.mu.RLock()
	defer u.RUnlock()
	if tbl.data == nil {
		return dst
	}
	for i := range tbl.data.Threads {
		td := &tbl.data.Threads[i]
		if td.Initialized {
			dst = append(dst, ownedSlot{i, td.committed.Load()})
		}
	}
	return dst
}
