package profiler

import (
	"sync"
	"sync/atomic"
)

// Label is a handle to an interned string, such as a section name or a file path. Label 0 is the empty string.
type Label uint32

// LabelTable interns strings. Lookups of strings that have been promoted to the read-only index are lock-free and
// don't allocate. Newly interned strings live in a dirty index guarded by the mutex until enough calls have missed
// the read-only index, at which point the dirty index is promoted wholesale. Labels are never removed, so a Label
// stays valid for the table's lifetime.
type LabelTable struct {
	read  atomic.Pointer[map[string]Label]
	names atomic.Pointer[[]string]

	mu sync.Mutex

	// dirty, if not nil, is a superset of read.
	dirty  map[string]Label
	misses int
}

func NewLabelTable() *LabelTable {
	t := &LabelTable{}
	index := map[string]Label{"": 0}
	names := []string{""}
	t.read.Store(&index)
	t.names.Store(&names)
	return t
}

// Intern returns the label for s, adding it to the table if necessary.
func (t *LabelTable) Intern(s string) Label {
	if l, ok := (*t.read.Load())[s]; ok {
		return l
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.internLocked(s)
}

// InternAll interns every string in ss and returns their labels in the same order. It takes the lock once.
func (t *LabelTable) InternAll(ss []string) []Label {
	out := make([]Label, len(ss))
	read := *t.read.Load()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range ss {
		if l, ok := read[s]; ok {
			out[i] = l
			continue
		}
		out[i] = t.internLocked(s)
	}
	return out
}

func (t *LabelTable) internLocked(s string) Label {
	read := *t.read.Load()
	if l, ok := read[s]; ok {
		return l
	}
	if l, ok := t.dirty[s]; ok {
		t.missLocked()
		return l
	}
	if t.dirty == nil {
		t.dirty = make(map[string]Label, len(read)*2)
		for k, v := range read {
			t.dirty[k] = v
		}
	}
	names := *t.names.Load()
	l := Label(len(names))
	// Appending past the end of the published slice is invisible to readers holding the old header.
	names = append(names, s)
	t.names.Store(&names)
	t.dirty[s] = l
	t.missLocked()
	return l
}

// missLocked promotes the dirty index once the read-only index has been missed as often as it has entries, so that
// copying the read-only index into a new dirty index costs a constant amount per miss.
func (t *LabelTable) missLocked() {
	t.misses++
	if t.misses < len(*t.read.Load()) {
		return
	}
	dirty := t.dirty
	t.read.Store(&dirty)
	t.dirty = nil
	t.misses = 0
}

// Lookup returns the label for s without interning it.
func (t *LabelTable) Lookup(s string) (Label, bool) {
	if l, ok := (*t.read.Load())[s]; ok {
		return l, true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.dirty[s]
	if ok {
		t.missLocked()
	}
	return l, ok
}

// Name returns the string for l. Unknown labels resolve to the empty string.
func (t *LabelTable) Name(l Label) string {
	names := *t.names.Load()
	if int(l) >= len(names) {
		return ""
	}
	return names[l]
}

func (t *LabelTable) Len() int {
	return len(*t.names.Load())
}
