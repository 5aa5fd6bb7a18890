package container

// Ring is a fixed-capacity FIFO that overwrites its oldest element once full. It never allocates after
// NewRing. It is not safe for concurrent use.
//
// The profiler's own arenas stop when they fill up instead of dropping data; Ring is for callers that
// prefer a bounded tail, such as event logs.
type Ring[T any] struct {
	items []T
	// index of the oldest element
	start int
	n     int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("container: ring capacity must be positive")
	}
	return &Ring[T]{items: make([]T, capacity)}
}

func (r *Ring[T]) Empty() bool { return r.n == 0 }
func (r *Ring[T]) Len() int    { return r.n }
func (r *Ring[T]) Cap() int    { return len(r.items) }

func (r *Ring[T]) index(i int) int {
	i += r.start
	if i >= len(r.items) {
		i -= len(r.items)
	}
	return i
}

// Push appends v. If the ring is full, the oldest element is overwritten and dropped is true.
func (r *Ring[T]) Push(v T) (dropped bool) {
	if r.n == len(r.items) {
		r.items[r.start] = v
		r.start = r.index(1)
		return true
	}
	r.items[r.index(r.n)] = v
	r.n++
	return false
}

// PopOldest removes and returns the oldest element.
func (r *Ring[T]) PopOldest() (T, bool) {
	if r.n == 0 {
		return *new(T), false
	}
	v := r.items[r.start]
	r.items[r.start] = *new(T)
	r.start = r.index(1)
	r.n--
	return v, true
}

// Drain discards up to n of the oldest elements and returns how many were discarded.
func (r *Ring[T]) Drain(n int) int {
	if n <= 0 {
		return 0
	}
	if n > r.n {
		n = r.n
	}
	for i := 0; i < n; i++ {
		r.items[r.index(i)] = *new(T)
	}
	r.start = r.index(n)
	r.n -= n
	return n
}

// At returns the i-th element in logical order, 0 being the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.n {
		panic("container: ring index out of range")
	}
	return r.items[r.index(i)]
}

// AppendOrdered appends the first n logical elements, oldest first, to dst. n is clamped to Len.
func (r *Ring[T]) AppendOrdered(dst []T, n int) []T {
	if n > r.n {
		n = r.n
	}
	for i := 0; i < n; i++ {
		dst = append(dst, r.items[r.index(i)])
	}
	return dst
}

func (r *Ring[T]) Reset() {
	clear(r.items)
	r.start = 0
	r.n = 0
}
