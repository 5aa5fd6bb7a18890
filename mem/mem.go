// Package mem provides allocation-conscious collections for building derived views of a capture.
package mem

const allocatorBucketSize = 64

// BucketSlice is like a slice, but grows one bucket at a time, instead of growing exponentially. Pointers returned by
// Grow, Append and Ptr stay valid as the slice grows.
type BucketSlice[T any] struct {
	n       int
	buckets [][]T
}

// Grow grows the slice by one and returns a pointer to the new element, without overwriting it.
func (l *BucketSlice[T]) Grow() *T {
	a, _ := l.index(l.n)
	if a >= len(l.buckets) {
		l.buckets = append(l.buckets, make([]T, 0, allocatorBucketSize))
	}
	l.buckets[a] = l.buckets[a][:len(l.buckets[a])+1]
	ptr := &l.buckets[a][len(l.buckets[a])-1]
	l.n++
	return ptr
}

// Append appends v to the slice and returns a pointer to the new element.
func (l *BucketSlice[T]) Append(v T) *T {
	ptr := l.Grow()
	*ptr = v
	return ptr
}

func (l *BucketSlice[T]) index(i int) (int, int) {
	return int(uint(i) / allocatorBucketSize), int(uint(i) % allocatorBucketSize)
}

func (l *BucketSlice[T]) Ptr(i int) *T {
	a, b := l.index(i)
	return &l.buckets[a][b]
}

func (l *BucketSlice[T]) Get(i int) T {
	a, b := l.index(i)
	return l.buckets[a][b]
}

func (l *BucketSlice[T]) Set(i int, v T) {
	a, b := l.index(i)
	l.buckets[a][b] = v
}

func (l *BucketSlice[T]) Len() int {
	return l.n
}

// Reset empties the slice but keeps its buckets for reuse.
func (l *BucketSlice[T]) Reset() {
	for i := range l.buckets {
		clear(l.buckets[i])
		l.buckets[i] = l.buckets[i][:0]
	}
	l.n = 0
}

// AppendTo appends all elements, in order, to dst.
func (l *BucketSlice[T]) AppendTo(dst []T) []T {
	dst = EnsureCap(dst, len(dst)+l.n)
	for _, b := range l.buckets {
		dst = append(dst, b...)
	}
	return dst
}

// GrowLen increases the slice's length by n elements.
func GrowLen[S ~[]E, E any](s S, n int) S {
	return append(s, make([]E, n)...)
}

// EnsureLen returns s with a length of at least n.
func EnsureLen[S ~[]E, E any](s S, n int) S {
	if len(s) >= n {
		return s
	}
	return GrowLen(s, n-len(s))
}

// EnsureCap returns s with a capacity of at least n, without changing its length.
func EnsureCap[S ~[]E, E any](s S, n int) S {
	if cap(s) >= n {
		return s
	}
	out := make(S, len(s), n)
	copy(out, s)
	return out
}
