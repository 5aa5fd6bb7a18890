package container

import "fmt"

// Option is a value that may be absent. The profiler uses it to report the parent of an entry, which is
// stored as a sentinel index in the arena.
type Option[T any] struct {
	v   T
	set bool
}

func (opt Option[T]) String() string {
	if !opt.set {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", opt.v)
}

func None[T any]() Option[T] {
	return Option[T]{}
}

func Some[T any](v T) Option[T] {
	return Option[T]{v: v, set: true}
}

func (opt Option[T]) Get() (T, bool) {
	return opt.v, opt.set
}
