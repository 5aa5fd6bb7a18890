// Package mysync provides a mutex that owns the value it guards.
package mysync

import (
	"sync"
)

// Mutex guards a value of type T. The value is only reachable through Lock and RLock, which makes it hard to
// touch it without holding the lock.
type Mutex[T any] struct {
	mu sync.RWMutex
	v  T
}

type MutexUnlock struct {
	mu *sync.RWMutex
}

type MutexRUnlock struct {
	mu *sync.RWMutex
}

func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{v: v}
}

func (mu *Mutex[T]) Lock() (T, MutexUnlock) {
	mu.mu.Lock()
	return mu.v, MutexUnlock{&mu.mu}
}

func (mu *Mutex[T]) RLock() (T, MutexRUnlock) {
	mu.mu.RLock()
	return mu.v, MutexRUnlock{&mu.mu}
}

// Do runs fn with the write lock held.
func (mu *Mutex[T]) Do(fn func(v T)) {
	v, u := mu.Lock()
	defer u.Unlock()
	fn(v)
}

func (u MutexUnlock) Unlock()   { u.mu.Unlock() }
func (u MutexRUnlock) RUnlock() { u.mu.RUnlock() }
