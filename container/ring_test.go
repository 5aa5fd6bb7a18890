package container

import (
	"testing"

	"golang.org/x/exp/slices"
)

func TestRingPushUnderCapacity(t *testing.T) {
	r := NewRing[int](4)
	if !r.Empty() {
		t.Fatal("new ring isn't empty")
	}
	for i := 1; i <= 3; i++ {
		if r.Push(i) {
			t.Fatalf("Push(%d) reported a drop", i)
		}
	}
	if r.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", r.Len())
	}
	if got := r.AppendOrdered(nil, r.Len()); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("AppendOrdered=%v, want [1 2 3]", got)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing[int](3)
	var dropped int
	for i := 1; i <= 7; i++ {
		if r.Push(i) {
			dropped++
		}
	}
	if dropped != 4 {
		t.Errorf("dropped %d elements, want 4", dropped)
	}
	if r.Len() != 3 {
		t.Fatalf("Len()=%d, want 3", r.Len())
	}
	if got := r.AppendOrdered(nil, 3); !slices.Equal(got, []int{5, 6, 7}) {
		t.Errorf("AppendOrdered=%v, want [5 6 7]", got)
	}
	if got := r.AppendOrdered(nil, 2); !slices.Equal(got, []int{5, 6}) {
		t.Errorf("AppendOrdered(2)=%v, want [5 6]", got)
	}
	if got := r.AppendOrdered(nil, 10); len(got) != 3 {
		t.Errorf("AppendOrdered(10) returned %d elements, want 3", len(got))
	}
}

func TestRingPopAndDrain(t *testing.T) {
	r := NewRing[string](4)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push(s)
	}

	v, ok := r.PopOldest()
	if !ok || v != "b" {
		t.Fatalf("PopOldest()=(%q, %t), want (\"b\", true)", v, ok)
	}
	if n := r.Drain(2); n != 2 {
		t.Fatalf("Drain(2)=%d, want 2", n)
	}
	if r.Len() != 1 || r.At(0) != "e" {
		t.Fatalf("remaining=%v, want [e]", r.AppendOrdered(nil, r.Len()))
	}
	if n := r.Drain(5); n != 1 {
		t.Errorf("Drain(5) on one element=%d, want 1", n)
	}
	if _, ok := r.PopOldest(); ok {
		t.Error("PopOldest on empty ring succeeded")
	}

	// The ring must be usable after wrapping around and emptying.
	r.Push("x")
	r.Push("y")
	if got := r.AppendOrdered(nil, 2); !slices.Equal(got, []string{"x", "y"}) {
		t.Errorf("AppendOrdered=%v, want [x y]", got)
	}
}

func TestRingReset(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Reset()
	if !r.Empty() || r.Cap() != 2 {
		t.Fatalf("after Reset: Len=%d Cap=%d", r.Len(), r.Cap())
	}
}

func BenchmarkRingPush(b *testing.B) {
	r := NewRing[int64](1024)
	for i := 0; i < b.N; i++ {
		r.Push(int64(i))
	}
}
