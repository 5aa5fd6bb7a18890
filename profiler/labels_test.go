package profiler

import (
	"fmt"
	"sync"
	"testing"
)

func TestLabelTable(t *testing.T) {
	lt := NewLabelTable()
	if l, ok := lt.Lookup(""); !ok || l != 0 {
		t.Fatalf("empty string = (%d, %t), want (0, true)", l, ok)
	}
	a := lt.Intern("a")
	b := lt.Intern("b")
	if a == b || a == 0 || b == 0 {
		t.Fatalf("got labels %d and %d", a, b)
	}
	if lt.Intern("a") != a {
		t.Error("interning twice returned a new label")
	}
	if lt.Name(b) != "b" {
		t.Errorf("Name(%d) = %q", b, lt.Name(b))
	}
	if lt.Name(Label(1000)) != "" {
		t.Error("unknown label has a name")
	}
	if _, ok := lt.Lookup("c"); ok {
		t.Error("Lookup interned a string")
	}
	if lt.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lt.Len())
	}
}

func TestLabelTableConcurrent(t *testing.T) {
	lt := NewLabelTable()
	const goroutines, names = 8, 200
	results := make([][]Label, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			out := make([]Label, names)
			for i := range out {
				out[i] = lt.Intern(fmt.Sprintf("name%d", i))
			}
			results[g] = out
		}(g)
	}
	wg.Wait()

	for g := 1; g < goroutines; g++ {
		for i := range results[g] {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d got label %d for name%d, goroutine 0 got %d", g, results[g][i], i, results[0][i])
			}
		}
	}
	if lt.Len() != names+1 {
		t.Errorf("Len() = %d, want %d", lt.Len(), names+1)
	}
	for i, l := range results[0] {
		if want := fmt.Sprintf("name%d", i); lt.Name(l) != want {
			t.Errorf("Name(%d) = %q, want %q", l, lt.Name(l), want)
		}
	}
}

func TestLabelTableInternAll(t *testing.T) {
	lt := NewLabelTable()
	x := lt.Intern("x")
	got := lt.InternAll([]string{"a", "x", "", "b", "a"})
	if got[1] != x || got[2] != 0 || got[0] != got[4] || got[0] == got[3] {
		t.Fatalf("InternAll = %v", got)
	}
	for i, s := range []string{"a", "x", "", "b", "a"} {
		if lt.Name(got[i]) != s {
			t.Errorf("Name(%d) = %q, want %q", got[i], lt.Name(got[i]), s)
		}
	}
	if lt.Len() != 4 {
		t.Errorf("Len() = %d, want 4", lt.Len())
	}
}

func TestLabelTablePromotesNewLabels(t *testing.T) {
	lt := NewLabelTable()
	const n = 50_000
	labels := make([]Label, n)
	for i := range labels {
		labels[i] = lt.Intern(fmt.Sprintf("section %d", i))
	}
	// Most labels must have reached the lock-free index; the rest are still found through the dirty one.
	if r := len(*lt.read.Load()); r < n/2 {
		t.Errorf("read-only index holds %d of %d labels", r, n)
	}
	for i, l := range labels {
		if got, ok := lt.Lookup(fmt.Sprintf("section %d", i)); !ok || got != l {
			t.Fatalf("Lookup(section %d) = (%d, %t), want (%d, true)", i, got, ok, l)
		}
	}
	if lt.Len() != n+1 {
		t.Errorf("Len() = %d, want %d", lt.Len(), n+1)
	}
}

func BenchmarkLabelTableInternNew(b *testing.B) {
	names := make([]string, b.N)
	for i := range names {
		names[i] = fmt.Sprintf("section %d", i)
	}
	lt := NewLabelTable()
	b.ResetTimer()
	for _, s := range names {
		lt.Intern(s)
	}
}
