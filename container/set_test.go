package container

import (
	"testing"

	"golang.org/x/exp/slices"
)

func TestSetSorted(t *testing.T) {
	set := NewSet(3, 1, 2, 1)
	if !set.Has(1) || set.Has(9) {
		t.Fatal("Has returned wrong membership")
	}
	if got := Sorted(set); !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("Sorted=%v, want [1 2 3]", got)
	}
}
