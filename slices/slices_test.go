package slices

import "testing"

func TestReverse(t *testing.T) {
	if got := Reverse([]int(nil)); len(got) != 0 {
		t.Errorf("Reverse(nil)=%v", got)
	}
	got := Reverse([]string{"a", "b", "c", "d"})
	want := []string{"d", "c", "b", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Reverse=%v, want %v", got, want)
		}
	}
}
