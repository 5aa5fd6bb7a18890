package clock

import (
	"testing"
	"time"
)

func TestTimerMonotonic(t *testing.T) {
	var tm Timer
	tm.Start()
	prev := tm.Now()
	if prev < 0 {
		t.Fatalf("Now()=%d immediately after Start, want >= 0", prev)
	}
	for i := 0; i < 1000; i++ {
		now := tm.Now()
		if now < prev {
			t.Fatalf("timestamps went backwards: %d after %d", now, prev)
		}
		prev = now
	}
}

func TestTimerRestart(t *testing.T) {
	var tm Timer
	tm.Start()
	time.Sleep(5 * time.Millisecond)
	before := tm.Now()
	tm.Start()
	if after := tm.Now(); after >= before {
		t.Errorf("Now()=%d after restart, want less than %d", after, before)
	}
}

func TestFormatMilliseconds(t *testing.T) {
	tests := []struct {
		start, end Timestamp
		want       string
	}{
		{0, 0, "0.00ms"},
		{0, Timestamp(16666667), "16.67ms"},
		{Timestamp(time.Second), Timestamp(time.Second + 1500*time.Microsecond), "1.50ms"},
	}
	for _, tt := range tests {
		if got := FormatMilliseconds(tt.start, tt.end); got != tt.want {
			t.Errorf("FormatMilliseconds(%d, %d)=%q, want %q", tt.start, tt.end, got, tt.want)
		}
	}
}
