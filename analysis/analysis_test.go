package analysis

import (
	"testing"
	"time"

	"golang.org/x/exp/slices"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
)

// testCapture returns a hand-built capture:
//
//	thread 0  A [0, 100]  B [10, 40]  B [50, 70]  C [200, open)
//	thread 1  B [20, 30] (hidden)
//	frames    [0, 60] [60, 150] [150, open)
//	region    [0, 250]
func testCapture() *profiler.Data {
	d := profiler.NewData(nil)
	l := d.Labels.Intern
	entry := func(section string, start, end clock.Timestamp, level, parent uint32) profiler.Entry {
		return profiler.Entry{
			Section: l(section),
			File:    l("x.go"),
			Line:    int32(len(section)),
			Start:   start,
			End:     end,
			Level:   level,
			Parent:  parent,
		}
	}
	d.Threads = make([]profiler.ThreadData, 3)
	t0 := &d.Threads[0]
	t0.Initialized = true
	t0.Name = "main"
	t0.Entries = []profiler.Entry{
		entry("A", 0, 100, 0, profiler.NoParent),
		entry("B", 10, 40, 1, 0),
		entry("B", 50, 70, 1, 0),
		entry("C", 200, clock.Open, 0, profiler.NoParent),
	}
	t0.CurrentEntry = 4
	t0.EntryStack = []uint32{3}
	t0.CallStackDepth = 1
	t0.MaxLevel = 2
	t0.MaxTime = 200

	t1 := &d.Threads[1]
	t1.Initialized = true
	t1.Hidden = true
	t1.Name = "worker"
	t1.Entries = []profiler.Entry{entry("B", 20, 30, 0, profiler.NoParent)}
	t1.CurrentEntry = 1
	t1.MaxLevel = 1
	t1.MaxTime = 30

	d.Frames = []profiler.Frame{
		{Region: profiler.Region{Name: "0.00ms", Start: 0, End: 60}, FrameThreadCount: 1,
			FrameThreads: []profiler.FrameThreadInfo{{ThreadIndex: 0, ActiveEntry: 0}}},
		{Region: profiler.Region{Name: "0.00ms", Start: 60, End: 150}, FrameThreadCount: 2,
			FrameThreads: []profiler.FrameThreadInfo{{ThreadIndex: 0, ActiveEntry: 2}, {ThreadIndex: 1, ActiveEntry: 0}}},
		{Region: profiler.Region{Start: 150, End: clock.Open}, FrameThreadCount: 3,
			FrameThreads: []profiler.FrameThreadInfo{{ThreadIndex: 0, ActiveEntry: 2}, {ThreadIndex: 1, ActiveEntry: 0}, {ThreadIndex: 2, ActiveEntry: 7}}},
	}
	d.CurrentFrame = 3
	d.Regions = []profiler.Region{{Name: "0.00ms", Start: 0, End: 250}}
	d.CurrentRegion = 1
	d.MaxFrameTime = 80
	d.RegionTimeLimit = 100
	return d
}

func TestEffectiveEnd(t *testing.T) {
	d := testCapture()
	end := CaptureEnd(d)
	if end != 250 {
		t.Fatalf("CaptureEnd = %d, want 250", end)
	}
	if got := EffectiveEnd(&d.Threads[0].Entries[0], end); got != 100 {
		t.Errorf("closed entry ends at %d", got)
	}
	if got := EffectiveEnd(&d.Threads[0].Entries[3], end); got != 250 {
		t.Errorf("open entry ends at %d, want 250", got)
	}
	late := profiler.Entry{Start: 300, End: clock.Open}
	if got := EffectiveEnd(&late, end); got != 300 {
		t.Errorf("open entry starting after capture end ends at %d", got)
	}
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics(testCapture())
	want := []SectionStats{
		{SectionKey: SectionKey{"A", "x.go", 1}, Count: 1, Min: 100, Max: 100, Total: 100, Self: 50, Average: 100, Median: 100},
		{SectionKey: SectionKey{"B", "x.go", 1}, Count: 3, Min: 10, Max: 30, Total: 60, Self: 60, Average: 20, Median: 20},
		{SectionKey: SectionKey{"C", "x.go", 1}, Count: 1, Min: 50, Max: 50, Total: 50, Self: 50, Average: 50, Median: 50, Open: 1},
	}
	if !slices.Equal(stats, want) {
		t.Fatalf("got\n%+v\nwant\n%+v", stats, want)
	}
}

func TestComputeStatisticsFiltered(t *testing.T) {
	stats := ComputeStatistics(testCapture(), 1)
	if len(stats) != 1 {
		t.Fatalf("got %d sections, want 1", len(stats))
	}
	if s := stats[0]; s.Section != "B" || s.Count != 1 || s.Total != 10*time.Nanosecond {
		t.Errorf("got %+v", s)
	}
	if stats := ComputeStatistics(testCapture(), 2); len(stats) != 0 {
		t.Errorf("empty thread produced %d sections", len(stats))
	}
}

func TestMedianEven(t *testing.T) {
	d := testCapture()
	d.Threads[1].Entries[0].End = 60
	for _, s := range ComputeStatistics(d) {
		if s.Section == "B" {
			// durations 20, 30, 40
			if s.Median != 30 {
				t.Errorf("median = %v, want 30", s.Median)
			}
		}
	}
	stats := ComputeStatistics(d, 0)
	for _, s := range stats {
		if s.Section == "B" && s.Median != 25 {
			t.Errorf("median of 20 and 30 = %v, want 25", s.Median)
		}
	}
}

func TestIndex(t *testing.T) {
	idx := NewIndex(testCapture())
	tests := []struct {
		thread     int
		start, end clock.Timestamp
		want       []uint32
	}{
		{0, 45, 55, []uint32{0, 2}},
		{0, 0, 1000, []uint32{0, 1, 2, 3}},
		{0, 240, 300, []uint32{3}},
		{0, 110, 190, nil},
		{1, 0, 25, []uint32{0}},
		{2, 0, 1000, nil},
		{5, 0, 1000, nil},
		{0, 60, 50, nil},
	}
	for _, tt := range tests {
		if got := idx.Overlapping(tt.thread, tt.start, tt.end); !slices.Equal(got, tt.want) {
			t.Errorf("Overlapping(%d, %d, %d) = %v, want %v", tt.thread, tt.start, tt.end, got, tt.want)
		}
	}
	if got := idx.At(0, 20); !slices.Equal(got, []uint32{0, 1}) {
		t.Errorf("At(0, 20) = %v", got)
	}
	if idx.CaptureEnd() != 250 {
		t.Errorf("CaptureEnd() = %d", idx.CaptureEnd())
	}
}

func TestIndexDuplicateIntervals(t *testing.T) {
	d := testCapture()
	d.Threads[0].Entries[2].Start = 10
	d.Threads[0].Entries[2].End = 40
	idx := NewIndex(d)
	if got := idx.Overlapping(0, 15, 15); !slices.Equal(got, []uint32{0, 1, 2}) {
		t.Errorf("Overlapping = %v, want [0 1 2]", got)
	}
}

func TestFrameActivity(t *testing.T) {
	d := testCapture()
	tests := []struct {
		frame int
		want  []ThreadActivity
	}{
		{0, []ThreadActivity{{Thread: 0, Stack: []uint32{0}}}},
		{1, []ThreadActivity{{Thread: 0, Stack: []uint32{0, 2}}, {Thread: 1}}},
		{2, []ThreadActivity{{Thread: 0}, {Thread: 1}}},
		{3, nil},
	}
	for _, tt := range tests {
		got := FrameActivity(d, tt.frame)
		if len(got) != len(tt.want) {
			t.Errorf("frame %d: got %+v, want %+v", tt.frame, got, tt.want)
			continue
		}
		for i := range got {
			if got[i].Thread != tt.want[i].Thread || !slices.Equal(got[i].Stack, tt.want[i].Stack) {
				t.Errorf("frame %d thread %d: got %+v, want %+v", tt.frame, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFrames(t *testing.T) {
	frames := Frames(testCapture())
	if len(frames) != 3 {
		t.Fatalf("got %d frames", len(frames))
	}
	durations := []time.Duration{60, 90, 100}
	budget := []bool{false, true, true}
	for i, f := range frames {
		if f.Duration != durations[i] || f.OverBudget != budget[i] {
			t.Errorf("frame %d: duration %d, over budget %t", i, f.Duration, f.OverBudget)
		}
	}
	if !frames[2].Open || frames[1].Open {
		t.Error("wrong frames reported as open")
	}
	if frames[1].Threads != 2 {
		t.Errorf("frame 1 has %d threads", frames[1].Threads)
	}
}

func TestRegionsOverLimit(t *testing.T) {
	d := testCapture()
	if got := RegionsOverLimit(d); !slices.Equal(got, []int{0}) {
		t.Errorf("RegionsOverLimit = %v", got)
	}
	d.RegionTimeLimit = 0
	if got := RegionsOverLimit(d); got != nil {
		t.Errorf("RegionsOverLimit without a limit = %v", got)
	}
}

func TestThreadSummaries(t *testing.T) {
	got := ThreadSummaries(testCapture())
	want := []ThreadSummary{
		{Slot: 0, Name: "main", Entries: 4, Open: 1, MaxLevel: 2, Start: 0, End: 250, Busy: 150},
		{Slot: 1, Name: "worker", Hidden: true, Entries: 1, MaxLevel: 1, Start: 20, End: 30, Busy: 10},
	}
	if !slices.Equal(got, want) {
		t.Errorf("got\n%+v\nwant\n%+v", got, want)
	}
}

func TestRecordedCapture(t *testing.T) {
	c := profiler.New(profiler.Options{})
	if err := c.Init(profiler.Settings{MaxThreads: 2, MaxCallStack: 4, MaxEntriesPerThread: 16, MaxFrames: 4, MaxRegions: 1}); err != nil {
		t.Fatal(err)
	}
	main := c.Main()
	c.NewFrame()
	main.PushSection("outer", 0, "y.go", 1)
	main.PushSection("inner", 0, "y.go", 2)
	c.NewFrame()
	main.Pop()
	c.RequestPause(true)
	d, _ := c.Data()

	act := FrameActivity(d, 1)
	if len(act) != 1 || act[0].Thread != 0 || len(act[0].Stack) > 2 {
		t.Fatalf("FrameActivity = %+v", act)
	}
	for i, idx := range act[0].Stack {
		if idx != uint32(i) {
			t.Errorf("stack = %v", act[0].Stack)
		}
	}
	stats := ComputeStatistics(d)
	if len(stats) != 2 {
		t.Fatalf("got %d sections", len(stats))
	}
	for _, s := range stats {
		if s.Section == "outer" && s.Open != 1 {
			t.Errorf("outer has %d open occurrences", s.Open)
		}
	}
}

func TestSelfTimes(t *testing.T) {
	d := testCapture()
	buf := make([]time.Duration, 10)
	got := SelfTimes(d, 0, CaptureEnd(d), buf)
	if want := []time.Duration{50, 30, 20, 50}; !slices.Equal(got, want) {
		t.Errorf("SelfTimes = %v, want %v", got, want)
	}
	if got := SelfTimes(d, 2, CaptureEnd(d), got); len(got) != 0 {
		t.Errorf("empty thread has %d self times", len(got))
	}
}
