package export

import (
	"bytes"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/pprof/profile"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
)

// testCapture returns thread 0 with A [0, 100] containing B [10, 40] and B [50, 70], followed by an open C at 200,
// a hidden thread 1 with B [20, 30], two frames and one region ending at 250.
func testCapture() *profiler.Data {
	d := profiler.NewData(nil)
	l := d.Labels.Intern
	entry := func(section string, start, end clock.Timestamp, level, parent uint32) profiler.Entry {
		return profiler.Entry{Section: l(section), File: l("x.go"), Line: 7, Color: 0xFF0000FF, Start: start, End: end, Level: level, Parent: parent}
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
	t0.MaxTime = 200
	t1 := &d.Threads[1]
	t1.Initialized = true
	t1.Hidden = true
	t1.Name = "worker"
	t1.Entries = []profiler.Entry{entry("B", 20, 30, 0, profiler.NoParent)}
	t1.CurrentEntry = 1
	t1.MaxTime = 30

	d.Frames = []profiler.Frame{
		{Region: profiler.Region{Name: "0.06ms", Start: 0, End: 60}},
		{Region: profiler.Region{Start: 60, End: clock.Open}},
	}
	d.CurrentFrame = 2
	d.Regions = []profiler.Region{{Name: "0.25ms", Start: 0, End: 250}}
	d.CurrentRegion = 1
	return d
}

func decodeTrace(t *testing.T, b []byte) traceFile {
	t.Helper()
	var tf traceFile
	if err := json.Unmarshal(b, &tf); err != nil {
		t.Fatalf("output isn't valid JSON: %s", err)
	}
	return tf
}

func TestChromeTrace(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChromeTrace(&buf, testCapture(), ChromeOptions{ProcessName: "test"}); err != nil {
		t.Fatal(err)
	}
	tf := decodeTrace(t, buf.Bytes())

	counts := map[string]int{}
	var sections []traceEvent
	for _, ev := range tf.TraceEvents {
		counts[ev.Phase+" "+ev.Category]++
		if ev.Category == "section" {
			sections = append(sections, ev)
		}
		if ev.TID == 1 && ev.Phase != phaseInstant {
			t.Errorf("hidden thread was exported: %+v", ev)
		}
	}
	want := map[string]int{
		"M ":        3, // process name, thread 0, regions
		"X section": 4,
		"i frame":   2,
		"X region":  1,
	}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("got %d %q events, want %d", counts[k], k, n)
		}
	}

	if len(sections) != 4 {
		t.Fatalf("got %d sections", len(sections))
	}
	if a := sections[0]; a.Name != "A" || a.TS != 0 || a.Dur != 0.1 {
		t.Errorf("A = %+v", a)
	}
	c := sections[3]
	if c.Name != "C" || c.Dur != 0.05 || c.Args["open"] != true {
		t.Errorf("open entry C = %+v", c)
	}
	if sections[1].Args["color"] != "#ff0000" {
		t.Errorf("color = %v", sections[1].Args["color"])
	}
}

func TestChromeTraceHidden(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChromeTrace(&buf, testCapture(), ChromeOptions{IncludeHidden: true, Indent: true}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n\t")) {
		t.Error("output isn't indented")
	}
	var worker int
	for _, ev := range decodeTrace(t, buf.Bytes()).TraceEvents {
		if ev.TID == 1 && ev.Phase != phaseInstant {
			worker++
		}
	}
	if worker != 2 {
		t.Errorf("got %d events for the hidden thread, want 2", worker)
	}
}

func sampleKey(s *profile.Sample) string {
	var key string
	for _, loc := range s.Location {
		key += loc.Line[0].Function.Name + ";"
	}
	return s.Label["thread"][0] + ":" + key
}

func TestPprof(t *testing.T) {
	p, err := BuildPprof(testCapture())
	if err != nil {
		t.Fatal(err)
	}
	got := map[string][2]int64{}
	for _, s := range p.Sample {
		got[sampleKey(s)] = [2]int64{s.Value[0], s.Value[1]}
	}
	want := map[string][2]int64{
		"main:A;":   {1, 50},
		"main:B;A;": {2, 50},
		"main:C;":   {1, 50},
		"worker:B;": {1, 10},
	}
	if len(got) != len(want) {
		t.Fatalf("got samples %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("sample %s = %v, want %v", k, got[k], v)
		}
	}
	if len(p.Function) != 3 {
		t.Errorf("got %d functions, want 3", len(p.Function))
	}
	if p.Function[0].Filename != "x.go" {
		t.Errorf("function file = %q", p.Function[0].Filename)
	}
}

func TestWritePprof(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePprof(&buf, testCapture()); err != nil {
		t.Fatal(err)
	}
	p, err := profile.Parse(&buf)
	if err != nil {
		t.Fatalf("couldn't parse written profile: %s", err)
	}
	if len(p.Sample) != 4 {
		t.Errorf("got %d samples, want 4", len(p.Sample))
	}
	if p.DurationNanos != 250 {
		t.Errorf("DurationNanos = %d", p.DurationNanos)
	}
}

func TestPprofEmpty(t *testing.T) {
	p, err := BuildPprof(profiler.NewData(nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Sample) != 0 {
		t.Errorf("got %d samples", len(p.Sample))
	}
}
