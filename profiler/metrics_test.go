package profiler

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, c *Controller) map[string][]*dto.Metric {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewCollector(c))
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	out := map[string][]*dto.Metric{}
	for _, mf := range mfs {
		out[mf.GetName()] = mf.GetMetric()
	}
	return out
}

func TestCollector(t *testing.T) {
	s := scenarioSettings()
	s.MaxThreads = 1
	c, _ := newController(t, s)
	main := c.Main()
	c.NewFrame()
	main.PushSection("a", 0, "x.go", 1)
	main.Pop()
	c.NewThread().PushSection("b", 0, "x.go", 2)
	c.BeginRegion()
	c.EndRegion()

	m := gather(t, c)
	gauge := func(name string) float64 {
		t.Helper()
		ms := m[name]
		if len(ms) != 1 {
			t.Fatalf("%s has %d series", name, len(ms))
		}
		if ms[0].Counter != nil {
			return ms[0].GetCounter().GetValue()
		}
		return ms[0].GetGauge().GetValue()
	}
	if got := gauge("spanprof_frames"); got != 1 {
		t.Errorf("frames = %v", got)
	}
	if got := gauge("spanprof_regions"); got != 1 {
		t.Errorf("regions = %v", got)
	}
	if got := gauge("spanprof_threads_in_use"); got != 1 {
		t.Errorf("threads_in_use = %v", got)
	}
	if got := gauge("spanprof_thread_entries"); got != 1 {
		t.Errorf("thread_entries = %v", got)
	}
	if got := gauge("spanprof_slot_exhaustions_total"); got != 1 {
		t.Errorf("slot_exhaustions_total = %v", got)
	}
	if got := gauge("spanprof_generation"); got != float64(c.Generation()) {
		t.Errorf("generation = %v", got)
	}

	var capturing float64
	for _, sm := range m["spanprof_state"] {
		for _, lp := range sm.GetLabel() {
			if lp.GetValue() == "capturing" {
				capturing = sm.GetGauge().GetValue()
			}
		}
	}
	if capturing != 1 {
		t.Error("state gauge doesn't report capturing")
	}
}

func TestCollectReleasesRegistryWhileSending(t *testing.T) {
	c, _ := newController(t, scenarioSettings())
	c.Main().PushSection("a", 0, "x.go", 1)
	c.NewThread().PushSection("b", 0, "x.go", 2)

	ch := make(chan prometheus.Metric)
	collected := make(chan struct{})
	go func() {
		NewCollector(c).Collect(ch)
		close(collected)
	}()
	// Stop reading after the first per-slot series; the collector is now blocked sending the second one.
	for m := range ch {
		if strings.Contains(m.Desc().String(), "spanprof_thread_entries") {
			break
		}
	}

	acquired := make(chan int)
	go func() {
		th := c.NewThread()
		th.PushSection("c", 0, "x.go", 3)
		acquired <- th.Slot()
	}()
	select {
	case slot := <-acquired:
		if slot < 0 {
			t.Errorf("new thread didn't get a slot")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("acquiring a slot blocked on a pending scrape")
	}

	go func() {
		for range ch {
		}
	}()
	<-collected
	close(ch)
}
