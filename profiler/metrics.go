package profiler

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "spanprof"

type collector struct {
	c *Controller

	stateDesc           *prometheus.Desc
	generationDesc      *prometheus.Desc
	framesDesc          *prometheus.Desc
	regionsDesc         *prometheus.Desc
	threadsDesc         *prometheus.Desc
	entriesDesc         *prometheus.Desc
	fullTransitionsDesc *prometheus.Desc
	slotExhaustionsDesc *prometheus.Desc
	stackOverflowsDesc  *prometheus.Desc
}

// NewCollector returns a prometheus collector exposing the state of c. Values are read when scraped; recording
// is unaffected.
func NewCollector(c *Controller) prometheus.Collector {
	name := func(n string) string { return prometheus.BuildFQName(metricsNamespace, "", n) }
	return &collector{
		c: c,
		stateDesc: prometheus.NewDesc(name("state"),
			"Capture state, 1 for the current state.", []string{"state"}, nil),
		generationDesc: prometheus.NewDesc(name("generation"),
			"Capture session generation.", nil, nil),
		framesDesc: prometheus.NewDesc(name("frames"),
			"Frames started in the current session.", nil, nil),
		regionsDesc: prometheus.NewDesc(name("regions"),
			"Regions completed in the current session.", nil, nil),
		threadsDesc: prometheus.NewDesc(name("threads_in_use"),
			"Thread slots currently owned.", nil, nil),
		entriesDesc: prometheus.NewDesc(name("thread_entries"),
			"Entries recorded by an owned thread slot.", []string{"slot"}, nil),
		fullTransitionsDesc: prometheus.NewDesc(name("full_transitions_total"),
			"Times a capture stopped because a capacity was exhausted.", nil, nil),
		slotExhaustionsDesc: prometheus.NewDesc(name("slot_exhaustions_total"),
			"Threads that found no free slot.", nil, nil),
		stackOverflowsDesc: prometheus.NewDesc(name("stack_overflows_total"),
			"Pushes refused because the call stack was full.", nil, nil),
	}
}

func (col *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- col.stateDesc
	ch <- col.generationDesc
	ch <- col.framesDesc
	ch <- col.regionsDesc
	ch <- col.threadsDesc
	ch <- col.entriesDesc
	ch <- col.fullTransitionsDesc
	ch <- col.slotExhaustionsDesc
	ch <- col.stackOverflowsDesc
}

func (col *collector) Collect(ch chan<- prometheus.Metric) {
	c := col.c
	cur := c.State()
	for _, s := range [...]State{Stopped, Capturing, Paused, Full} {
		var v float64
		if s == cur {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(col.stateDesc, prometheus.GaugeValue, v, s.String())
	}
	ch <- prometheus.MustNewConstMetric(col.generationDesc, prometheus.GaugeValue, float64(c.Generation()))
	ch <- prometheus.MustNewConstMetric(col.framesDesc, prometheus.GaugeValue, float64(c.registry.frameCount()))
	ch <- prometheus.MustNewConstMetric(col.regionsDesc, prometheus.GaugeValue, float64(c.regions.Load()))

	// Sending blocks on the scraper, so the slots are copied out of the registry first.
	owned := c.registry.owned(nil)
	for _, o := range owned {
		ch <- prometheus.MustNewConstMetric(col.entriesDesc, prometheus.GaugeValue, float64(o.entries), strconv.Itoa(o.slot))
	}
	ch <- prometheus.MustNewConstMetric(col.threadsDesc, prometheus.GaugeValue, float64(len(owned)))

	ch <- prometheus.MustNewConstMetric(col.fullTransitionsDesc, prometheus.CounterValue, float64(c.fullTransitions.Load()))
	ch <- prometheus.MustNewConstMetric(col.slotExhaustionsDesc, prometheus.CounterValue, float64(c.slotExhaustions.Load()))
	ch <- prometheus.MustNewConstMetric(col.stackOverflowsDesc, prometheus.CounterValue, float64(c.stackOverflows.Load()))
}
