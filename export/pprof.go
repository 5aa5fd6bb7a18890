package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"

	"honnef.co/go/spanprof/analysis"
	"honnef.co/go/spanprof/profiler"
)

type funcKey struct {
	section profiler.Label
	file    profiler.Label
}

type locKey struct {
	funcKey
	line int32
}

type pprofBuilder struct {
	d         *profiler.Data
	p         *profile.Profile
	functions map[funcKey]*profile.Function
	locations map[locKey]*profile.Location
	samples   map[string]*profile.Sample
	key       strings.Builder
}

func (b *pprofBuilder) location(e *profiler.Entry) *profile.Location {
	lk := locKey{funcKey{e.Section, e.File}, e.Line}
	if loc, ok := b.locations[lk]; ok {
		return loc
	}
	fn, ok := b.functions[lk.funcKey]
	if !ok {
		fn = &profile.Function{
			ID:         uint64(len(b.p.Function) + 1),
			Name:       b.d.SectionName(e),
			SystemName: b.d.SectionName(e),
			Filename:   b.d.FileName(e),
		}
		b.functions[lk.funcKey] = fn
		b.p.Function = append(b.p.Function, fn)
	}
	loc := &profile.Location{
		ID:   uint64(len(b.p.Location) + 1),
		Line: []profile.Line{{Function: fn, Line: int64(e.Line)}},
	}
	b.locations[lk] = loc
	b.p.Location = append(b.p.Location, loc)
	return loc
}

// BuildPprof aggregates the entries of d into a profile with one sample per distinct call stack and thread. Each
// sample counts the occurrences of its innermost section and their self time, so that the flat and cumulative
// views of pprof show self and total time per section. Hidden threads are included and labeled as such.
func BuildPprof(d *profiler.Data) (*profile.Profile, error) {
	end := analysis.CaptureEnd(d)
	b := &pprofBuilder{
		d: d,
		p: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "sections", Unit: "count"},
				{Type: "time", Unit: "nanoseconds"},
			},
			DefaultSampleType: "time",
			DurationNanos:     int64(end),
			PeriodType:        &profile.ValueType{Type: "time", Unit: "nanoseconds"},
			Period:            1,
		},
		functions: map[funcKey]*profile.Function{},
		locations: map[locKey]*profile.Location{},
		samples:   map[string]*profile.Sample{},
	}

	var self []time.Duration
	var stack []*profile.Location
	for slot := range d.Threads {
		td := &d.Threads[slot]
		entries := td.LiveEntries()
		if len(entries) == 0 {
			continue
		}
		self = analysis.SelfTimes(d, slot, end, self)
		for i := range entries {
			stack = stack[:0]
			b.key.Reset()
			b.key.WriteString(strconv.Itoa(slot))
			// Walk to the root; pprof wants the innermost location first.
			for idx := uint32(i); ; {
				e := &entries[idx]
				loc := b.location(e)
				stack = append(stack, loc)
				b.key.WriteByte(';')
				b.key.WriteString(strconv.FormatUint(loc.ID, 10))
				p, ok := e.ParentIndex().Get()
				if !ok || p >= idx {
					break
				}
				idx = p
			}

			s, ok := b.samples[b.key.String()]
			if !ok {
				s = &profile.Sample{
					Location: append([]*profile.Location(nil), stack...),
					Value:    make([]int64, 2),
					Label:    map[string][]string{"thread": {td.Name}},
					NumLabel: map[string][]int64{"slot": {int64(slot)}},
				}
				if td.Hidden {
					s.Label["hidden"] = []string{"true"}
				}
				b.samples[b.key.String()] = s
				b.p.Sample = append(b.p.Sample, s)
			}
			s.Value[0]++
			s.Value[1] += int64(self[i])
		}
	}

	if err := b.p.CheckValid(); err != nil {
		return nil, fmt.Errorf("built invalid profile: %w", err)
	}
	return b.p, nil
}

// WritePprof writes d as a gzipped pprof profile.
func WritePprof(w io.Writer, d *profiler.Data) error {
	p, err := BuildPprof(d)
	if err != nil {
		return err
	}
	return p.Write(w)
}
