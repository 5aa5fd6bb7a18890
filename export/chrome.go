package export

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"honnef.co/go/spanprof/analysis"
	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/profiler"
)

// Event phases of the Trace Event Format.
const (
	phaseComplete = "X"
	phaseInstant  = "i"
	phaseMetadata = "M"
)

const pid = 1

type traceFile struct {
	TraceEvents     []traceEvent   `json:"traceEvents"`
	DisplayTimeUnit string         `json:"displayTimeUnit"`
	OtherData       map[string]any `json:"otherData,omitempty"`
}

type traceEvent struct {
	Name     string `json:"name"`
	Category string `json:"cat,omitempty"`
	Phase    string `json:"ph"`
	// Timestamps and durations are in microseconds.
	TS    float64        `json:"ts"`
	Dur   float64        `json:"dur,omitzero"`
	PID   int            `json:"pid"`
	TID   int            `json:"tid"`
	Scope string         `json:"s,omitempty"`
	Args  map[string]any `json:"args,omitempty"`
}

type ChromeOptions struct {
	// IncludeHidden exports threads that were hidden with Thread.Hide.
	IncludeHidden bool
	// ProcessName is shown as the name of the single exported process.
	ProcessName string
	Indent      bool
}

func micros(ts clock.Timestamp) float64 { return float64(ts) / 1e3 }

// WriteChromeTrace writes d as a Trace Event Format JSON object. Every entry becomes a complete event on its
// thread, frames become global instant events, and regions are complete events on an extra thread named
// "Regions". Open entries end at the end of the capture and carry an "open" argument.
func WriteChromeTrace(w io.Writer, d *profiler.Data, opts ChromeOptions) error {
	end := analysis.CaptureEnd(d)
	tf := traceFile{
		DisplayTimeUnit: "ns",
		OtherData: map[string]any{
			"maxFrameTime":    d.MaxFrameTime,
			"regionTimeLimit": d.RegionTimeLimit,
		},
	}
	if opts.ProcessName != "" {
		tf.TraceEvents = append(tf.TraceEvents, traceEvent{
			Name:  "process_name",
			Phase: phaseMetadata,
			PID:   pid,
			Args:  map[string]any{"name": opts.ProcessName},
		})
	}

	for slot := range d.Threads {
		td := &d.Threads[slot]
		entries := td.LiveEntries()
		if len(entries) == 0 || (td.Hidden && !opts.IncludeHidden) {
			continue
		}
		tf.TraceEvents = append(tf.TraceEvents, traceEvent{
			Name:  "thread_name",
			Phase: phaseMetadata,
			PID:   pid,
			TID:   slot,
			Args:  map[string]any{"name": td.Name},
		})
		for i := range entries {
			e := &entries[i]
			args := map[string]any{
				"file":  d.FileName(e),
				"line":  e.Line,
				"color": e.Color.Hex(),
			}
			if e.IsOpen() {
				args["open"] = true
			}
			tf.TraceEvents = append(tf.TraceEvents, traceEvent{
				Name:     d.SectionName(e),
				Category: "section",
				Phase:    phaseComplete,
				TS:       micros(e.Start),
				Dur:      micros(analysis.EffectiveEnd(e, end) - e.Start),
				PID:      pid,
				TID:      slot,
				Args:     args,
			})
		}
	}

	for i, f := range d.LiveFrames() {
		name := f.Name
		if name == "" {
			name = "frame"
		}
		tf.TraceEvents = append(tf.TraceEvents, traceEvent{
			Name:     name,
			Category: "frame",
			Phase:    phaseInstant,
			TS:       micros(f.Start),
			PID:      pid,
			Scope:    "g",
			Args:     map[string]any{"index": i, "threads": f.FrameThreadCount},
		})
	}

	if regions := d.LiveRegions(); len(regions) > 0 {
		tid := len(d.Threads)
		tf.TraceEvents = append(tf.TraceEvents, traceEvent{
			Name:  "thread_name",
			Phase: phaseMetadata,
			PID:   pid,
			TID:   tid,
			Args:  map[string]any{"name": "Regions"},
		})
		for _, r := range regions {
			tf.TraceEvents = append(tf.TraceEvents, traceEvent{
				Name:     r.Name,
				Category: "region",
				Phase:    phaseComplete,
				TS:       micros(r.Start),
				Dur:      micros(r.End - r.Start),
				PID:      pid,
				TID:      tid,
			})
		}
	}

	var jopts []json.Options
	if opts.Indent {
		jopts = append(jopts, jsontext.WithIndent("\t"))
	}
	return json.MarshalWrite(w, &tf, jopts...)
}
