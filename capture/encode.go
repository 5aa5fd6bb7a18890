package capture

import (
	"encoding/binary"
	"io"

	"honnef.co/go/spanprof/profiler"
)

var byteOrder = binary.NativeEndian

type encoder struct {
	d   *profiler.Data
	buf []byte
}

func (e *encoder) bool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) u32(v uint32) { e.buf = byteOrder.AppendUint32(e.buf, v) }
func (e *encoder) i32(v int32)  { e.u32(uint32(v)) }
func (e *encoder) i64(v int64)  { e.buf = byteOrder.AppendUint64(e.buf, uint64(v)) }
func (e *encoder) length(n int) { e.u32(uint32(n)) }

func (e *encoder) str(s string) {
	e.length(len(s))
	e.buf = append(e.buf, s...)
}

func (e *encoder) label(l profiler.Label) { e.str(e.d.Label(l)) }

func (e *encoder) entry(en *profiler.Entry) {
	e.label(en.Section)
	e.label(en.File)
	e.i32(en.Line)
	e.u32(uint32(en.Color))
	e.u32(en.Level)
	e.i64(int64(en.Start))
	e.i64(int64(en.End))
	e.u32(en.Parent)
}

func (e *encoder) thread(td *profiler.ThreadData) {
	e.bool(td.Initialized)
	e.u32(td.CallStackDepth)
	e.u32(td.MaxLevel)
	e.i64(int64(td.MinTime))
	e.i64(int64(td.MaxTime))
	e.u32(td.CurrentEntry)
	e.bool(td.Hidden)
	e.str(td.Name)

	entries := td.LiveEntries()
	e.length(len(entries))
	for i := range entries {
		e.entry(&entries[i])
	}
	stack := td.OpenStack()
	e.length(len(stack))
	for _, idx := range stack {
		e.u32(idx)
	}
}

func (e *encoder) region(r *profiler.Region) {
	e.str(r.Name)
	e.i64(int64(r.Start))
	e.i64(int64(r.End))
}

func (e *encoder) frame(f *profiler.Frame) {
	e.region(&f.Region)
	e.u32(f.FrameThreadCount)
	infos := f.LiveThreads()
	e.length(len(infos))
	for _, info := range infos {
		e.u32(info.ThreadIndex)
		e.u32(info.ActiveEntry)
	}
}

func (e *encoder) data() {
	d := e.d
	e.length(len(d.Threads))
	for i := range d.Threads {
		e.thread(&d.Threads[i])
	}
	frames := d.LiveFrames()
	e.length(len(frames))
	for i := range frames {
		e.frame(&frames[i])
	}
	regions := d.LiveRegions()
	e.length(len(regions))
	for i := range regions {
		e.region(&regions[i])
	}
	e.i64(d.MaxFrameTime)
	e.u32(d.CurrentFrame)
	e.u32(d.CurrentRegion)
	e.i64(d.RegionTimeLimit)
}

// Marshal encodes d. d must not be written to concurrently, which means its controller must not be capturing.
func Marshal(d *profiler.Data) []byte {
	return AppendMarshal(nil, d)
}

// AppendMarshal is like Marshal but appends to buf.
func AppendMarshal(buf []byte, d *profiler.Data) []byte {
	e := encoder{d: d, buf: buf}
	e.data()
	return e.buf
}

func Encode(w io.Writer, d *profiler.Data) error {
	_, err := w.Write(Marshal(d))
	return err
}
