package profiler

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"honnef.co/go/spanprof/clock"
	"honnef.co/go/spanprof/color"
	"honnef.co/go/spanprof/container"
	"honnef.co/go/spanprof/mysync"
)

type State uint32

const (
	// Stopped is the initial state, and the state after Finish. Nothing is recorded.
	Stopped State = iota
	// Capturing accepts writes.
	Capturing
	// Paused drops writes; the capture is stable and can be read.
	Paused
	// Full is like Paused, but was entered because a capacity was exhausted. Only Reset leaves it.
	Full
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Capturing:
		return "capturing"
	case Paused:
		return "paused"
	case Full:
		return "full"
	default:
		return "State(?)"
	}
}

var ErrNoCapture = errors.New("no capture loaded")

const defaultEventLogSize = 64

type Options struct {
	// Logger receives lifecycle messages. Nothing is logged on the Push/Pop path. Defaults to a logger at warning
	// level.
	Logger *logrus.Logger
	// EventLogSize is the number of lifecycle events kept for Events.
	EventLogSize int
}

// Event is a state transition of the controller.
type Event struct {
	When       time.Time
	Generation uint64
	State      State
	Reason     string
}

// Stats are counters accumulated over the controller's lifetime.
type Stats struct {
	State           State
	Generation      uint64
	ActiveThreads   int
	FullTransitions uint64
	SlotExhaustions uint64
	StackOverflows  uint64
}

// Controller owns the capture state machine and the live Data of the current session.
type Controller struct {
	logger   *logrus.Logger
	labels   *LabelTable
	registry *registry
	events   *mysync.Mutex[*container.Ring[Event]]
	main     *Thread

	// settings is only accessed by the coordinating goroutine.
	settings Settings

	state          atomic.Uint32
	gen            atomic.Uint64
	restarting     atomic.Bool
	pauseRequested atomic.Bool
	data           atomic.Pointer[Data]
	regions        atomic.Uint32

	fullTransitions atomic.Uint64
	slotExhaustions atomic.Uint64
	stackOverflows  atomic.Uint64
}

func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	size := opts.EventLogSize
	if size <= 0 {
		size = defaultEventLogSize
	}
	c := &Controller{
		logger:   logger,
		labels:   NewLabelTable(),
		registry: newRegistry(),
		events:   mysync.NewMutex(container.NewRing[Event](size)),
	}
	c.main = &Thread{c: c, slot: -1}
	return c
}

// Labels returns the table that section and file names are interned in. It outlives individual sessions.
func (c *Controller) Labels() *LabelTable { return c.labels }

// Site interns a call site, choosing its color from the section name.
func (c *Controller) Site(section, file string, line int) Site {
	return c.SiteColor(section, color.FromName(section), file, line)
}

func (c *Controller) SiteColor(section string, col color.Packed, file string, line int) Site {
	return Site{
		Section: c.labels.Intern(section),
		File:    c.labels.Intern(file),
		Line:    int32(line),
		Color:   col,
	}
}

// Main returns the coordinating goroutine's thread handle, which owns slot 0 of every session.
func (c *Controller) Main() *Thread { return c.main }

// NewThread returns a handle for a goroutine that will record sections. The slot is acquired on first use.
func (c *Controller) NewThread() *Thread {
	return &Thread{c: c, slot: -1}
}

func (c *Controller) State() State       { return State(c.state.Load()) }
func (c *Controller) Generation() uint64 { return c.gen.Load() }
func (c *Controller) Settings() Settings { return c.settings }

// PauseRequested reports the most recent RequestPause argument, or true after the capture filled up.
func (c *Controller) PauseRequested() bool { return c.pauseRequested.Load() }

// Init validates s and starts a new capture session with it.
func (c *Controller) Init(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.settings = s
	c.start("init")
	return nil
}

// Reset discards the current session and starts a new one with the same settings. The previous Data is left
// untouched and may still be read by whoever holds it.
func (c *Controller) Reset() {
	if c.settings == (Settings{}) {
		c.settings = DefaultSettings()
	}
	c.start("reset")
}

func (c *Controller) start(reason string) {
	d := allocateData(c.settings, c.labels)
	d.timer.Start()
	c.registry.install(d)
	c.restarting.Store(true)
	c.regions.Store(0)
	c.data.Store(d)
	// Bumping the generation after publishing d guarantees that a thread observing the new generation also
	// observes the new Data.
	gen := c.gen.Add(1)
	c.main.bind(gen, d, 0)
	c.pauseRequested.Store(false)
	c.state.Store(uint32(Capturing))

	c.logger.WithFields(logrus.Fields{
		"generation":     gen,
		"threads":        c.settings.MaxThreads,
		"entries":        c.settings.MaxEntriesPerThread,
		"frames":         c.settings.MaxFrames,
		"regions":        c.settings.MaxRegions,
		"max_call_stack": c.settings.MaxCallStack,
	}).Debug("capture started")
	c.record(Capturing, reason)
}

// RequestPause records whether capture should be paused. Pausing takes effect immediately. Unpausing only
// records the request: the caller is expected to Reset, so that stacks left open before the pause can't leak
// into the new session.
func (c *Controller) RequestPause(pause bool) {
	c.pauseRequested.Store(pause)
	if pause && c.state.CompareAndSwap(uint32(Capturing), uint32(Paused)) {
		c.record(Paused, "pause requested")
	}
}

// markFull stops capture because a capacity was exhausted. It may be called from any goroutine.
func (c *Controller) markFull(reason string) {
	if !c.state.CompareAndSwap(uint32(Capturing), uint32(Full)) {
		return
	}
	c.pauseRequested.Store(true)
	c.fullTransitions.Add(1)
	c.logger.WithFields(logrus.Fields{
		"generation": c.gen.Load(),
		"reason":     reason,
	}).Warn("capture is full, profiling stopped")
	c.record(Full, reason)
}

// Finish releases all thread slots and stops capturing until the next Init. The last capture stays readable.
func (c *Controller) Finish() {
	c.state.Store(uint32(Stopped))
	c.registry.releaseAll()
	c.gen.Add(1)
	c.main.slot = -1
	c.main.td = nil
	c.logger.Debug("profiler finished")
	c.record(Stopped, "finish")
}

// Load installs a previously saved capture for inspection and pauses the controller. Writes are dropped until
// the next Reset, which discards d.
func (c *Controller) Load(d *Data) error {
	if d == nil {
		return ErrNoCapture
	}
	c.state.Store(uint32(Paused))
	c.pauseRequested.Store(true)
	c.registry.install(nil)
	c.data.Store(d)
	c.regions.Store(d.CurrentRegion)
	c.gen.Add(1)
	c.main.slot = -1
	c.main.td = nil
	c.record(Paused, "load")
	return nil
}

// Data returns the current capture. It is only valid while the controller isn't capturing; ok is false otherwise.
func (c *Controller) Data() (d *Data, ok bool) {
	if c.State() == Capturing {
		return nil, false
	}
	d = c.data.Load()
	return d, d != nil
}

// NewFrame closes the current frame and opens the next one.
func (c *Controller) NewFrame() {
	if c.State() != Capturing {
		return
	}
	d := c.data.Load()
	if d.CurrentFrame >= uint32(len(d.Frames)) {
		c.markFull("frame arena exhausted")
		return
	}
	now := d.timer.Now()
	c.registry.openFrame(d, now)
	if d.CurrentFrame > 1 {
		prev := &d.Frames[d.CurrentFrame-2]
		prev.Name = clock.FormatMilliseconds(prev.Start, prev.End)
	}
}

// BeginRegion starts a region on the secondary timeline. Only one region is tracked at a time; a second
// BeginRegion before EndRegion restarts it.
func (c *Controller) BeginRegion() {
	if c.State() != Capturing {
		return
	}
	d := c.data.Load()
	if d.CurrentRegion >= uint32(len(d.Regions)) {
		c.markFull("region arena exhausted")
		return
	}
	r := &d.Regions[d.CurrentRegion]
	r.Start = d.timer.Now()
	r.End = clock.Open
}

// EndRegion completes the region started by BeginRegion.
func (c *Controller) EndRegion() {
	if c.State() != Capturing {
		return
	}
	d := c.data.Load()
	if d.CurrentRegion >= uint32(len(d.Regions)) {
		c.markFull("region arena exhausted")
		return
	}
	r := &d.Regions[d.CurrentRegion]
	r.End = d.timer.Now()
	r.Name = clock.FormatMilliseconds(r.Start, r.End)
	d.CurrentRegion++
	c.regions.Store(d.CurrentRegion)
}

// SetRegionLimit sets the region duration, in nanoseconds, that consumers treat as the budget of a region.
func (c *Controller) SetRegionLimit(ns int64) {
	if d := c.data.Load(); d != nil && c.State() != Stopped {
		d.RegionTimeLimit = ns
	}
}

// SetFrameTimeLimit sets the frame duration, in nanoseconds, that consumers treat as the budget of a frame.
func (c *Controller) SetFrameTimeLimit(ns int64) {
	if d := c.data.Load(); d != nil && c.State() != Stopped {
		d.MaxFrameTime = ns
	}
}

func (c *Controller) Stats() Stats {
	return Stats{
		State:           c.State(),
		Generation:      c.gen.Load(),
		ActiveThreads:   c.registry.activeSlots(),
		FullTransitions: c.fullTransitions.Load(),
		SlotExhaustions: c.slotExhaustions.Load(),
		StackOverflows:  c.stackOverflows.Load(),
	}
}

func (c *Controller) record(s State, reason string) {
	ev := Event{When: time.Now(), Generation: c.gen.Load(), State: s, Reason: reason}
	c.events.Do(func(r *container.Ring[Event]) { r.Push(ev) })
}

// Events returns the most recent state transitions, oldest first.
func (c *Controller) Events() []Event {
	r, u := c.events.RLock()
	defer u.RUnlock()
	return r.AppendOrdered(nil, r.Len())
}
