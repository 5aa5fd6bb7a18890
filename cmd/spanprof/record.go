package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"honnef.co/go/spanprof/capture"
	"honnef.co/go/spanprof/profiler"
)

type recordOptions struct {
	out         string
	threads     int
	frames      int
	depth       int
	frameTime   time.Duration
	work        time.Duration
	entries     uint32
	metricsAddr string
}

func (a *app) recordCmd() *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a synthetic multi-threaded workload",
		Long: `Record runs a synthetic workload through the profiler: worker goroutines execute nested sections
and contend on a shared lock while the main goroutine drives frames and regions. The capture is saved to --out;
the file extension selects compression (.sz for snappy, .zst for zstd).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.threads < 0 || opts.frames <= 0 || opts.depth <= 0 {
				return errors.New("--threads must not be negative, --frames and --depth must be positive")
			}
			d, err := a.record(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := capture.SaveFile(opts.out, d); err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"file":        opts.out,
				"compression": capture.CompressionFor(opts.out),
				"frames":      d.CurrentFrame,
			}).Info("capture saved")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "capture.sz", "output file")
	f.IntVar(&opts.threads, "threads", 4, "number of worker goroutines")
	f.IntVar(&opts.frames, "frames", 60, "number of frames to record")
	f.IntVar(&opts.depth, "depth", 3, "nesting depth of worker sections")
	f.DurationVar(&opts.frameTime, "frame-time", 16*time.Millisecond, "duration of a frame")
	f.DurationVar(&opts.work, "work", 200*time.Microsecond, "busy time of the innermost worker section")
	f.Uint32Var(&opts.entries, "max-entries", 100_000, "entry capacity per thread")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while recording")
	return cmd
}

func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

type workload struct {
	c     *profiler.Controller
	opts  recordOptions
	mu    sync.Mutex
	sites []profiler.Site
	lock  profiler.Site
}

func (w *workload) nest(th *profiler.Thread, level int) {
	th.Push(w.sites[level])
	defer th.Pop()
	if level+1 < len(w.sites) {
		w.nest(th, level+1)
		w.nest(th, level+1)
		return
	}
	th.Lock(&w.mu, w.lock)
	spin(w.opts.work / 4)
	w.mu.Unlock()
	spin(w.opts.work)
}

func (w *workload) worker(id int, stop <-chan struct{}) {
	th := w.c.NewThread()
	defer th.Finish()
	th.Name(fmt.Sprintf("worker %d", id))
	for {
		select {
		case <-stop:
			return
		default:
		}
		w.nest(th, 0)
	}
}

func (a *app) record(ctx context.Context, opts recordOptions) (*profiler.Data, error) {
	c := profiler.New(profiler.Options{Logger: a.logger})
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(profiler.NewCollector(c))
		srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	s := profiler.Settings{
		MaxThreads:          uint32(opts.threads) + 1,
		MaxCallStack:        uint32(opts.depth) + 1,
		MaxEntriesPerThread: opts.entries,
		MaxFrames:           uint32(opts.frames),
		MaxRegions:          uint32(opts.frames),
	}
	if err := c.Init(s); err != nil {
		return nil, err
	}
	c.SetFrameTimeLimit(int64(opts.frameTime))
	c.SetRegionLimit(int64(opts.frameTime / 2))

	w := &workload{c: c, opts: opts}
	w.lock = c.SiteColor("lock wait", profiler.LockColor, "record.go", 0)
	for i := 0; i < opts.depth; i++ {
		w.sites = append(w.sites, c.Site(fmt.Sprintf("level %d", i), "record.go", i+1))
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < opts.threads; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.worker(id, stop)
		}(i)
	}

	main := c.Main()
	main.Name("main")
	update := c.Site("update", "record.go", 100)
	ticker := time.NewTicker(opts.frameTime)
	defer ticker.Stop()
	for frame := 0; frame < opts.frames && c.State() == profiler.Capturing; frame++ {
		c.NewFrame()
		c.BeginRegion()
		main.Push(update)
		spin(opts.work)
		main.Pop()
		c.EndRegion()
		select {
		case <-ticker.C:
		case <-ctx.Done():
			frame = opts.frames
		}
	}
	// Workers finishing after the pause keep their slots in the capture.
	c.RequestPause(true)
	close(stop)
	wg.Wait()

	st := c.Stats()
	a.logger.WithFields(logrus.Fields{
		"state":            st.State,
		"full_transitions": st.FullTransitions,
		"slot_exhaustions": st.SlotExhaustions,
		"stack_overflows":  st.StackOverflows,
	}).Info("recording finished")

	d, ok := c.Data()
	if !ok {
		return nil, errors.New("no capture recorded")
	}
	return d, nil
}
