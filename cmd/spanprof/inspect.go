package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"honnef.co/go/spanprof/analysis"
	"honnef.co/go/spanprof/capture"
	"honnef.co/go/spanprof/color"
	"honnef.co/go/spanprof/container"
	"honnef.co/go/spanprof/profiler"
)

func (a *app) load(path string) (*profiler.Data, error) {
	d, err := capture.LoadFile(path, nil)
	if err != nil {
		return nil, err
	}
	a.logger.WithField("file", path).Debug("capture loaded")
	return d, nil
}

func (a *app) statsCmd() *cobra.Command {
	var top int
	var threads []int
	cmd := &cobra.Command{
		Use:   "stats FILE",
		Short: "Show per-section statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.load(args[0])
			if err != nil {
				return err
			}
			stats := analysis.ComputeStatistics(d, threads...)
			if top > 0 && len(stats) > top {
				stats = stats[:top]
			}
			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				name := swatch(color.FromName(s.Section), s.Section)
				open := ""
				if s.Open > 0 {
					open = warnStyle.Render(count(s.Open))
				}
				rows = append(rows, []string{
					name,
					s.File + ":" + strconv.Itoa(int(s.Line)),
					count(s.Count),
					duration(s.Total),
					duration(s.Self),
					duration(s.Min),
					duration(s.Max),
					durationf(s.Average),
					durationf(s.Median),
					open,
				})
			}
			renderTable(cmd.OutOrStdout(), "Sections",
				[]string{"SECTION", "LOCATION", "COUNT", "TOTAL", "SELF", "MIN", "MAX", "AVG", "MEDIAN", "OPEN"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "only show the N sections with the most total time")
	cmd.Flags().IntSliceVar(&threads, "thread", nil, "only include these thread slots")
	return cmd
}

func (a *app) threadsCmd() *cobra.Command {
	var showHidden bool
	cmd := &cobra.Command{
		Use:   "threads FILE",
		Short: "List the threads of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.load(args[0])
			if err != nil {
				return err
			}
			var rows [][]string
			for _, s := range analysis.ThreadSummaries(d) {
				if s.Hidden && !showHidden {
					continue
				}
				c := color.FromName(s.Name)
				if s.Hidden {
					c = dimmed(c)
				}
				rows = append(rows, []string{
					strconv.Itoa(s.Slot),
					swatch(c, s.Name),
					count(s.Entries),
					count(s.Open),
					count(s.MaxLevel),
					duration(s.Busy),
					duration(time.Duration(s.End - s.Start)),
				})
			}
			renderTable(cmd.OutOrStdout(), "Threads",
				[]string{"SLOT", "NAME", "ENTRIES", "OPEN", "DEPTH", "BUSY", "SPAN"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHidden, "hidden", false, "include hidden threads")
	return cmd
}

func (a *app) framesCmd() *cobra.Command {
	var width int
	var activity []int
	cmd := &cobra.Command{
		Use:   "frames FILE",
		Short: "Show frame durations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 0 {
				return errors.New("--width must not be negative")
			}
			d, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			frames := analysis.Frames(d)
			var longest time.Duration
			for _, f := range frames {
				longest = max(longest, f.Duration)
			}
			budget := time.Duration(d.MaxFrameTime)
			rows := make([][]string, 0, len(frames))
			for _, f := range frames {
				b := bar(f.Duration, longest, width)
				if f.OverBudget {
					b = warnStyle.Render(b)
				}
				name := f.Name
				if f.Open {
					name = dimStyle.Render("running")
				}
				rows = append(rows, []string{strconv.Itoa(f.Index), name, duration(f.Duration), count(f.Threads), b})
			}
			renderTable(w, fmt.Sprintf("Frames (budget %s)", duration(budget)),
				[]string{"FRAME", "NAME", "DURATION", "THREADS", ""}, rows)

			if over := analysis.RegionsOverLimit(d); len(over) > 0 {
				fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d of %d regions exceeded the limit of %s",
					len(over), d.CurrentRegion, duration(time.Duration(d.RegionTimeLimit)))))
			}

			show := container.NewSet(activity...)
			for _, idx := range container.Sorted(show) {
				a.printActivity(cmd, d, idx)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 40, "width of the duration bars")
	cmd.Flags().IntSliceVar(&activity, "activity", nil, "print the call stacks active at the start of these frames")
	return cmd
}

func (a *app) printActivity(cmd *cobra.Command, d *profiler.Data, frame int) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Frame %d", frame)))
	act := analysis.FrameActivity(d, frame)
	if len(act) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no threads"))
		return
	}
	for _, ta := range act {
		td := &d.Threads[ta.Thread]
		fmt.Fprintf(w, "  %s\n", td.Name)
		if len(ta.Stack) == 0 {
			fmt.Fprintln(w, dimStyle.Render("    idle"))
		}
		for depth, idx := range ta.Stack {
			e := &td.Entries[idx]
			fmt.Fprintf(w, "    %*s%s\n", depth*2, "", swatch(e.Color, d.SectionName(e)))
		}
	}
}
