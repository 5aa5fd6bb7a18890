// Package profiler is an in-process instrumentation profiler. Application code brackets work with Push and Pop on a
// per-goroutine Thread handle; the Controller records timestamps, nesting, frame boundaries and a secondary region
// timeline into memory that is allocated once, when capture starts.
//
// A typical setup:
//
//	ctl := profiler.New(profiler.Options{})
//	if err := ctl.Init(profiler.DefaultSettings()); err != nil {
//		return err
//	}
//	render := ctl.Site("Render", "main.go", 42)
//
//	// coordinating goroutine, once per frame
//	ctl.NewFrame()
//
//	// any goroutine
//	th := ctl.NewThread()
//	defer th.Finish()
//	th.Push(render)
//	defer th.Pop()
//
// Capture stops by itself once any capacity is exhausted (see State). To inspect a capture, pause it with
// RequestPause(true) and read Data; to start over, call Reset.
//
// Thread handles are not safe for concurrent use; each goroutine that instruments code owns its own. NewFrame,
// BeginRegion, EndRegion, Init, Reset, Finish and Load must all be called from one coordinating goroutine.
package profiler
