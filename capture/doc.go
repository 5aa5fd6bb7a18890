// Package capture persists profiler captures.
//
// A capture is encoded as a sequence of fixed-width values in the host's byte order. Booleans take one byte;
// strings and sequences are prefixed with their length as a uint32. Section and file labels are stored as strings,
// which makes encoded captures independent of the label table they were recorded with. Only the recorded parts of
// the arenas are stored.
//
// Records, in order of their fields:
//
//	Data       threads, frames, regions, maxFrameTime int64, currentFrame uint32, currentRegion uint32,
//	           regionTimeLimit int64
//	ThreadData initialized bool, callStackDepth uint32, maxLevel uint32, minTime int64, maxTime int64,
//	           currentEntry uint32, hidden bool, name string, entries, entryStack []uint32
//	Entry      section string, file string, line int32, color uint32, level uint32, start int64, end int64,
//	           parent uint32
//	Region     name string, start int64, end int64
//	Frame      name string, start int64, end int64, frameThreadCount uint32, frameThreads
//	           (threadIndex uint32, activeEntry uint32)
//
// Because the byte order is the host's, captures are only portable between machines of the same endianness.
package capture
