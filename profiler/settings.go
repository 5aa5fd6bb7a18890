package profiler

import (
	"errors"
	"fmt"
)

var ErrInvalidSettings = errors.New("invalid profiler settings")

// Settings are the fixed capacities of a capture session. All memory for a session is allocated up front from
// these values; larger values cost memory, not time. With the defaults, the per-thread entry arenas alone take
// several hundred megabytes.
type Settings struct {
	MaxThreads          uint32
	MaxCallStack        uint32
	MaxEntriesPerThread uint32
	MaxFrames           uint32
	MaxRegions          uint32
}

func DefaultSettings() Settings {
	return Settings{
		MaxThreads:          120,
		MaxCallStack:        20,
		MaxEntriesPerThread: 100_000,
		MaxFrames:           10_000,
		MaxRegions:          10_000,
	}
}

func (s Settings) Validate() error {
	check := func(name string, v uint32) error {
		if v == 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidSettings, name)
		}
		return nil
	}
	return errors.Join(
		check("MaxThreads", s.MaxThreads),
		check("MaxCallStack", s.MaxCallStack),
		check("MaxEntriesPerThread", s.MaxEntriesPerThread),
		check("MaxFrames", s.MaxFrames),
		check("MaxRegions", s.MaxRegions),
	)
}
