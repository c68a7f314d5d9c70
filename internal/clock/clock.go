// Package clock provides a process-wide monotonic nanosecond clock.
//
// On amd64 the clock reads the TSC and converts ticks with a factor
// calibrated once against CLOCK_MONOTONIC. On arm64 it reads CNTVCT_EL0
// and converts with the frequency reported by CNTFRQ_EL0. Every other
// architecture uses the monotonic wall clock with a zero reference taken
// on first use. The implementation is selected at build time.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports elapsed nanoseconds from a fixed, process-local origin.
// Successive reads never decrease.
type Clock interface {
	NowNanos() uint64
	Source() string
}

// Calibrator is implemented by clocks that need a one-time calibration
// before their readings can be converted to nanoseconds.
type Calibrator interface {
	Calibrate() error
}

// Default returns the clock selected for this architecture.
func Default() Clock {
	return std
}

// Now reads the default clock.
func Now() uint64 {
	return std.NowNanos()
}

// Since returns the duration elapsed on the default clock since start.
func Since(start uint64) time.Duration {
	return Elapsed(start, std.NowNanos())
}

// Elapsed converts a pair of readings into a duration.
func Elapsed(start, end uint64) time.Duration {
	if end <= start {
		return 0
	}

	return time.Duration(end - start)
}

// Calibrate forces calibration of the default clock. Clocks that need no
// calibration always succeed.
func Calibrate() error {
	if c, ok := std.(Calibrator); ok {
		return c.Calibrate()
	}

	return nil
}

// factorer is implemented by counter clocks that convert ticks with a
// calibrated or reported factor.
type factorer interface {
	factor() (string, error)
}

// Factor describes the default clock's tick conversion, for example
// "2.995 ticks/ns" or "24000000 Hz". It is empty for clocks that read
// nanoseconds directly or whose calibration failed.
func Factor() string {
	f, ok := std.(factorer)
	if !ok {
		return ""
	}

	s, err := f.factor()
	if err != nil {
		return ""
	}

	return s
}

// floor keeps readings non-decreasing when concurrent callers on
// different cores observe slightly skewed counters.
type floor struct {
	last atomic.Uint64
}

func (f *floor) clamp(v uint64) uint64 {
	for {
		prev := f.last.Load()
		if v <= prev {
			return prev
		}
		if f.last.CompareAndSwap(prev, v) {
			return v
		}
	}
}
