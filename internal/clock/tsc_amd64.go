package clock

import (
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/threadstone/internal/errors"
)

const calibrationWindow = 50 * time.Millisecond

var std Clock = &TSC{}

// rdtsc is implemented in tsc_amd64.s.
func rdtsc() uint64

// TSC converts time-stamp counter readings to nanoseconds using a
// ticks-per-nanosecond factor measured once against CLOCK_MONOTONIC.
type TSC struct {
	once       sync.Once
	err        error
	base       uint64
	ticksPerNs float64
	floor      floor

	// read and window replace the hardware counter and the calibration
	// window when set.
	read   func() uint64
	window time.Duration
}

func (c *TSC) counter() uint64 {
	if c.read != nil {
		return c.read()
	}

	return rdtsc()
}

func (c *TSC) Calibrate() error {
	c.once.Do(c.calibrate)
	return c.err
}

func (c *TSC) calibrate() {
	window := c.window
	if window <= 0 {
		window = calibrationWindow
	}

	w0, t0 := wallNanos(), c.counter()
	time.Sleep(window)
	w1, t1 := wallNanos(), c.counter()

	if w1 <= w0 || t1 <= t0 {
		c.err = errors.New().WithData(errors.ErrCalibration, fmt.Sprintf(
			"tsc delta %d over %d ns", int64(t1-t0), w1-w0))
		return
	}

	c.base = t0
	c.ticksPerNs = float64(t1-t0) / float64(w1-w0)
}

// NowNanos panics with the calibration error if calibration failed;
// there is no numeric fallback for a broken counter.
func (c *TSC) NowNanos() uint64 {
	if err := c.Calibrate(); err != nil {
		panic(err)
	}

	ticks := c.counter()
	if ticks < c.base {
		return c.floor.clamp(0)
	}

	return c.floor.clamp(uint64(float64(ticks-c.base) / c.ticksPerNs))
}

func (*TSC) Source() string {
	return "tsc"
}

// TicksPerNanosecond returns the calibrated factor.
func (c *TSC) TicksPerNanosecond() (float64, error) {
	if err := c.Calibrate(); err != nil {
		return 0, err
	}

	return c.ticksPerNs, nil
}

func (c *TSC) factor() (string, error) {
	tpn, err := c.TicksPerNanosecond()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%.3f ticks/ns", tpn), nil
}
