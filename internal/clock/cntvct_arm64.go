package clock

import (
	"math/bits"
	"strconv"
	"sync"

	"codeberg.org/mutker/threadstone/internal/errors"
)

var std Clock = &Counter{}

// cntvct reads the virtual counter via CNTVCT_EL0.
// Implemented in cntvct_arm64.s
func cntvct() uint64

// cntfrq reads the counter frequency via CNTFRQ_EL0.
// Implemented in cntvct_arm64.s
func cntfrq() uint64

// Counter converts generic timer ticks to nanoseconds using the frequency
// register, so calibration needs no sleep.
type Counter struct {
	once  sync.Once
	err   error
	base  uint64
	freq  uint64
	floor floor

	// read and readFreq replace the system registers when set.
	read     func() uint64
	readFreq func() uint64
}

func (c *Counter) counter() uint64 {
	if c.read != nil {
		return c.read()
	}

	return cntvct()
}

func (c *Counter) frequency() uint64 {
	if c.readFreq != nil {
		return c.readFreq()
	}

	return cntfrq()
}

func (c *Counter) Calibrate() error {
	c.once.Do(func() {
		c.freq = c.frequency()
		if c.freq == 0 {
			c.err = errors.New().WithMessage(errors.ErrCalibration, "cntfrq_el0 reports zero frequency")
			return
		}
		c.base = c.counter()
	})

	return c.err
}

func (c *Counter) NowNanos() uint64 {
	if err := c.Calibrate(); err != nil {
		panic(err)
	}

	ticks := c.counter()
	if ticks < c.base {
		return c.floor.clamp(0)
	}

	// ticks * 1e9 / freq with a 128-bit intermediate.
	hi, lo := bits.Mul64(ticks-c.base, 1_000_000_000)
	if hi >= c.freq {
		return c.floor.clamp(^uint64(0))
	}
	ns, _ := bits.Div64(hi, lo, c.freq)

	return c.floor.clamp(ns)
}

func (*Counter) Source() string {
	return "cntvct_el0"
}

// Frequency returns the counter frequency in Hz.
func (c *Counter) Frequency() (uint64, error) {
	if err := c.Calibrate(); err != nil {
		return 0, err
	}

	return c.freq, nil
}

func (c *Counter) factor() (string, error) {
	freq, err := c.Frequency()
	if err != nil {
		return "", err
	}

	return strconv.FormatUint(freq, 10) + " Hz", nil
}
