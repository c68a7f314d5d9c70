package clock

import (
	"testing"
	"time"

	"codeberg.org/mutker/threadstone/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSCCalibrationFailure(t *testing.T) {
	tests := []struct {
		name string
		read func() uint64
	}{
		{"zero delta", func() uint64 { return 42 }},
		{"counter runs backwards", decreasing()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &TSC{read: tt.read, window: time.Millisecond}

			err := c.Calibrate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCalibration))
			assert.Equal(t, err, c.Calibrate(), "calibration runs once")

			_, err = c.TicksPerNanosecond()
			assert.True(t, errors.HasCode(err, errors.ErrCalibration))

			_, err = c.factor()
			assert.Error(t, err)

			requireCalibrationPanic(t, c.NowNanos)
		})
	}
}

func TestTSCCalibratesAgainstWallClock(t *testing.T) {
	// A counter ticking three times per nanosecond.
	c := &TSC{
		read:   func() uint64 { return uint64(wallNanos()) * 3 },
		window: 5 * time.Millisecond,
	}

	require.NoError(t, c.Calibrate())

	tpn, err := c.TicksPerNanosecond()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, tpn, 0.05)

	s, err := c.factor()
	require.NoError(t, err)
	assert.Contains(t, s, "ticks/ns")

	t0 := c.NowNanos()
	time.Sleep(10 * time.Millisecond)
	t1 := c.NowNanos()
	assert.InDelta(t, float64(10*time.Millisecond), float64(t1-t0), float64(50*time.Millisecond))
}
