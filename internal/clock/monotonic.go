package clock

import "sync"

// Monotonic is the wall-clock fallback. Its origin is the first reading.
type Monotonic struct {
	once  sync.Once
	start int64
	floor floor
}

// NewMonotonic returns a fallback clock with an unset origin.
func NewMonotonic() *Monotonic {
	return &Monotonic{}
}

func (m *Monotonic) NowNanos() uint64 {
	m.once.Do(func() {
		m.start = wallNanos()
	})

	d := wallNanos() - m.start
	if d < 0 {
		d = 0
	}

	return m.floor.clamp(uint64(d))
}

func (*Monotonic) Source() string {
	return wallSource
}
