package workload

import (
	"fmt"

	"codeberg.org/mutker/threadstone/internal/clock"
)

const (
	// DefaultStreamSize is the array length used when none is configured.
	DefaultStreamSize   = 1 << 20
	streamDefaultPasses = 20
	streamScalar        = 3.0
	bytesPerElement     = 8
	// Each triad element reads b[i] and c[i] and writes a[i].
	arraysTouched = 3
)

type stream struct {
	size int
}

// NewStream returns the STREAM triad kernel over arrays of size elements.
// Each Run allocates its own arrays, so the kernel is reentrant.
func NewStream(size int) Kernel {
	if size <= 0 {
		size = DefaultStreamSize
	}

	return stream{size: size}
}

func (stream) ID() ID                { return Stream }
func (stream) Unit() string          { return "MB/s" }
func (stream) DefaultBudget() uint64 { return streamDefaultPasses }

// Run performs budget triad passes and returns the achieved bandwidth.
// It panics if the triad produced wrong values.
func (s stream) Run(budget uint64) float64 {
	a := make([]float64, s.size)
	b := make([]float64, s.size)
	c := make([]float64, s.size)
	for i := range b {
		b[i] = 1.0
		c[i] = 2.0
	}

	start := clock.Now()
	for pass := uint64(0); pass < budget; pass++ {
		triad(a, b, c)
	}
	elapsed := clock.Now() - start

	if budget > 0 {
		if want := 1.0 + streamScalar*2.0; a[0] != want || a[s.size-1] != want {
			panic(fmt.Sprintf("stream: triad produced %v, want %v", a[0], want))
		}
	}

	moved := float64(s.size) * bytesPerElement * arraysTouched * float64(budget)

	return perSecond(moved, elapsed) / 1_000_000
}

func triad(a, b, c []float64) {
	b = b[:len(a)]
	c = c[:len(a)]
	for i := range a {
		a[i] = b[i] + streamScalar*c[i]
	}
}
