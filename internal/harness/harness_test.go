package harness_test

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/harness"
	"codeberg.org/mutker/threadstone/internal/signing"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKernel records invocations and the peak number of concurrent runs.
type fakeKernel struct {
	calls   atomic.Int64
	active  atomic.Int64
	peak    atomic.Int64
	budgets sync.Map
	delay   time.Duration
	panicAt int64
	panicV  any
	value   func(call int64) float64
}

func (*fakeKernel) ID() workload.ID       { return "fake" }
func (*fakeKernel) Unit() string          { return "ops/s" }
func (*fakeKernel) DefaultBudget() uint64 { return 42 }

func (f *fakeKernel) Run(budget uint64) float64 {
	call := f.calls.Add(1)
	f.budgets.Store(budget, true)

	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panicAt > 0 && call == f.panicAt {
		if f.panicV != nil {
			panic(f.panicV)
		}
		panic("kernel exploded")
	}
	if f.value != nil {
		return f.value(call)
	}

	return float64(call)
}

func TestResolveWorkers(t *testing.T) {
	n, err := harness.ResolveWorkers(0)
	require.NoError(t, err)
	assert.Equal(t, uint(runtime.NumCPU()), n)

	n, err = harness.ResolveWorkers(3)
	require.NoError(t, err)
	assert.Equal(t, uint(3), n)

	_, err = harness.ResolveWorkers(-1)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidThreads))
}

func TestCollectReturnsExactSampleCount(t *testing.T) {
	s := harness.NewSampler(nil)

	for _, workers := range []int{1, 2, 3, 8} {
		for _, samples := range []int{1, 2, 5, 17} {
			k := &fakeKernel{}
			run, err := s.Collect(context.Background(), k, harness.Config{
				Workers: workers,
				Samples: samples,
				Budget:  7,
			})
			require.NoError(t, err)
			assert.Len(t, run.Values, samples, "workers=%d samples=%d", workers, samples)
			assert.Equal(t, int64(samples), k.calls.Load())
			assert.Equal(t, uint(workers), run.Threads)
			assert.Equal(t, uint64(7), run.Budget)
		}
	}
}

func TestCollectBoundsConcurrency(t *testing.T) {
	k := &fakeKernel{delay: 5 * time.Millisecond}

	_, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: 2,
		Samples: 10,
		Budget:  1,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, k.peak.Load(), int64(2))
}

func TestCollectZeroSamplesNeverRunsKernel(t *testing.T) {
	k := &fakeKernel{}

	_, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: 1,
		Samples: 0,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidSamples))
	assert.Zero(t, k.calls.Load())
}

func TestCollectNegativeWorkers(t *testing.T) {
	k := &fakeKernel{}

	_, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: -2,
		Samples: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidThreads))
	assert.Zero(t, k.calls.Load())
}

func TestCollectDefaultBudget(t *testing.T) {
	k := &fakeKernel{}

	run, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: 1,
		Samples: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), run.Budget)
	_, ok := k.budgets.Load(uint64(42))
	assert.True(t, ok)
}

func TestCollectKernelPanicFailsRun(t *testing.T) {
	k := &fakeKernel{panicAt: 3}

	run, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: 2,
		Samples: 6,
		Budget:  1,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrKernelFault))
	assert.Nil(t, run.Values, "no partial sample set")
}

func TestCollectKernelPanicKeepsCause(t *testing.T) {
	tests := []struct {
		name  string
		value any
		cause errors.ErrorCode
	}{
		{"calibration", errors.New().New(errors.ErrCalibration), errors.ErrCalibration},
		{"wrapped calibration", errors.New().WithData(errors.ErrCalibration, "zero delta"), errors.ErrCalibration},
		{"string", "kernel exploded", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &fakeKernel{panicAt: 1, panicV: tt.value}

			_, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
				Workers: 1,
				Samples: 3,
				Budget:  1,
			})
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrKernelFault))
			if tt.cause != "" {
				assert.True(t, errors.HasCode(err, tt.cause))
			} else {
				assert.Contains(t, err.Error(), "kernel exploded")
			}
		})
	}
}

func TestCollectNonFiniteSampleFailsRun(t *testing.T) {
	k := &fakeKernel{value: func(call int64) float64 {
		if call == 2 {
			zero := 0.0
			return zero / zero
		}
		return 1
	}}

	_, err := harness.NewSampler(nil).Collect(context.Background(), k, harness.Config{
		Workers: 1,
		Samples: 3,
		Budget:  1,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrKernelFault))
}

func TestCollectCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	k := &fakeKernel{}

	_, err := harness.NewSampler(nil).Collect(ctx, k, harness.Config{Workers: 1, Samples: 1})
	require.Error(t, err)
	assert.Zero(t, k.calls.Load())
}

func TestMeasureStatistics(t *testing.T) {
	k := &fakeKernel{}

	rec, err := harness.NewSampler(nil).Measure(context.Background(), k, harness.Config{
		Workers: 3,
		Samples: 9,
		Budget:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, uint(9), rec.Samples)
	assert.Len(t, rec.Values, 9)
	assert.Equal(t, 1.0, rec.Min)
	assert.Equal(t, 9.0, rec.Max)
	assert.Equal(t, 5.0, rec.Average)
	assert.False(t, rec.Signed())
}

func TestEndToEndDhrystone(t *testing.T) {
	k, err := workload.New(workload.Dhrystone, workload.Options{})
	require.NoError(t, err)

	rec, err := harness.NewSampler(nil).Measure(context.Background(), k, harness.Config{
		Workers: 0,
		Samples: 5,
		Budget:  50_000,
	})
	require.NoError(t, err)

	assert.Equal(t, workload.Dhrystone, rec.Workload)
	assert.Equal(t, uint(runtime.NumCPU()), rec.Threads)
	assert.Equal(t, uint(5), rec.Samples)
	assert.Len(t, rec.Values, 5)
	assert.Equal(t, uint64(50_000), rec.IterationsPerSample)
	assert.LessOrEqual(t, rec.Min, rec.Average)
	assert.LessOrEqual(t, rec.Average, rec.Max)

	public, private, err := signing.GenerateKeypair()
	require.NoError(t, err)
	otherPublic, _, err := signing.GenerateKeypair()
	require.NoError(t, err)

	signed, err := signing.SignRecord(rec, private)
	require.NoError(t, err)
	assert.Equal(t, signing.StatusValid, signing.VerifyRecord(signed, public))
	assert.Equal(t, signing.StatusInvalid, signing.VerifyRecord(signed, otherPublic))
}

func TestDescribeHost(t *testing.T) {
	host := harness.DescribeHost()
	assert.Positive(t, host.LogicalCores)
	assert.Equal(t, runtime.GOARCH, host.GOARCH)
	assert.NotEmpty(t, host.ClockSource)
}
