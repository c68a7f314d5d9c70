// Package harness turns a workload kernel into a complete sample set by
// fanning kernel invocations out over a bounded worker pool.
package harness

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"codeberg.org/mutker/threadstone/internal/clock"
	"codeberg.org/mutker/threadstone/internal/errors"
	"codeberg.org/mutker/threadstone/internal/logger"
	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/sourcegraph/conc/pool"
)

// Config describes one sampling run.
type Config struct {
	// Workers is the pool size; 0 means all logical CPUs.
	Workers int
	// Samples is the number of kernel invocations; it must be at least 1.
	Samples int
	// Budget is passed to every invocation; 0 means the kernel default.
	Budget uint64
}

// Run is a complete sample set together with the resolved configuration.
type Run struct {
	Threads uint
	Budget  uint64
	Values  []float64
	Elapsed time.Duration
}

// Sampler drives kernels. The zero value logs through the package logger.
type Sampler struct {
	log logger.Logger
}

// NewSampler returns a Sampler that logs to log.
func NewSampler(log logger.Logger) *Sampler {
	return &Sampler{log: log}
}

func (s *Sampler) logger() logger.Logger {
	if s == nil || s.log == nil {
		return logger.Default()
	}

	return s.log
}

// ResolveWorkers maps a requested worker count onto the effective pool
// size.
func ResolveWorkers(requested int) (uint, error) {
	if requested < 0 {
		return 0, errors.New().WithData(errors.ErrInvalidThreads, requested)
	}
	if requested == 0 {
		return uint(runtime.NumCPU()), nil
	}

	return uint(requested), nil
}

// Collect invokes k cfg.Samples times across the pool and blocks until
// every invocation returned. Either the full sample set is returned or an
// error; a kernel panic fails the whole run. ctx is checked once before
// any kernel runs; in-flight samples are not cancelled.
func (s *Sampler) Collect(ctx context.Context, k workload.Kernel, cfg Config) (Run, error) {
	errFactory := errors.New()
	log := s.logger()

	if cfg.Samples <= 0 {
		return Run{}, errFactory.WithData(errors.ErrInvalidSamples, cfg.Samples)
	}

	threads, err := ResolveWorkers(cfg.Workers)
	if err != nil {
		return Run{}, err
	}

	budget := cfg.Budget
	if budget == 0 {
		budget = k.DefaultBudget()
	}

	if err := clock.Calibrate(); err != nil {
		return Run{}, err
	}

	if err := ctx.Err(); err != nil {
		return Run{}, errFactory.Wrap(errors.ErrTimeout, err)
	}

	log.Info().
		Str("workload", string(k.ID())).
		Uint("threads", threads).
		Int("samples", cfg.Samples).
		Uint64("budget", budget).
		Str("clock", clock.Default().Source()).
		Msg("Sampling started")

	p := pool.NewWithResults[float64]().
		WithErrors().
		WithMaxGoroutines(int(threads))

	start := clock.Now()
	for i := 0; i < cfg.Samples; i++ {
		i := i
		p.Go(func() (float64, error) {
			v, err := sample(k, budget)
			if err != nil {
				return 0, err
			}
			log.Debug().
				Int("sample", i).
				Float64("value", v).
				Str("unit", k.Unit()).
				Msg("Sample completed")
			return v, nil
		})
	}
	values, err := p.Wait()
	elapsed := clock.Since(start)

	if err != nil {
		fault := errFactory.Wrap(errors.ErrKernelFault, err)
		log.ErrorWithCode(fault).
			Str("workload", string(k.ID())).
			Msg("Sampling failed")
		return Run{}, fault
	}

	if len(values) != cfg.Samples {
		return Run{}, errFactory.WithData(errors.ErrIncompleteRun, struct {
			Got  int
			Want int
		}{len(values), cfg.Samples})
	}

	log.Info().
		Str("workload", string(k.ID())).
		Dur("elapsed", elapsed).
		Msg("Sampling finished")

	return Run{
		Threads: threads,
		Budget:  budget,
		Values:  values,
		Elapsed: elapsed,
	}, nil
}

// Measure collects a run and summarizes it into an unsigned record.
func (s *Sampler) Measure(ctx context.Context, k workload.Kernel, cfg Config) (result.Record, error) {
	run, err := s.Collect(ctx, k, cfg)
	if err != nil {
		return result.Record{}, err
	}

	return result.New(k.ID(), run.Threads, run.Budget, run.Values)
}

// sample performs one invocation on a dedicated OS thread and converts a
// panic into an error.
func sample(k workload.Kernel, budget uint64) (v float64, err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			// Kernels read the clock; a failed calibration surfaces here.
			if cause, ok := r.(error); ok {
				err = errors.New().Wrap(errors.ErrKernelFault, cause)
				return
			}
			err = errors.New().WithData(errors.ErrKernelFault, fmt.Sprint(r))
		}
	}()

	v = k.Run(budget)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New().WithData(errors.ErrInvalidSample, v)
	}

	return v, nil
}
