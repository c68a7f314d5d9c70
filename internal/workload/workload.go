// Package workload defines the kernel contract consumed by the sampling
// harness and registers the built-in kernels.
//
// A kernel runs synchronously for a given work budget and returns one
// throughput figure in a kernel-defined unit. Kernels must be safe to call
// from several goroutines at once; a kernel built on shared state must
// serialize its own invocations.
package workload

import (
	"sort"
	"sync"

	"codeberg.org/mutker/threadstone/internal/errors"
)

// ID names a kernel in result records.
type ID string

const (
	Dhrystone ID = "dhrystone"
	Stream    ID = "stream"
)

// Kernel is one benchmark workload.
type Kernel interface {
	ID() ID
	// Unit describes the throughput figure returned by Run.
	Unit() string
	// DefaultBudget is used when no work budget is configured.
	DefaultBudget() uint64
	Run(budget uint64) float64
}

// Options carries kernel construction parameters.
type Options struct {
	// StreamSize is the STREAM array length in elements.
	StreamSize int
}

// Factory builds a kernel from options.
type Factory func(Options) Kernel

var (
	mu       sync.RWMutex
	registry = map[ID]Factory{}
)

func init() {
	Register(Dhrystone, func(Options) Kernel { return NewDhrystone() })
	Register(Stream, func(o Options) Kernel { return NewStream(o.StreamSize) })
}

// Register adds or replaces a kernel factory.
func Register(id ID, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[id] = factory
}

// New builds the kernel registered under id.
func New(id ID, opts Options) (Kernel, error) {
	mu.RLock()
	factory, ok := registry[id]
	mu.RUnlock()

	if !ok {
		return nil, errors.New().WithData(errors.ErrUnknownWorkload, string(id))
	}

	return factory(opts), nil
}

// IDs returns the registered kernel identifiers in sorted order.
func IDs() []ID {
	mu.RLock()
	defer mu.RUnlock()

	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Known reports whether id is registered.
func Known(id ID) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[id]
	return ok
}

// perSecond converts a count over elapsed nanoseconds into a rate.
// A zero elapsed time is treated as one nanosecond.
func perSecond(count float64, elapsedNs uint64) float64 {
	if elapsedNs == 0 {
		elapsedNs = 1
	}

	return count / (float64(elapsedNs) / 1e9)
}
