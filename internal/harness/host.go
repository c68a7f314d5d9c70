package harness

import (
	"runtime"

	"codeberg.org/mutker/threadstone/internal/clock"
	"github.com/klauspost/cpuid/v2"
)

// Host describes the machine a run was measured on. It is reported
// alongside results and is not part of the signed record.
type Host struct {
	CPU           string
	Vendor        string
	LogicalCores  int
	PhysicalCores int
	GOARCH        string
	ClockSource   string
	ClockFactor   string
}

// DescribeHost reads the local CPU identity and the default clock.
func DescribeHost() Host {
	logical := cpuid.CPU.LogicalCores
	if logical <= 0 {
		logical = runtime.NumCPU()
	}

	return Host{
		CPU:           cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		LogicalCores:  logical,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		GOARCH:        runtime.GOARCH,
		ClockSource:   clock.Default().Source(),
		ClockFactor:   clock.Factor(),
	}
}
