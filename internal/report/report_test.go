package report_test

import (
	"bytes"
	"testing"
	"time"

	"codeberg.org/mutker/threadstone/internal/harness"
	"codeberg.org/mutker/threadstone/internal/report"
	"codeberg.org/mutker/threadstone/internal/result"
	"codeberg.org/mutker/threadstone/internal/signing"
	"codeberg.org/mutker/threadstone/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	rec, err := result.New(workload.Dhrystone, 4, 1000, []float64{90, 100, 110})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = report.Render(&buf, report.Summary{
		Record:  rec,
		Unit:    "dhrystones/s",
		Status:  signing.StatusValid,
		Elapsed: 1500 * time.Millisecond,
		Digest:  "abc123",
		Source:  "result.json",
		Host: &harness.Host{
			CPU:           "Test CPU",
			LogicalCores:  8,
			PhysicalCores: 4,
			ClockSource:   "tsc",
			ClockFactor:   "2.995 ticks/ns",
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "threadstone dhrystone (result.json)")
	assert.Contains(t, out, "100.00 dhrystones/s")
	assert.Contains(t, out, "90.00 dhrystones/s")
	assert.Contains(t, out, "110.00 dhrystones/s")
	assert.Contains(t, out, "20.00%")
	assert.Contains(t, out, "signature valid")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "Test CPU")
	assert.Contains(t, out, "8 logical, 4 physical")
	assert.Contains(t, out, "tsc (2.995 ticks/ns)")
	assert.NotContains(t, out, "\x1b[", "no escape codes when not writing to a terminal")
}

func TestRenderMinimal(t *testing.T) {
	rec, err := result.New(workload.Stream, 1, 10, []float64{0})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, report.Summary{Record: rec}))

	out := buf.String()
	assert.Contains(t, out, "threadstone stream")
	assert.Contains(t, out, "unsigned")
	assert.Contains(t, out, "n/a")
	assert.NotContains(t, out, "Digest")
	assert.NotContains(t, out, "CPU")
}
