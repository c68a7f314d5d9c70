package workload

import (
	"math"
	"sync"
	"testing"

	"codeberg.org/mutker/threadstone/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	ids := IDs()
	assert.Contains(t, ids, Dhrystone)
	assert.Contains(t, ids, Stream)
	assert.True(t, Known(Dhrystone))
	assert.False(t, Known("sgemm"))

	k, err := New(Stream, Options{StreamSize: 64})
	require.NoError(t, err)
	assert.Equal(t, Stream, k.ID())

	_, err = New("sgemm", Options{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrUnknownWorkload))
}

func TestDhrystoneFinalState(t *testing.T) {
	dhryMu.Lock()
	defer dhryMu.Unlock()

	const runs = 100
	require.Equal(t, uint64(runs), dhryRun(runs))

	assert.Equal(t, 5, intGlob)
	assert.True(t, boolGlob)
	assert.Equal(t, byte('A'), ch1Glob)
	assert.Equal(t, byte('B'), ch2Glob)
	assert.Equal(t, 7, arr1Glob[8])
	assert.Equal(t, runs+10, arr2Glob[8][7])
	assert.Equal(t, 17, ptrGlob.intComp)
	assert.Equal(t, ident3, ptrGlob.enumComp)
	assert.Equal(t, 18, nextPtrGlob.intComp)
	assert.Equal(t, ident2, nextPtrGlob.enumComp)
}

func TestDhrystoneConcurrentRunsStayConsistent(t *testing.T) {
	k := NewDhrystone()

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = k.Run(1000)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r), "throughput %v", r)
	}

	dhryMu.Lock()
	defer dhryMu.Unlock()
	assert.Equal(t, 1000+10, arr2Glob[8][7], "last run must not be interleaved with another")
}

func TestTinyStreamIsSane(t *testing.T) {
	bw := NewStream(16).Run(4)
	assert.True(t, bw > 0 && !math.IsInf(bw, 0) && !math.IsNaN(bw), "bandwidth %v", bw)
}

func TestStreamDefaultSize(t *testing.T) {
	k := NewStream(0).(stream)
	assert.Equal(t, DefaultStreamSize, k.size)
	assert.Equal(t, "MB/s", k.Unit())
}

func TestPerSecond(t *testing.T) {
	assert.InDelta(t, 2.0, perSecond(1, 500_000_000), 1e-9)
	assert.InDelta(t, 1e9, perSecond(1, 0), 1)
}
