package browser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCPCandidate_Value(t *testing.T) {
	tests := []struct {
		name string
		c    LCPCandidate
		want float64
	}{
		{"render time wins", LCPCandidate{RenderTime: 1200, LoadTime: 1100, StartTime: 1000, Size: 5000}, 1200},
		{"cross-origin falls back to load time", LCPCandidate{LoadTime: 1100, StartTime: 1000}, 1100},
		{"start time", LCPCandidate{StartTime: 1000, Size: 5000}, 1000},
		{"size as last resort", LCPCandidate{Size: 5000}, 5000},
		{"all zero", LCPCandidate{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Value())
		})
	}
}

func TestAccumulator_Empty(t *testing.T) {
	lcp, cls := NewAccumulator().Take()
	assert.Nil(t, lcp)
	assert.Zero(t, cls)
}

func TestAccumulator_LatestLCPWins(t *testing.T) {
	a := NewAccumulator()
	a.ObserveLCP(LCPCandidate{RenderTime: 800})
	a.ObserveLCP(LCPCandidate{RenderTime: 1500})

	lcp, _ := a.Take()
	require.NotNil(t, lcp)
	assert.Equal(t, 1500.0, *lcp)
}

func TestAccumulator_CLSSkipsRecentInput(t *testing.T) {
	a := NewAccumulator()
	a.ObserveLayoutShift(LayoutShift{Value: 0.05})
	a.ObserveLayoutShift(LayoutShift{Value: 0.5, HadRecentInput: true})
	a.ObserveLayoutShift(LayoutShift{Value: 0.02})

	_, cls := a.Take()
	assert.InDelta(t, 0.07, cls, 1e-9)
}

func TestAccumulator_SealedAfterTake(t *testing.T) {
	a := NewAccumulator()
	a.ObserveLCP(LCPCandidate{StartTime: 100})
	a.ObserveLayoutShift(LayoutShift{Value: 0.1})

	lcp, cls := a.Take()

	a.ObserveLCP(LCPCandidate{StartTime: 900})
	a.ObserveLayoutShift(LayoutShift{Value: 0.3})
	a.Reset()

	again, clsAgain := a.Take()
	require.NotNil(t, again)
	assert.Equal(t, *lcp, *again)
	assert.Equal(t, cls, clsAgain)
}

func TestAccumulator_Handle(t *testing.T) {
	a := NewAccumulator()

	require.NoError(t, a.Handle(`{"type":"lcp","renderTime":0,"loadTime":0,"startTime":640,"size":12000}`))
	require.NoError(t, a.Handle(`{"type":"layout-shift","value":0.25,"hadRecentInput":false}`))
	require.NoError(t, a.Handle(`{"type":"layout-shift","value":0.4,"hadRecentInput":true}`))

	lcp, cls := a.Take()
	require.NotNil(t, lcp)
	assert.Equal(t, 640.0, *lcp)
	assert.Equal(t, 0.25, cls)
}

func TestAccumulator_HandleInitResets(t *testing.T) {
	a := NewAccumulator()
	require.NoError(t, a.Handle(`{"type":"lcp","startTime":300}`))
	require.NoError(t, a.Handle(`{"type":"layout-shift","value":0.1}`))
	require.NoError(t, a.Handle(`{"type":"init"}`))

	lcp, cls := a.Take()
	assert.Nil(t, lcp)
	assert.Zero(t, cls)
}

func TestAccumulator_HandleInvalid(t *testing.T) {
	a := NewAccumulator()
	assert.Error(t, a.Handle(`not json`))
	assert.Error(t, a.Handle(`{"type":"fid"}`))
}

func TestAccumulator_ConcurrentObservers(t *testing.T) {
	a := NewAccumulator()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.ObserveLayoutShift(LayoutShift{Value: 0.01})
		}()
	}
	wg.Wait()

	_, cls := a.Take()
	assert.InDelta(t, 1.0, cls, 1e-9)
}
