package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfiler_Tick(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProfiler(WithInterval(time.Second), WithLogger(zap.New(core)))

	clock := p.lastTime
	p.now = func() time.Time { return clock }

	for range 99 {
		clock = clock.Add(10 * time.Millisecond)
		p.AddDraws(3)
		assert.False(t, p.Tick())
	}
	clock = clock.Add(1010 * time.Millisecond)
	p.AddDraws(3)
	require.True(t, p.Tick())

	s := p.Last()
	assert.InDelta(t, 50, s.FPS, 1e-6)
	assert.Equal(t, 300, s.DrawCalls)
	assert.Greater(t, s.HeapMB, 0.0)

	entries := logs.FilterMessage("frame stats").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(300), entries[0].ContextMap()["draws"])

	// The next interval starts from zero.
	clock = clock.Add(2 * time.Second)
	require.True(t, p.Tick())
	assert.InDelta(t, 0.5, p.Last().FPS, 1e-6)
	assert.Equal(t, 0, p.Last().DrawCalls)
}
