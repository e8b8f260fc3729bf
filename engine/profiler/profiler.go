// Package profiler samples frame rate, memory and render statistics and reports them
// through the engine logger at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"go.uber.org/zap"
)

// Sample is one interval's worth of statistics.
type Sample struct {
	// FPS is the number of frames per second over the interval.
	FPS float64

	// HeapMB is the live heap at the end of the interval.
	HeapMB float64

	// AllocRateMB is the heap allocation churn per second.
	AllocRateMB float64

	// SysMB is the memory obtained from the OS.
	SysMB float64

	// GCCount is the total number of completed collections.
	GCCount uint32

	// LastPause and MaxPause are the most recent and the longest pause since the previous sample.
	LastPause, MaxPause time.Duration

	// DrawCalls is the number of draws reported through AddDraws over the interval.
	DrawCalls int
}

// Profiler tracks frame timing and memory statistics.
type Profiler struct {
	log            *zap.Logger
	now            func() time.Time
	updateInterval time.Duration

	frameCount     int
	drawCalls      int
	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Sample
}

// ProfilerBuilderOption configures a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often a sample is taken. Defaults to one second.
//
// Parameters:
//   - d: the sampling interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger reports samples to l instead of the engine logger.
//
// Parameters:
//   - l: the logger to report to
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(l *zap.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.log = l
	}
}

// NewProfiler creates a Profiler whose first interval starts now.
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Named("profiler")
	}
	p.lastTime = p.now()
	return p
}

// AddDraws counts draw calls issued during the current frame.
//
// Parameters:
//   - n: the number of draws
func (p *Profiler) AddDraws(n int) {
	p.drawCalls += n
}

// Tick should be called once per frame. When the interval has elapsed it takes a sample,
// logs it and starts the next interval.
//
// Returns:
//   - bool: true if a sample was taken this tick
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Sample{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
		DrawCalls:   p.drawCalls,
	}
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		s.LastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			s.MaxPause = max(s.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	p.log.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Duration("gc_last_pause", s.LastPause),
		zap.Duration("gc_max_pause", s.MaxPause),
		zap.Float64("sys_mb", s.SysMB),
		zap.Int("draws", s.DrawCalls),
	)

	p.last = s
	p.frameCount = 0
	p.drawCalls = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent sample, the zero Sample before the first one.
//
// Returns:
//   - Sample: the last sample
func (p *Profiler) Last() Sample {
	return p.last
}
