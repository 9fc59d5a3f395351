package movingaverage

import (
	"sync"
	"time"
)

const (
	defaultMedianWindow = 64
)

// LatencyTracker tracks the median and the exponential moving average of
// durations. It is safe for concurrent use.
type LatencyTracker struct {
	sync.Mutex
	median *MedianFilter
	ema    *EMA
}

// NewLatencyTracker returns a LatencyTracker
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{
		median: NewMedianFilter(defaultMedianWindow),
		ema:    NewEMA(defaultDecay),
	}
}

// Observe adds a duration
func (t *LatencyTracker) Observe(d time.Duration) {
	t.Lock()
	defer t.Unlock()
	t.median.Add(float64(d))
	t.ema.Add(float64(d))
}

// Median returns the median of the latest observed durations
func (t *LatencyTracker) Median() time.Duration {
	t.Lock()
	defer t.Unlock()
	return time.Duration(t.median.Get())
}

// EMA returns the exponential moving average of observed durations
func (t *LatencyTracker) EMA() time.Duration {
	t.Lock()
	defer t.Unlock()
	return time.Duration(t.ema.Get())
}
