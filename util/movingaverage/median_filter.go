package movingaverage

import (
	"github.com/montanaflynn/stats"
)

// MedianFilter returns the median of the latest size observations
type MedianFilter struct {
	window []float64
	next   int
	full   bool
}

var _ MovingAvg = (*MedianFilter)(nil)

// NewMedianFilter returns a MedianFilter with the window size
func NewMedianFilter(size int) *MedianFilter {
	if size <= 0 {
		size = 1
	}
	return &MedianFilter{window: make([]float64, size)}
}

// Add implements MovingAvg
func (f *MedianFilter) Add(data float64) {
	f.window[f.next] = data
	f.next++
	if f.next == len(f.window) {
		f.next = 0
		f.full = true
	}
}

// Get implements MovingAvg
func (f *MedianFilter) Get() float64 {
	observed := f.window
	if !f.full {
		observed = f.window[:f.next]
	}
	if len(observed) == 0 {
		return 0
	}
	median, err := stats.Median(observed)
	if err != nil {
		return 0
	}
	return median
}

// Reset implements MovingAvg
func (f *MedianFilter) Reset() {
	f.next = 0
	f.full = false
}
