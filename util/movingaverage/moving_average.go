package movingaverage

// MovingAvg is a moving average of observations
type MovingAvg interface {
	// Add adds a observation
	Add(data float64)
	// Get returns the current average, 0 if nothing is observed
	Get() float64
	// Reset drops all observations
	Reset()
}
