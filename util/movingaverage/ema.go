package movingaverage

const (
	defaultDecay = 0.075
)

// EMA is a exponential moving average. The first observations are averaged
// arithmetically until (2-decay)/decay observations are seen, so early values
// do not dominate the average.
type EMA struct {
	decay   float64
	warmup  uint64
	count   uint64
	average float64
}

var _ MovingAvg = (*EMA)(nil)

// NewEMA returns a EMA, decay must be in (0, 1), otherwise the default decay is
// used.
func NewEMA(decay float64) *EMA {
	if decay <= 0 || decay >= 1 {
		decay = defaultDecay
	}
	return &EMA{
		decay:  decay,
		warmup: uint64((2 - decay) / decay),
	}
}

// Add implements MovingAvg
func (e *EMA) Add(data float64) {
	e.count++
	if e.count <= e.warmup {
		e.average += (data - e.average) / float64(e.count)
		return
	}
	e.average = data*e.decay + e.average*(1-e.decay)
}

// Get implements MovingAvg
func (e *EMA) Get() float64 {
	return e.average
}

// Reset implements MovingAvg
func (e *EMA) Reset() {
	e.count = 0
	e.average = 0
}
