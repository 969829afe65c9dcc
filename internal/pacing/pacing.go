// Package pacing implements the adaptive frame-rate controller: a ring
// buffer of recent per-frame processing times, a smoothed FPS estimate, and
// a PID loop that computes the inter-frame sleep.
package pacing

import "time"

const (
	// historySize is the number of per-frame durations kept for FPS
	// estimation. At 60Hz this covers roughly one second.
	historySize = 60

	// emaAlpha is the smoothing factor of the FPS moving average.
	// 0.3 balances stability against responsiveness to rate changes.
	emaAlpha = 0.3

	// fpsRefreshInterval bounds how often the FPS estimate is recomputed.
	fpsRefreshInterval = 200 * time.Millisecond

	// DefaultTargetInterval is the frame interval held when the caller does
	// not configure one (~60Hz).
	DefaultTargetInterval = 16 * time.Millisecond

	// initialFPS seeds the cached estimate until real measurements arrive.
	initialFPS = 60.0

	// PID gains. kp drives fast correction, ki removes steady-state error,
	// kd damps overshoot.
	gainP = 0.7
	gainI = 0.15
	gainD = 0.1

	// integralLimit clamps the accumulated error to prevent windup.
	integralLimit = 10.0
)

// History is a fixed-capacity ring buffer of per-frame durations in seconds.
// Once full, new samples overwrite the oldest. The zero value is ready to use.
type History struct {
	times [historySize]float64
	index int
	count int
}

// Push records one per-frame duration, overwriting the oldest sample when the
// buffer is full.
func (h *History) Push(seconds float64) {
	h.times[h.index] = seconds
	h.index = (h.index + 1) % historySize
	if h.count < historySize {
		h.count++
	}
}

// Clear discards all samples. Called when a capture failure makes the
// recorded timings discontinuous.
func (h *History) Clear() {
	h.index = 0
	h.count = 0
}

// Count reports the number of valid samples (0..historySize).
func (h *History) Count() int { return h.count }

// AverageFPS is the count/sum rate estimate. It disagrees with the EMA
// variant for non-uniform intervals; the stream loop uses EMA, this one is
// kept for comparison.
func (h *History) AverageFPS() float64 {
	if h.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < h.count; i++ {
		sum += h.times[i]
	}
	if sum <= 0 {
		return 0
	}
	return float64(h.count) / sum
}

// EMA computes the exponential moving average of the stored durations in
// chronological order (oldest first).
func (h *History) EMA(alpha float64) float64 {
	if h.count == 0 {
		return 0
	}
	start := 0
	if h.count == historySize {
		start = h.index
	}
	ema := h.times[start]
	for i := 1; i < h.count; i++ {
		v := h.times[(start+i)%historySize]
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// PID is the feedback controller that turns the scheduling error into a
// corrective sleep. Mutated once per loop iteration, never concurrently.
type PID struct {
	kp, ki, kd float64
	integral   float64
	lastError  float64
}

// NewPID returns a controller with the default gains.
func NewPID() PID {
	return PID{kp: gainP, ki: gainI, kd: gainD}
}

// Compute returns the sleep duration for one iteration given the target
// frame interval and the measured processing time of the frame just
// produced. The result is never negative.
func (p *PID) Compute(target, actual time.Duration) time.Duration {
	err := target.Seconds() - actual.Seconds()

	p.integral += err
	if p.integral > integralLimit {
		p.integral = integralLimit
	} else if p.integral < -integralLimit {
		p.integral = -integralLimit
	}

	derivative := err - p.lastError
	p.lastError = err

	output := p.kp*err + p.ki*p.integral + p.kd*derivative
	if output <= 0 {
		return 0
	}
	return time.Duration(output * float64(time.Second))
}

// Controller combines the history, the FPS cache, and the PID loop into the
// per-iteration pacing decisions of a stream worker. It is owned by exactly
// one goroutine.
type Controller struct {
	hist        History
	pid         PID
	target      time.Duration
	cachedFPS   float64
	lastRefresh time.Time

	now func() time.Time // stubbed in tests
}

// NewController returns a controller holding the given target frame
// interval. A non-positive target selects DefaultTargetInterval.
func NewController(target time.Duration) *Controller {
	if target <= 0 {
		target = DefaultTargetInterval
	}
	return &Controller{
		pid:       NewPID(),
		target:    target,
		cachedFPS: initialFPS,
		now:       time.Now,
	}
}

// Target reports the frame interval the controller holds.
func (c *Controller) Target() time.Duration { return c.target }

// Observe records the processing time of a successful frame and refreshes
// the FPS estimate if at least fpsRefreshInterval has passed since the last
// refresh. An average of zero keeps the previous cached value.
func (c *Controller) Observe(elapsed time.Duration) {
	c.hist.Push(elapsed.Seconds())

	now := c.now()
	if now.Sub(c.lastRefresh) < fpsRefreshInterval {
		return
	}
	if avg := c.hist.EMA(emaAlpha); avg > 0 {
		c.cachedFPS = 1 / avg
	}
	c.lastRefresh = now
}

// ObserveFailure records a failed iteration: the history is discarded as a
// discontinuity while the cached FPS stays untouched until fresh successful
// measurements accumulate.
func (c *Controller) ObserveFailure() {
	c.hist.Clear()
}

// FPS returns the cached frames-per-second estimate.
func (c *Controller) FPS() float64 { return c.cachedFPS }

// Sleep returns how long the worker should sleep before the next iteration.
// A frame that already took the full target interval gets no sleep at all.
func (c *Controller) Sleep(elapsed time.Duration) time.Duration {
	if elapsed >= c.target {
		return 0
	}
	return c.pid.Compute(c.target, elapsed)
}
