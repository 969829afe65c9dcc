package pacing

import (
	"math"
	"testing"
	"time"
)

func TestHistoryPushAndCount(t *testing.T) {
	var h History
	if h.Count() != 0 {
		t.Fatalf("zero value Count = %d, want 0", h.Count())
	}
	for i := 0; i < 30; i++ {
		h.Push(0.016)
	}
	if h.Count() != 30 {
		t.Fatalf("Count after 30 pushes = %d, want 30", h.Count())
	}
	for i := 0; i < 100; i++ {
		h.Push(0.016)
	}
	if h.Count() != historySize {
		t.Fatalf("Count after overflow = %d, want %d", h.Count(), historySize)
	}
}

func TestHistoryClear(t *testing.T) {
	var h History
	h.Push(0.016)
	h.Push(0.016)
	h.Clear()
	if h.Count() != 0 {
		t.Fatalf("Count after Clear = %d, want 0", h.Count())
	}
	if h.AverageFPS() != 0 {
		t.Fatalf("AverageFPS after Clear = %v, want 0", h.AverageFPS())
	}
	if h.EMA(emaAlpha) != 0 {
		t.Fatalf("EMA after Clear = %v, want 0", h.EMA(emaAlpha))
	}
}

func TestHistoryAverageFPS(t *testing.T) {
	var h History
	for i := 0; i < 10; i++ {
		h.Push(0.020) // uniform 50Hz
	}
	got := h.AverageFPS()
	if math.Abs(got-50) > 1e-9 {
		t.Fatalf("AverageFPS = %v, want 50", got)
	}
}

func TestHistoryEMAOrder(t *testing.T) {
	// EMA must weight recent samples more, so the fold has to run oldest
	// first.
	var h History
	h.Push(0.010)
	h.Push(0.020)
	want := 0.3*0.020 + 0.7*0.010
	if got := h.EMA(0.3); math.Abs(got-want) > 1e-12 {
		t.Fatalf("EMA = %v, want %v", got, want)
	}
}

func TestHistoryEMAAfterWrap(t *testing.T) {
	// Fill the ring, then push one more sample: the overwritten slot must not
	// be treated as the newest value.
	var h History
	for i := 0; i < historySize; i++ {
		h.Push(0.010)
	}
	h.Push(0.020)

	// Chronologically: 59 samples of 10ms, then one of 20ms.
	want := 0.3*0.020 + 0.7*0.010
	if got := h.EMA(0.3); math.Abs(got-want) > 1e-12 {
		t.Fatalf("EMA after wrap = %v, want %v", got, want)
	}
}

func TestPIDIntegralClamp(t *testing.T) {
	p := NewPID()
	// Constant positive error accumulates until the windup clamp engages.
	for i := 0; i < 1000; i++ {
		p.Compute(16*time.Millisecond, 0)
	}
	if p.integral != integralLimit {
		t.Fatalf("integral = %v, want clamp at %v", p.integral, integralLimit)
	}

	p = NewPID()
	for i := 0; i < 1000; i++ {
		p.Compute(0, 16*time.Millisecond)
	}
	if p.integral != -integralLimit {
		t.Fatalf("integral = %v, want clamp at %v", p.integral, -integralLimit)
	}
}

func TestPIDComputeNeverNegative(t *testing.T) {
	p := NewPID()
	for i := 0; i < 100; i++ {
		// Processing wildly over budget would naively yield a negative sleep.
		if d := p.Compute(time.Millisecond, 100*time.Millisecond); d < 0 {
			t.Fatalf("Compute returned negative duration %v", d)
		}
	}
}

func TestPIDComputeUnderBudget(t *testing.T) {
	p := NewPID()
	d := p.Compute(16*time.Millisecond, 6*time.Millisecond)
	// err=10ms: 0.7*err + 0.15*err + 0.1*err = 9.5ms on the first iteration.
	if d < 9*time.Millisecond || d > 10*time.Millisecond {
		t.Fatalf("Compute = %v, want ~9.5ms", d)
	}
}

func TestNewControllerDefaults(t *testing.T) {
	for _, target := range []time.Duration{0, -5 * time.Millisecond} {
		c := NewController(target)
		if c.Target() != DefaultTargetInterval {
			t.Fatalf("Target() with input %v = %v, want %v", target, c.Target(), DefaultTargetInterval)
		}
	}
	c := NewController(20 * time.Millisecond)
	if c.Target() != 20*time.Millisecond {
		t.Fatalf("Target() = %v, want 20ms", c.Target())
	}
	if c.FPS() != initialFPS {
		t.Fatalf("initial FPS = %v, want %v", c.FPS(), initialFPS)
	}
}

func TestControllerObserveRefreshesFPS(t *testing.T) {
	c := NewController(10 * time.Millisecond)
	cur := time.Unix(1000, 0)
	c.now = func() time.Time { return cur }

	// First observation is past the refresh interval relative to the zero
	// lastRefresh, so the estimate updates immediately.
	c.Observe(10 * time.Millisecond)
	if got := c.FPS(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("FPS after first observation = %v, want 100", got)
	}

	// Within the refresh window the cached value holds even as slower frames
	// arrive.
	c.Observe(20 * time.Millisecond)
	if got := c.FPS(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("FPS inside refresh window = %v, want cached 100", got)
	}

	// Past the window the estimate follows the new samples.
	cur = cur.Add(250 * time.Millisecond)
	c.Observe(20 * time.Millisecond)
	got := c.FPS()
	if got >= 100 || got <= 50 {
		t.Fatalf("FPS after refresh = %v, want between 50 and 100", got)
	}
}

func TestControllerObserveFailure(t *testing.T) {
	c := NewController(10 * time.Millisecond)
	cur := time.Unix(1000, 0)
	c.now = func() time.Time { return cur }

	c.Observe(10 * time.Millisecond)
	if got := c.FPS(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("FPS = %v, want 100", got)
	}

	c.ObserveFailure()
	if c.hist.Count() != 0 {
		t.Fatalf("history count after failure = %d, want 0", c.hist.Count())
	}
	// The cached estimate survives the discontinuity.
	if got := c.FPS(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("FPS after failure = %v, want cached 100", got)
	}

	// An empty history must not zero the estimate on the next refresh either.
	cur = cur.Add(time.Second)
	c.ObserveFailure()
	if got := c.FPS(); math.Abs(got-100) > 1e-9 {
		t.Fatalf("FPS after late failure = %v, want cached 100", got)
	}
}

func TestControllerSleep(t *testing.T) {
	c := NewController(10 * time.Millisecond)
	if d := c.Sleep(10 * time.Millisecond); d != 0 {
		t.Fatalf("Sleep at exactly target = %v, want 0", d)
	}
	if d := c.Sleep(25 * time.Millisecond); d != 0 {
		t.Fatalf("Sleep over target = %v, want 0", d)
	}
	if d := c.Sleep(2 * time.Millisecond); d <= 0 {
		t.Fatalf("Sleep under target = %v, want > 0", d)
	}
}
