package camcapture

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/camcapture/internal/pacing"
)

// FrameCallback receives the result of one stream iteration: either a
// decoded frame together with the current FPS estimate, or the error of a
// failed iteration. It runs synchronously on the stream worker, so it sits
// on the pacing-critical path and must not block for long; hand off to a
// queue if caller-owned state has to be reached.
type FrameCallback func(frame *Frame, fps float64, err error)

// Stream lifecycle phases. A stopped stream cannot be restarted; create a
// new one instead.
const (
	phaseRunning int32 = iota + 1
	phaseStopping
	phaseStopped
)

// streamState is the part of a stream shared between the worker and the
// caller's handle. It is split from StreamHandle so the handle can be
// finalized (drop implies abort) while the worker is still running.
//
// The abort flag is the only piece of state both sides touch: the caller
// stores, the worker loads once per iteration. sync/atomic gives the
// store/load pair release/acquire visibility, so anything the caller wrote
// before aborting is visible to the worker once it observes the flag.
type streamState struct {
	abort atomic.Bool
	phase atomic.Int32
	done  chan struct{}

	framesDelivered atomic.Uint64
	captureErrors   atomic.Uint64
	decodeErrors    atomic.Uint64
	bytesRead       atomic.Uint64
	fpsBits         atomic.Uint64
	lastFrameNano   atomic.Int64
}

// StreamHandle controls a running capture stream. It is the caller's only
// connection to the worker: abort it, wait for it, or read its telemetry.
//
// Dropping the last reference to a handle without calling Abort requests
// cancellation just the same; the worker then stops within one iteration and
// releases the device.
type StreamHandle struct {
	s *streamState
}

// StartStream launches the background capture loop on dev and returns its
// handle. The worker takes exclusive ownership of dev for the stream's
// lifetime and stops and closes it exactly once on every exit path, even if
// the callback panics.
//
// dev must already be streaming (as returned by NegotiateAndOpen). Each
// iteration captures a raw frame, decodes it to RGBA8, updates the pacing
// controller, invokes cb synchronously, then sleeps per the PID output.
// Capture and decode errors are delivered to cb and the loop continues; only
// abort stops it.
func StartStream(dev Device, cfg StreamConfig, cb FrameCallback) (*StreamHandle, error) {
	if dev == nil {
		return nil, fmt.Errorf("camcapture: device is required")
	}
	if cb == nil {
		return nil, fmt.Errorf("camcapture: frame callback is required")
	}

	target := pacing.DefaultTargetInterval
	if cfg.TargetFPS != 0 {
		if cfg.TargetFPS < 0.1 || cfg.TargetFPS > 240 {
			return nil, fmt.Errorf("camcapture: invalid target FPS %.2f (must be 0.1-240)", cfg.TargetFPS)
		}
		target = time.Duration(float64(time.Second) / cfg.TargetFPS)
	}

	s := &streamState{done: make(chan struct{})}
	s.phase.Store(phaseRunning)

	h := &StreamHandle{s: s}
	// The worker holds streamState, not the handle, so collecting an
	// unreferenced handle can still signal the abort flag.
	runtime.SetFinalizer(h, func(h *StreamHandle) { h.s.abort.Store(true) })

	w, hgt := dev.Resolution()
	slog.Info("camcapture: stream started",
		"resolution", fmt.Sprintf("%dx%d", w, hgt),
		"target_interval", target,
	)

	go runStream(dev, s, target, cb)

	return h, nil
}

// runStream is the worker loop. It owns dev, the pacing controller, and the
// frame-time history; nothing of that crosses the goroutine boundary.
func runStream(dev Device, s *streamState, target time.Duration, cb FrameCallback) {
	defer close(s.done)
	defer s.phase.Store(phaseStopped)
	defer releaseDevice(dev)

	ctl := pacing.NewController(target)
	s.fpsBits.Store(math.Float64bits(ctl.FPS()))
	var seq uint64

	for {
		start := time.Now()

		frame, nread, err := captureDecode(dev)
		elapsed := time.Since(start)

		if err != nil {
			// A failed iteration breaks the timing continuity; the
			// cached FPS survives until fresh measurements accumulate.
			ctl.ObserveFailure()
			switch err.(type) {
			case *FrameDecodeError:
				s.decodeErrors.Add(1)
			default:
				s.captureErrors.Add(1)
			}
			s.fpsBits.Store(math.Float64bits(ctl.FPS()))
			cb(nil, ctl.FPS(), err)
		} else {
			ctl.Observe(elapsed)

			seq++
			frame.Seq = seq
			frame.Timestamp = time.Now()
			frame.TraceID = uuid.New().String()

			s.framesDelivered.Add(1)
			s.bytesRead.Add(uint64(nread))
			s.lastFrameNano.Store(frame.Timestamp.UnixNano())
			s.fpsBits.Store(math.Float64bits(ctl.FPS()))

			cb(frame, ctl.FPS(), nil)
		}

		// Cancellation checkpoint: once per iteration, after the callback
		// and before sleeping. A capture in flight is never interrupted.
		if s.abort.Load() {
			s.phase.Store(phaseStopping)
			slog.Info("camcapture: stream aborting",
				"frames_delivered", s.framesDelivered.Load(),
				"capture_errors", s.captureErrors.Load(),
				"decode_errors", s.decodeErrors.Load(),
			)
			return
		}

		if d := ctl.Sleep(elapsed); d > 0 {
			time.Sleep(d)
		}
	}
}

// releaseDevice stops and closes dev on worker exit. Stop errors are logged,
// not propagated: by the time the worker exits there is nobody to hand them
// to, and StopStream is best-effort idempotent anyway.
func releaseDevice(dev Device) {
	if err := dev.StopStream(); err != nil {
		slog.Warn("camcapture: stopping device stream", "error", err)
	}
	if err := dev.Close(); err != nil {
		slog.Warn("camcapture: closing device", "error", err)
	}
	slog.Debug("camcapture: device released")
}

// Abort requests cooperative cancellation. The worker observes the flag at
// its per-iteration checkpoint and stops within one capture+callback cycle.
// Safe to call multiple times and after the stream has stopped.
func (h *StreamHandle) Abort() {
	h.s.abort.Store(true)
}

// Aborted reports whether cancellation has been requested.
func (h *StreamHandle) Aborted() bool {
	return h.s.abort.Load()
}

// Done returns a channel closed once the worker has fully terminated and
// released the device.
func (h *StreamHandle) Done() <-chan struct{} {
	return h.s.done
}

// Wait blocks until the worker has terminated or the timeout elapses,
// reporting whether it actually terminated in time. A non-positive timeout
// polls without blocking.
func (h *StreamHandle) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-h.s.done:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-h.s.done:
		return true
	case <-timer.C:
		return false
	}
}

// Err reports the termination reason: ErrStreamAborted once the stream has
// stopped, nil while it is still running. Cancellation is the only way a
// stream ends, so no other terminal error exists.
func (h *StreamHandle) Err() error {
	select {
	case <-h.s.done:
		return ErrStreamAborted
	default:
		return nil
	}
}

// Stats returns a telemetry snapshot. Safe to call from any goroutine; the
// counters are updated atomically by the worker.
func (h *StreamHandle) Stats() StreamStats {
	st := StreamStats{
		FramesDelivered: h.s.framesDelivered.Load(),
		CaptureErrors:   h.s.captureErrors.Load(),
		DecodeErrors:    h.s.decodeErrors.Load(),
		BytesRead:       h.s.bytesRead.Load(),
		FPS:             math.Float64frombits(h.s.fpsBits.Load()),
	}
	if nano := h.s.lastFrameNano.Load(); nano != 0 {
		st.LastFrameAt = time.Unix(0, nano)
	}
	return st
}
