// Package camcapture provides paced webcam frame acquisition with format
// negotiation and conversion to a single canonical RGBA8 layout.
//
// The package owns the hard part of talking to capture hardware: it opens a
// device by trying pixel formats in order of conversion cost, contains the
// faults unreliable driver layers raise, converts every frame to RGBA8, and
// holds a steady frame rate with a PID-controlled pacing loop running on a
// background worker.
//
// # Quick Start
//
//	backend := v4l2cam.New()
//	dev, err := camcapture.NegotiateAndOpen(backend, "0", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handle, err := camcapture.StartStream(dev, camcapture.StreamConfig{TargetFPS: 60},
//	    func(frame *camcapture.Frame, fps float64, err error) {
//	        if err != nil {
//	            // capture/decode errors are per-iteration; the stream continues
//	            return
//	        }
//	        // frame.Data holds frame.Width × frame.Height RGBA pixels
//	    })
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... later
//	handle.Abort()
//	handle.Wait(3 * time.Second)
//
// The worker owns the device from StartStream on and releases it exactly
// once when the loop ends, whatever the exit path.
//
// # Format Negotiation
//
// NegotiateAndOpen walks an ordered candidate list (default: RGBA, RGB,
// YUYV) and returns the first device that both opens and starts. Each
// attempt is a fault boundary: a panicking driver probe is converted into an
// ordinary error and negotiation moves on. When everything fails the caller
// gets a *NoSupportedFormatError with the last underlying cause; there is no
// automatic retry.
//
// # Pacing
//
// The stream loop tracks the last 60 per-frame processing times in a ring
// buffer and publishes a smoothed FPS estimate (EMA, refreshed at most every
// 200ms). A PID controller turns the gap between the target frame interval
// and the measured processing time into the inter-frame sleep, so delivery
// converges on the target rate instead of oscillating around it.
//
// # Cancellation
//
// Cancellation is cooperative. Abort sets an atomic flag the worker checks
// once per iteration, after the callback and before sleeping; a capture in
// flight is never interrupted. Dropping the handle without calling Abort has
// the identical effect. Wait offers a bounded wait for full termination.
//
// # Backends
//
// Two Backend implementations ship as subpackages and are selectable in the
// camcap CLI: v4l2cam (pure-Go V4L2, the default) and gstcam (a GStreamer
// v4l2src pipeline). Any type satisfying Backend/Device plugs in the same
// way.
//
// # Limitations
//
//   - Single capture source per stream; no multi-device synchronization
//   - No audio
//   - No per-capture timeout: a device that blocks indefinitely blocks its
//     stream loop
//   - A stopped stream cannot be restarted; create a new one
package camcapture
