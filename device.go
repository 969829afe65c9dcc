package camcapture

import "strconv"

// Backend opens capture devices. The v4l2cam and gstcam subpackages provide
// implementations; callers can bring their own for other capture stacks.
//
// Open must either return a usable Device or clean up after itself: a failed
// attempt must not keep any driver resource. Open is allowed to panic (some
// driver layers do on probe); the negotiator contains that.
type Backend interface {
	Open(id string, req FormatCandidate) (Device, error)
}

// Device is an open capture source.
//
// A Device is exclusively owned by whoever uses it: the caller for one-shot
// capture, the stream worker for streaming. The one-shot and streaming modes
// are mutually exclusive on a single handle.
//
// Implementations must guarantee:
//   - StartStream/StopStream are idempotent on a best-effort basis
//     (repeated calls must not crash)
//   - Capture blocks until a frame is available; there is no per-call
//     timeout, a device that never produces blocks its owner
//   - Close releases the underlying driver resource
type Device interface {
	// StartStream begins frame production.
	StartStream() error

	// StopStream halts frame production.
	StopStream() error

	// Capture reads the next raw frame from the device.
	Capture() (RawFrame, error)

	// Resolution reports the negotiated frame size.
	Resolution() (width, height int)

	// Close releases the device.
	Close() error
}

// DevicePath maps a device identifier to a V4L2 device path. A numeric
// identifier N becomes /dev/videoN; anything else is taken as a path already.
func DevicePath(id string) string {
	if _, err := strconv.Atoi(id); err == nil {
		return "/dev/video" + id
	}
	return id
}
