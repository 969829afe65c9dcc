package camcapture

import (
	"errors"
	"fmt"

	"github.com/e7canasta/camcapture/internal/convert"
)

// ConversionFault is returned when a codec routine raised an abnormal fault
// (a panic) that was contained at the decode boundary and converted into an
// ordinary error value. It is an alias of the internal fault type so that
// errors.As works across the package boundary.
type ConversionFault = convert.Fault

// DeviceOpenError reports that a single format candidate failed to open or
// start. The negotiator collects these and moves on to the next candidate.
type DeviceOpenError struct {
	Format FrameFormat
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("camcapture: opening device with format %s: %v", e.Format, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// NoSupportedFormatError reports that every format candidate was exhausted.
// LastErr carries the underlying error of the final attempt.
type NoSupportedFormatError struct {
	Attempts int
	LastErr  error
}

func (e *NoSupportedFormatError) Error() string {
	return fmt.Sprintf("camcapture: no supported format after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *NoSupportedFormatError) Unwrap() error { return e.LastErr }

// FrameCaptureError reports that the device failed to produce a frame for
// one iteration. Inside a stream this is recoverable: the loop continues.
type FrameCaptureError struct {
	Err error
}

func (e *FrameCaptureError) Error() string {
	return fmt.Sprintf("camcapture: capturing frame: %v", e.Err)
}

func (e *FrameCaptureError) Unwrap() error { return e.Err }

// FrameDecodeError reports that no decode path succeeded for a raw frame.
type FrameDecodeError struct {
	Format FrameFormat
	Err    error
}

func (e *FrameDecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("camcapture: no decode path for format %s", e.Format)
	}
	return fmt.Sprintf("camcapture: decoding %s frame: %v", e.Format, e.Err)
}

func (e *FrameDecodeError) Unwrap() error { return e.Err }

// ErrStreamAborted is the documented termination reason of a stream whose
// handle was aborted or dropped. It marks cooperative cancellation, not a
// failure.
var ErrStreamAborted = errors.New("camcapture: stream aborted")
