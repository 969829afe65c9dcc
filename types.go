package camcapture

import "time"

// FrameFormat identifies the pixel layout of a raw frame as declared by the
// capture device.
type FrameFormat int

const (
	// FormatMJPEG is a JPEG-compressed frame
	FormatMJPEG FrameFormat = iota
	// FormatYUYV is packed YUV 4:2:2 (two pixels per four bytes)
	FormatYUYV
	// FormatNV12 is a planar Y plane followed by interleaved UV at 4:2:0
	FormatNV12
	// FormatRGB is packed 24-bit RGB
	FormatRGB
	// FormatRGBA is packed 32-bit RGBA (the canonical layout)
	FormatRGBA
	// FormatGray is 8-bit luminance
	FormatGray
)

// String returns a human-readable string representation of the format
func (f FrameFormat) String() string {
	switch f {
	case FormatMJPEG:
		return "MJPEG"
	case FormatYUYV:
		return "YUYV"
	case FormatNV12:
		return "NV12"
	case FormatRGB:
		return "RGB"
	case FormatRGBA:
		return "RGBA"
	case FormatGray:
		return "GRAY"
	default:
		return "unknown"
	}
}

// SelectionPolicy tells a backend how to pick a concrete resolution and rate
// for a format request.
type SelectionPolicy int

const (
	// HighestResolution selects the largest frame size the device offers
	HighestResolution SelectionPolicy = iota
	// HighestFrameRate favors rate over size
	HighestFrameRate
)

// FormatCandidate is one entry of the negotiation order: a pixel format plus
// the policy for choosing resolution and rate.
type FormatCandidate struct {
	Format FrameFormat
	Policy SelectionPolicy
}

// DefaultFormatCandidates returns the negotiation order used when the caller
// does not supply one. Candidates are ordered by ascending conversion cost:
// RGBA only needs a channel reorder, RGB needs alpha expansion, YUYV needs a
// full decode.
func DefaultFormatCandidates() []FormatCandidate {
	return []FormatCandidate{
		{Format: FormatRGBA, Policy: HighestResolution},
		{Format: FormatRGB, Policy: HighestResolution},
		{Format: FormatYUYV, Policy: HighestResolution},
	}
}

// RawFrame is a frame as produced by the device, before conversion to the
// canonical layout.
type RawFrame struct {
	// Data is the raw frame payload
	Data []byte
	// Format is the pixel layout the device declared for Data
	Format FrameFormat
	// Width in pixels
	Width int
	// Height in pixels
	Height int
}

// Frame is a decoded frame in the canonical RGBA8 layout.
// len(Data) == Width*Height*4 always holds.
type Frame struct {
	// Seq is the monotonic sequence number within a stream (1-based)
	Seq uint64
	// Timestamp is when the frame was decoded
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Data contains Width*Height RGBA pixels
	Data []byte
	// TraceID is a unique identifier for tracing a frame through consumers
	TraceID string
}

// StreamConfig configures a capture stream.
type StreamConfig struct {
	// TargetFPS is the frame rate the pacing controller holds.
	// Zero selects the default of 62.5 Hz (a 16ms frame interval).
	TargetFPS float64
}

// StreamStats is a snapshot of stream telemetry counters.
type StreamStats struct {
	// FramesDelivered is the number of frames handed to the callback
	FramesDelivered uint64
	// CaptureErrors is the number of iterations where the device failed
	CaptureErrors uint64
	// DecodeErrors is the number of iterations where no decode path succeeded
	DecodeErrors uint64
	// BytesRead is the total raw bytes read from the device
	BytesRead uint64
	// FPS is the current smoothed frames-per-second estimate
	FPS float64
	// LastFrameAt is when the most recent frame was delivered
	LastFrameAt time.Time
}
