package gstcam

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer device errors for logging and messages.
type ErrorCategory int

const (
	// ErrCategoryNotFound indicates the device node does not exist
	ErrCategoryNotFound ErrorCategory = iota
	// ErrCategoryBusy indicates another process holds the device
	ErrCategoryBusy
	// ErrCategoryFormat indicates caps negotiation failed for the
	// requested pixel format
	ErrCategoryFormat
	// ErrCategoryUnknown indicates an unclassified error
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNotFound:
		return "not-found"
	case ErrCategoryBusy:
		return "busy"
	case ErrCategoryFormat:
		return "format"
	default:
		return "unknown"
	}
}

// classifyError categorizes a GStreamer error by message heuristics.
// go-gst's GError does not expose the error domain, so string matching is
// the only option.
func classifyError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error() + " " + gerr.DebugString())
}

func classifyMessage(msg string) ErrorCategory {
	combined := strings.ToLower(msg)

	switch {
	case containsAny(combined, "no such file", "not found", "cannot identify device", "no such device"):
		return ErrCategoryNotFound
	case containsAny(combined, "busy", "resource unavailable", "in use"):
		return ErrCategoryBusy
	case containsAny(combined, "not-negotiated", "not negotiated", "caps", "format", "unsupported"):
		return ErrCategoryFormat
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
