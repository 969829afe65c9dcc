package camcapture

import (
	"fmt"
	"log/slog"
)

// NegotiateAndOpen opens a capture device by trying format candidates in
// strict priority order. For each candidate it asks the backend to open the
// device and immediately starts the stream; the first attempt where both
// succeed wins. A failed start closes the device before the next attempt so
// no driver resource leaks.
//
// Device layers are allowed to misbehave: a panic raised inside Open is
// contained and treated exactly like a returned error, and negotiation
// continues with the next candidate.
//
// If candidates is nil, DefaultFormatCandidates is used. When every
// candidate fails the error is a *NoSupportedFormatError carrying the last
// underlying error.
func NegotiateAndOpen(backend Backend, id string, candidates []FormatCandidate) (Device, error) {
	if id == "" {
		return nil, fmt.Errorf("camcapture: device identifier is required")
	}
	if candidates == nil {
		candidates = DefaultFormatCandidates()
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("camcapture: at least one format candidate is required")
	}

	var lastErr error
	for _, cand := range candidates {
		dev, err := openContained(backend, id, cand)
		if err != nil {
			lastErr = &DeviceOpenError{Format: cand.Format, Err: err}
			slog.Warn("camcapture: format candidate failed to open",
				"device", id,
				"format", cand.Format.String(),
				"error", err,
			)
			continue
		}

		if err := dev.StartStream(); err != nil {
			// A device that opened but cannot stream still holds the
			// driver resource; release it before the next attempt.
			if cerr := dev.Close(); cerr != nil {
				slog.Warn("camcapture: closing unstartable device",
					"device", id,
					"error", cerr,
				)
			}
			lastErr = &DeviceOpenError{Format: cand.Format, Err: err}
			slog.Warn("camcapture: format candidate failed to start",
				"device", id,
				"format", cand.Format.String(),
				"error", err,
			)
			continue
		}

		w, h := dev.Resolution()
		slog.Info("camcapture: device opened",
			"device", id,
			"format", cand.Format.String(),
			"resolution", fmt.Sprintf("%dx%d", w, h),
		)
		return dev, nil
	}

	return nil, &NoSupportedFormatError{Attempts: len(candidates), LastErr: lastErr}
}

// openContained calls backend.Open inside a fault boundary: a panicking
// driver probe becomes an ordinary error so negotiation can continue.
func openContained(backend Backend, id string, cand FormatCandidate) (dev Device, err error) {
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("camcapture: device layer fault during open: %v", r)
		}
	}()
	return backend.Open(id, cand)
}
