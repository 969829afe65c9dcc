package camcapture

// CaptureFrame grabs and decodes a single frame from an open device. It is
// the one-shot counterpart of StartStream; the two must not be used on the
// same device at the same time, since whoever calls owns the device for the
// duration of the call.
func CaptureFrame(dev Device) (*Frame, error) {
	frame, _, err := captureDecode(dev)
	return frame, err
}

// captureDecode is one capture+decode step, shared by the one-shot API and
// the stream worker. It reports the raw byte count for telemetry.
func captureDecode(dev Device) (*Frame, int, error) {
	raw, err := dev.Capture()
	if err != nil {
		return nil, 0, &FrameCaptureError{Err: err}
	}

	frame, err := Decode(raw)
	if err != nil {
		return nil, 0, err
	}
	return frame, len(raw.Data), nil
}
