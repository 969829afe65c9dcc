// Package v4l2cam is the default capture backend, built on the pure-Go V4L2
// bindings of github.com/blackjack/webcam. It maps format candidates to V4L2
// fourcc codes and picks a concrete frame size per the request's policy.
package v4l2cam

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/blackjack/webcam"

	"github.com/e7canasta/camcapture"
)

// V4L2 fourcc codes for the formats the negotiator can request.
const (
	fourccRGBA  = webcam.PixelFormat(0x34324241) // 'AB24' V4L2_PIX_FMT_RGBA32
	fourccRGB   = webcam.PixelFormat(0x33424752) // 'RGB3' V4L2_PIX_FMT_RGB24
	fourccBGR   = webcam.PixelFormat(0x33524742) // 'BGR3' V4L2_PIX_FMT_BGR24
	fourccYUYV  = webcam.PixelFormat(0x56595559) // 'YUYV' V4L2_PIX_FMT_YUYV
	fourccMJPEG = webcam.PixelFormat(0x47504A4D) // 'MJPG' V4L2_PIX_FMT_MJPEG
	fourccNV12  = webcam.PixelFormat(0x3231564E) // 'NV12' V4L2_PIX_FMT_NV12
	fourccGray  = webcam.PixelFormat(0x59455247) // 'GREY' V4L2_PIX_FMT_GREY
)

// waitTimeoutSec is the poll interval while waiting for a frame. Capture has
// no overall deadline; the wait is retried until the device produces.
const waitTimeoutSec = 2

// Backend opens V4L2 devices.
type Backend struct{}

// New returns a V4L2 backend.
func New() *Backend { return &Backend{} }

// Open opens the device identified by id (numeric index or device path) with
// the requested format. The device's supported format list is consulted
// first so an unsupported request fails fast without touching the stream
// state.
func (b *Backend) Open(id string, req camcapture.FormatCandidate) (camcapture.Device, error) {
	fourcc, err := fourccFor(req.Format)
	if err != nil {
		return nil, err
	}

	path := camcapture.DevicePath(id)
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, fmt.Errorf("v4l2cam: opening %s: %w", path, err)
	}

	supported := cam.GetSupportedFormats()
	if _, ok := supported[fourcc]; !ok {
		cam.Close()
		return nil, fmt.Errorf("v4l2cam: %s does not support %s", path, req.Format)
	}

	width, height := pickSize(cam.GetSupportedFrameSizes(fourcc), req.Policy)
	if width == 0 || height == 0 {
		cam.Close()
		return nil, fmt.Errorf("v4l2cam: %s offers no frame sizes for %s", path, req.Format)
	}

	setFormat, setWidth, setHeight, err := cam.SetImageFormat(fourcc, width, height)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("v4l2cam: setting %s %dx%d on %s: %w", req.Format, width, height, path, err)
	}
	if setFormat != fourcc {
		cam.Close()
		return nil, fmt.Errorf("v4l2cam: %s substituted format %08x for %s", path, uint32(setFormat), req.Format)
	}

	slog.Debug("v4l2cam: device configured",
		"path", path,
		"format", req.Format.String(),
		"resolution", fmt.Sprintf("%dx%d", setWidth, setHeight),
	)

	return &device{
		cam:    cam,
		format: req.Format,
		width:  int(setWidth),
		height: int(setHeight),
	}, nil
}

// fourccFor maps a format family to its V4L2 fourcc.
func fourccFor(f camcapture.FrameFormat) (webcam.PixelFormat, error) {
	switch f {
	case camcapture.FormatRGBA:
		return fourccRGBA, nil
	case camcapture.FormatRGB:
		return fourccRGB, nil
	case camcapture.FormatYUYV:
		return fourccYUYV, nil
	case camcapture.FormatMJPEG:
		return fourccMJPEG, nil
	case camcapture.FormatNV12:
		return fourccNV12, nil
	case camcapture.FormatGray:
		return fourccGray, nil
	default:
		return 0, fmt.Errorf("v4l2cam: no fourcc for format %s", f)
	}
}

// pickSize selects a discrete frame size per policy. Highest resolution
// takes the largest area; highest frame rate takes the smallest, since V4L2
// devices reach their fastest rates at their smallest sizes.
func pickSize(sizes []webcam.FrameSize, policy camcapture.SelectionPolicy) (w, h uint32) {
	var bestArea uint64
	first := true
	for _, s := range sizes {
		area := uint64(s.MaxWidth) * uint64(s.MaxHeight)
		better := area > bestArea
		if policy == camcapture.HighestFrameRate {
			better = first || area < bestArea
		}
		if better {
			bestArea = area
			w, h = s.MaxWidth, s.MaxHeight
		}
		first = false
	}
	return w, h
}

// device is an open V4L2 capture device. Exclusively owned by its user; the
// streaming guard only makes StartStream/StopStream repeat-safe.
type device struct {
	cam    *webcam.Webcam
	format camcapture.FrameFormat
	width  int
	height int

	mu        sync.Mutex
	streaming bool
	closed    bool
}

func (d *device) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.streaming {
		return nil
	}
	if err := d.cam.StartStreaming(); err != nil {
		return fmt.Errorf("v4l2cam: starting stream: %w", err)
	}
	d.streaming = true
	return nil
}

func (d *device) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.streaming {
		return nil
	}
	d.streaming = false
	if err := d.cam.StopStreaming(); err != nil {
		return fmt.Errorf("v4l2cam: stopping stream: %w", err)
	}
	return nil
}

// Capture blocks until the device produces a frame. The V4L2 wait is polled
// in short slices, but there is no overall deadline: a silent device blocks
// its owner.
func (d *device) Capture() (camcapture.RawFrame, error) {
	for {
		err := d.cam.WaitForFrame(waitTimeoutSec)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return camcapture.RawFrame{}, fmt.Errorf("v4l2cam: waiting for frame: %w", err)
		}

		buf, err := d.cam.ReadFrame()
		if err != nil {
			return camcapture.RawFrame{}, fmt.Errorf("v4l2cam: reading frame: %w", err)
		}
		if len(buf) == 0 {
			continue
		}

		// The driver reuses its mmap buffers; hand out a copy.
		data := make([]byte, len(buf))
		copy(data, buf)

		return camcapture.RawFrame{
			Data:   data,
			Format: d.format,
			Width:  d.width,
			Height: d.height,
		}, nil
	}
}

func (d *device) Resolution() (int, int) {
	return d.width, d.height
}

func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.cam.Close(); err != nil {
		return fmt.Errorf("v4l2cam: closing device: %w", err)
	}
	return nil
}
