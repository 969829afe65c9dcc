// Package gstcam is the GStreamer capture backend, for setups where the
// V4L2 layer is unavailable or another element graph sits in front of the
// camera. Each open builds a v4l2src → capsfilter → appsink pipeline that
// delivers frames in the requested native format; conversion to the
// canonical layout stays with the decoder.
package gstcam

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/camcapture"
)

// startTimeout bounds how long StartStream waits for the pipeline to reach
// PLAYING (or to report an error) before giving up on the candidate.
const startTimeout = 5 * time.Second

// Backend opens capture devices through GStreamer.
type Backend struct{}

// New returns a GStreamer backend.
func New() *Backend { return &Backend{} }

// Open builds the capture pipeline for the requested format. The pipeline is
// created but left in NULL state; StartStream moves it to PLAYING, which is
// where unsupported formats surface as negotiation errors.
func (b *Backend) Open(id string, req camcapture.FormatCandidate) (camcapture.Device, error) {
	caps, err := capsFor(req.Format)
	if err != nil {
		return nil, err
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("gstcam: creating pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("gstcam: creating v4l2src: %w", err)
	}
	src.SetProperty("device", camcapture.DevicePath(id))

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("gstcam: creating capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(caps))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("gstcam: creating appsink: %w", err)
	}
	sink.SetProperty("sync", false)    // real-time, no clock sync
	sink.SetProperty("max-buffers", 1) // keep only the latest frame
	sink.SetProperty("drop", true)

	pipeline.AddMany(src, capsfilter, sink.Element)
	if err := gst.ElementLinkMany(src, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("gstcam: linking pipeline: %w", err)
	}

	slog.Debug("gstcam: pipeline created",
		"device", camcapture.DevicePath(id),
		"caps", caps,
	)

	return &device{
		pipeline: pipeline,
		sink:     sink,
		format:   req.Format,
	}, nil
}

// capsFor maps a format family to its GStreamer caps string.
func capsFor(f camcapture.FrameFormat) (string, error) {
	switch f {
	case camcapture.FormatRGBA:
		return "video/x-raw,format=RGBA", nil
	case camcapture.FormatRGB:
		return "video/x-raw,format=RGB", nil
	case camcapture.FormatYUYV:
		return "video/x-raw,format=YUY2", nil
	case camcapture.FormatNV12:
		return "video/x-raw,format=NV12", nil
	case camcapture.FormatGray:
		return "video/x-raw,format=GRAY8", nil
	case camcapture.FormatMJPEG:
		return "image/jpeg", nil
	default:
		return "", fmt.Errorf("gstcam: no caps for format %s", f)
	}
}

// device is an open GStreamer capture pipeline.
type device struct {
	pipeline *gst.Pipeline
	sink     *app.Sink
	format   camcapture.FrameFormat

	mu      sync.Mutex
	playing bool
	closed  bool
	width   int
	height  int
}

// StartStream moves the pipeline to PLAYING and drains the bus until the
// state change completes or an error arrives. Negotiation failures for the
// requested caps show up here, which is what lets the negotiator fall
// through to the next candidate.
func (d *device) StartStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing {
		return nil
	}

	if err := d.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("gstcam: starting pipeline: %w", err)
	}

	bus := d.pipeline.GetPipelineBus()
	deadline := time.Now().Add(startTimeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			category := classifyError(gerr)
			d.pipeline.SetState(gst.StateNull)
			return fmt.Errorf("gstcam: pipeline error [%s]: %s", category, gerr.Error())
		case gst.MessageEOS:
			d.pipeline.SetState(gst.StateNull)
			return fmt.Errorf("gstcam: end of stream before playback")
		case gst.MessageStateChanged:
			if msg.Source() != d.pipeline.GetName() {
				continue
			}
			if _, newState := msg.ParseStateChanged(); newState == gst.StatePlaying {
				d.playing = true
				d.cacheResolution()
				slog.Debug("gstcam: pipeline playing",
					"resolution", fmt.Sprintf("%dx%d", d.width, d.height),
				)
				return nil
			}
		}
	}

	d.pipeline.SetState(gst.StateNull)
	return fmt.Errorf("gstcam: pipeline did not reach PLAYING within %s", startTimeout)
}

// cacheResolution reads the negotiated frame size from the appsink pad. The
// caps may lag the state change slightly, so the read is retried briefly.
func (d *device) cacheResolution() {
	pad := d.sink.Element.GetStaticPad("sink")
	if pad == nil {
		return
	}
	for i := 0; i < 20; i++ {
		caps := pad.GetCurrentCaps()
		if caps != nil && caps.GetSize() > 0 {
			structure := caps.GetStructureAt(0)
			if w, err := structure.GetValue("width"); err == nil {
				if h, err := structure.GetValue("height"); err == nil {
					d.width, _ = w.(int)
					d.height, _ = h.(int)
					return
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	slog.Warn("gstcam: negotiated caps not available, resolution unknown")
}

func (d *device) StopStream() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		return nil
	}
	d.playing = false
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gstcam: stopping pipeline: %w", err)
	}
	return nil
}

// Capture pulls the next sample from the appsink. PullSample blocks until a
// frame arrives; it returns nil once the pipeline is flushed or stopped.
func (d *device) Capture() (camcapture.RawFrame, error) {
	sample := d.sink.PullSample()
	if sample == nil {
		return camcapture.RawFrame{}, fmt.Errorf("gstcam: no sample (pipeline stopped or end of stream)")
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return camcapture.RawFrame{}, fmt.Errorf("gstcam: sample without buffer")
	}

	mapInfo := buffer.Map(gst.MapRead)
	src := mapInfo.Bytes()
	if len(src) == 0 {
		buffer.Unmap()
		return camcapture.RawFrame{}, fmt.Errorf("gstcam: empty buffer")
	}

	// GStreamer reuses the buffer after Unmap; hand out a copy.
	data := make([]byte, len(src))
	copy(data, src)
	buffer.Unmap()

	return camcapture.RawFrame{
		Data:   data,
		Format: d.format,
		Width:  d.width,
		Height: d.height,
	}, nil
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
	d.playing = false
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gstcam: releasing pipeline: %w", err)
	}
	return nil
}
