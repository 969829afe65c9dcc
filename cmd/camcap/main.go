// Command camcap captures frames from a local camera and optionally saves
// them to disk, printing live stream statistics. It doubles as a smoke test
// for format negotiation and pacing.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/e7canasta/camcapture"
	"github.com/e7canasta/camcapture/gstcam"
	"github.com/e7canasta/camcapture/v4l2cam"
)

const version = "v0.1.0"

func main() {
	deviceID := flag.String("device", "0", "Device identifier: numeric index or /dev/videoN path")
	backendName := flag.String("backend", "v4l2", "Capture backend: v4l2, gstreamer")
	fps := flag.Float64("fps", 0, "Target FPS (0 = default 62.5)")
	outputDir := flag.String("output", "", "Directory to save captured frames (optional)")
	outputFormat := flag.String("format", "png", "Output format: png, jpeg")
	jpegQuality := flag.Int("jpeg-quality", 90, "JPEG quality (1-100, only for jpeg format)")
	maxFrames := flag.Int("max-frames", 0, "Maximum frames to capture (0 = unlimited)")
	statsInterval := flag.Int("stats-interval", 10, "Seconds between stats reports")
	oneShot := flag.Bool("oneshot", false, "Capture a single frame and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("camcap %s\n", version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if *outputFormat != "png" && *outputFormat != "jpeg" {
		log.Fatalf("Invalid output format: %s (must be png or jpeg)", *outputFormat)
	}
	if *outputDir != "" {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}

	var backend camcapture.Backend
	switch *backendName {
	case "v4l2":
		backend = v4l2cam.New()
	case "gstreamer":
		backend = gstcam.New()
	default:
		log.Fatalf("Invalid backend: %s (must be v4l2 or gstreamer)", *backendName)
	}

	dev, err := camcapture.NegotiateAndOpen(backend, *deviceID, nil)
	if err != nil {
		log.Fatalf("Failed to open device %s: %v", *deviceID, err)
	}

	if *oneShot {
		runOneShot(dev, *outputDir, *outputFormat, *jpegQuality)
		return
	}

	var saved atomic.Uint64
	handle, err := camcapture.StartStream(dev, camcapture.StreamConfig{TargetFPS: *fps},
		func(frame *camcapture.Frame, fps float64, err error) {
			if err != nil {
				slog.Warn("frame error", "error", err)
				return
			}
			if *outputDir != "" {
				n := saved.Add(1)
				name := filepath.Join(*outputDir, fmt.Sprintf("frame_%06d.%s", n, *outputFormat))
				if err := saveFrame(name, frame, *outputFormat, *jpegQuality); err != nil {
					slog.Error("saving frame", "file", name, "error", err)
				}
			}
		})
	if err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
	defer ticker.Stop()
	limitTicker := time.NewTicker(250 * time.Millisecond)
	defer limitTicker.Stop()

	fmt.Printf("camcap %s, device %s via %s backend (Ctrl-C to stop)\n", version, *deviceID, *backendName)

	for {
		select {
		case <-ticker.C:
			stats := handle.Stats()
			fmt.Printf("frames=%d fps=%.1f capture_errors=%d decode_errors=%d bytes=%d\n",
				stats.FramesDelivered, stats.FPS, stats.CaptureErrors, stats.DecodeErrors, stats.BytesRead)
		case <-limitTicker.C:
			if *maxFrames > 0 && handle.Stats().FramesDelivered >= uint64(*maxFrames) {
				slog.Info("max frames reached", "frames", *maxFrames)
				shutdown(handle)
				return
			}
		case sig := <-sigCh:
			slog.Info("signal received, stopping", "signal", sig)
			shutdown(handle)
			return
		case <-handle.Done():
			return
		}
	}
}

func shutdown(handle *camcapture.StreamHandle) {
	handle.Abort()
	if !handle.Wait(3 * time.Second) {
		slog.Warn("stream did not stop within 3s")
		return
	}
	stats := handle.Stats()
	fmt.Printf("done: frames=%d capture_errors=%d decode_errors=%d\n",
		stats.FramesDelivered, stats.CaptureErrors, stats.DecodeErrors)
}

func runOneShot(dev camcapture.Device, dir, format string, quality int) {
	frame, err := camcapture.CaptureFrame(dev)
	// The one-shot path owns the device; release it before reporting.
	if serr := dev.StopStream(); serr != nil {
		slog.Warn("stopping device", "error", serr)
	}
	if cerr := dev.Close(); cerr != nil {
		slog.Warn("closing device", "error", cerr)
	}
	if err != nil {
		log.Fatalf("Failed to capture frame: %v", err)
	}

	fmt.Printf("captured %dx%d frame (%d bytes)\n", frame.Width, frame.Height, len(frame.Data))
	if dir != "" {
		name := filepath.Join(dir, "frame."+format)
		if err := saveFrame(name, frame, format, quality); err != nil {
			log.Fatalf("Failed to save frame: %v", err)
		}
		fmt.Printf("saved %s\n", name)
	}
}

func saveFrame(name string, frame *camcapture.Frame, format string, quality int) error {
	img := &image.RGBA{
		Pix:    frame.Data,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}

	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "jpeg":
		return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	default:
		return png.Encode(f, img)
	}
}
