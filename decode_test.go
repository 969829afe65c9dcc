package camcapture_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"testing"

	"github.com/e7canasta/camcapture"
	"github.com/e7canasta/camcapture/internal/convert"
)

func ExampleDecode() {
	raw := camcapture.RawFrame{
		Data:   []byte{255, 0, 0}, // one red RGB pixel
		Format: camcapture.FormatRGB,
		Width:  1,
		Height: 1,
	}
	frame, err := camcapture.Decode(raw)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(frame.Data), frame.Data)
	// Output: 4 [255 0 0 255]
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeCanonicalLayout(t *testing.T) {
	const w, h = 8, 6
	tests := []struct {
		name string
		raw  camcapture.RawFrame
	}{
		{"mjpeg", camcapture.RawFrame{Data: testJPEG(t, w, h), Format: camcapture.FormatMJPEG, Width: w, Height: h}},
		{"yuyv", camcapture.RawFrame{Data: make([]byte, w*h*2), Format: camcapture.FormatYUYV, Width: w, Height: h}},
		{"nv12", camcapture.RawFrame{Data: make([]byte, w*h*3/2), Format: camcapture.FormatNV12, Width: w, Height: h}},
		{"rgb", camcapture.RawFrame{Data: make([]byte, w*h*3), Format: camcapture.FormatRGB, Width: w, Height: h}},
		{"rgba", camcapture.RawFrame{Data: make([]byte, w*h*4), Format: camcapture.FormatRGBA, Width: w, Height: h}},
		{"gray", camcapture.RawFrame{Data: make([]byte, w*h), Format: camcapture.FormatGray, Width: w, Height: h}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := camcapture.Decode(tt.raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if frame.Width != w || frame.Height != h {
				t.Fatalf("decoded size = %dx%d, want %dx%d", frame.Width, frame.Height, w, h)
			}
			if len(frame.Data) != w*h*4 {
				t.Fatalf("len(Data) = %d, want %d", len(frame.Data), w*h*4)
			}
		})
	}
}

func TestDecodeRGBExpansion(t *testing.T) {
	raw := camcapture.RawFrame{Data: []byte{10, 20, 30, 40, 50, 60}, Format: camcapture.FormatRGB, Width: 2, Height: 1}
	frame, err := camcapture.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{10, 20, 30, 255, 40, 50, 60, 255}
	if !bytes.Equal(frame.Data, want) {
		t.Fatalf("Data = %v, want %v", frame.Data, want)
	}
}

func TestDecodeGrayExpansion(t *testing.T) {
	raw := camcapture.RawFrame{Data: []byte{0, 200}, Format: camcapture.FormatGray, Width: 2, Height: 1}
	frame, err := camcapture.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{0, 0, 0, 255, 200, 200, 200, 255}
	if !bytes.Equal(frame.Data, want) {
		t.Fatalf("Data = %v, want %v", frame.Data, want)
	}
}

func TestDecodeRGBACopiesBuffer(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	frame, err := camcapture.Decode(camcapture.RawFrame{Data: src, Format: camcapture.FormatRGBA, Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// The device reuses capture buffers, so the decoded frame must not alias
	// the raw bytes.
	src[0] = 99
	if frame.Data[0] != 1 {
		t.Fatal("decoded frame aliases the raw buffer")
	}
}

func TestDecodeUnknownFormatFallback(t *testing.T) {
	// An unrecognized tag with a 3-channel-sized buffer decodes via the RGB
	// path.
	frame, err := camcapture.Decode(camcapture.RawFrame{Data: make([]byte, 2*2*3), Format: camcapture.FrameFormat(42), Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Decode 3-channel fallback: %v", err)
	}
	if len(frame.Data) != 2*2*4 {
		t.Fatalf("len(Data) = %d, want %d", len(frame.Data), 2*2*4)
	}

	// A 4-channel-sized buffer passes through as RGBA.
	frame, err = camcapture.Decode(camcapture.RawFrame{Data: make([]byte, 2*2*4), Format: camcapture.FrameFormat(42), Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("Decode 4-channel fallback: %v", err)
	}
	if len(frame.Data) != 2*2*4 {
		t.Fatalf("len(Data) = %d, want %d", len(frame.Data), 2*2*4)
	}

	// Neither interpretation fits the buffer size.
	_, err = camcapture.Decode(camcapture.RawFrame{Data: make([]byte, 3*3), Format: camcapture.FrameFormat(42), Width: 3, Height: 3})
	var decodeErr *camcapture.FrameDecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v (%T), want *FrameDecodeError", err, err)
	}
}

func TestDecodeEmptyBuffer(t *testing.T) {
	_, err := camcapture.Decode(camcapture.RawFrame{Format: camcapture.FormatRGBA, Width: 2, Height: 2})
	var decodeErr *camcapture.FrameDecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v (%T), want *FrameDecodeError", err, err)
	}
	if !errors.Is(err, convert.ErrEmptyInput) {
		t.Fatalf("error = %v, want wrapped ErrEmptyInput", err)
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	tests := []struct {
		name string
		raw  camcapture.RawFrame
	}{
		{"rgb short", camcapture.RawFrame{Data: make([]byte, 5), Format: camcapture.FormatRGB, Width: 2, Height: 1}},
		{"rgba long", camcapture.RawFrame{Data: make([]byte, 9), Format: camcapture.FormatRGBA, Width: 1, Height: 2}},
		{"yuyv short", camcapture.RawFrame{Data: make([]byte, 3), Format: camcapture.FormatYUYV, Width: 4, Height: 4}},
		{"garbage mjpeg", camcapture.RawFrame{Data: []byte("not a jpeg"), Format: camcapture.FormatMJPEG, Width: 4, Height: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := camcapture.Decode(tt.raw)
			var decodeErr *camcapture.FrameDecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v (%T), want *FrameDecodeError", err, err)
			}
			if decodeErr.Format != tt.raw.Format {
				t.Fatalf("error format = %v, want %v", decodeErr.Format, tt.raw.Format)
			}
		})
	}
}
