// Package convert implements pixel-format conversions to and from the
// canonical RGBA8 layout.
//
// Every function is a pure transform over caller-supplied buffers. Decoding
// routines are wrapped in a fault boundary: a panic raised inside a codec is
// recovered and reported as a *Fault error instead of escaping to the caller.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// ErrEmptyInput is returned when a source buffer is empty. The check runs
// before any decoding so malformed calls never reach a codec.
var ErrEmptyInput = errors.New("convert: empty source buffer")

// Fault is an abnormal codec fault (a panic) contained at the conversion
// boundary and converted into an ordinary error value.
type Fault struct {
	// Op names the conversion that faulted
	Op string
	// Recovered is the value the codec panicked with
	Recovered any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("convert: %s faulted: %v", f.Op, f.Recovered)
}

// contain runs fn and converts any panic into a *Fault error.
func contain(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Op: op, Recovered: r}
		}
	}()
	return fn()
}

// RGBToRGBA expands packed RGB to RGBA by appending an opaque alpha byte per
// pixel. The input length must be divisible by 3; the output length is
// exactly len(rgb)*4/3.
func RGBToRGBA(rgb []byte) ([]byte, error) {
	if len(rgb) == 0 {
		return nil, ErrEmptyInput
	}
	if len(rgb)%3 != 0 {
		return nil, fmt.Errorf("convert: RGB buffer length %d not divisible by 3", len(rgb))
	}
	rgba := make([]byte, 0, len(rgb)/3*4)
	for i := 0; i < len(rgb); i += 3 {
		rgba = append(rgba, rgb[i], rgb[i+1], rgb[i+2], 0xFF)
	}
	return rgba, nil
}

// BGRToRGB reorders packed BGR into dst, which must be width*height*3 bytes.
func BGRToRGB(width, height int, src, dst []byte) error {
	if len(src) == 0 {
		return ErrEmptyInput
	}
	n := width * height * 3
	if len(src) < n {
		return fmt.Errorf("convert: BGR buffer too short: got %d, need %d", len(src), n)
	}
	if len(dst) < n {
		return fmt.Errorf("convert: destination too short: got %d, need %d", len(dst), n)
	}
	for i := 0; i < n; i += 3 {
		dst[i], dst[i+1], dst[i+2] = src[i+2], src[i+1], src[i]
	}
	return nil
}

// YUYVToRGB decodes packed YUV 4:2:2 into dst, which must be width*height*3
// bytes. Two pixels are carried per four source bytes (Y0 U Y1 V).
func YUYVToRGB(width, height int, src, dst []byte) error {
	if len(src) == 0 {
		return ErrEmptyInput
	}
	need := width * height * 2
	if len(src) < need {
		return fmt.Errorf("convert: YUYV buffer too short: got %d, need %d", len(src), need)
	}
	if len(dst) < width*height*3 {
		return fmt.Errorf("convert: destination too short: got %d, need %d", len(dst), width*height*3)
	}
	di := 0
	for si := 0; si+3 < need; si += 4 {
		y0, u, y1, v := src[si], src[si+1], src[si+2], src[si+3]
		r, g, b := yuvToRGB(y0, u, v)
		dst[di], dst[di+1], dst[di+2] = r, g, b
		r, g, b = yuvToRGB(y1, u, v)
		dst[di+3], dst[di+4], dst[di+5] = r, g, b
		di += 6
	}
	return nil
}

// NV12ToRGB decodes an NV12 frame (planar Y, interleaved UV at 4:2:0) into
// dst, which must be width*height*3 bytes.
func NV12ToRGB(width, height int, src, dst []byte) error {
	if len(src) == 0 {
		return ErrEmptyInput
	}
	need := width * height * 3 / 2
	if len(src) < need {
		return fmt.Errorf("convert: NV12 buffer too short: got %d, need %d", len(src), need)
	}
	if len(dst) < width*height*3 {
		return fmt.Errorf("convert: destination too short: got %d, need %d", len(dst), width*height*3)
	}
	uvBase := width * height
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			y := src[row*width+col]
			uvIdx := uvBase + (row/2)*width + (col/2)*2
			r, g, b := yuvToRGB(y, src[uvIdx], src[uvIdx+1])
			di := (row*width + col) * 3
			dst[di], dst[di+1], dst[di+2] = r, g, b
		}
	}
	return nil
}

// NV12ToRGBA decodes an NV12 frame straight to the canonical RGBA8 layout.
func NV12ToRGBA(width, height int, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, ErrEmptyInput
	}
	need := width * height * 3 / 2
	if len(src) < need {
		return nil, fmt.Errorf("convert: NV12 buffer too short: got %d, need %d", len(src), need)
	}
	dst := make([]byte, width*height*4)
	uvBase := width * height
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			y := src[row*width+col]
			uvIdx := uvBase + (row/2)*width + (col/2)*2
			r, g, b := yuvToRGB(y, src[uvIdx], src[uvIdx+1])
			di := (row*width + col) * 4
			dst[di], dst[di+1], dst[di+2], dst[di+3] = r, g, b, 0xFF
		}
	}
	return dst, nil
}

// GrayToRGBA expands 8-bit luminance to the canonical RGBA8 layout by
// replicating each sample across the color channels.
func GrayToRGBA(gray []byte) ([]byte, error) {
	if len(gray) == 0 {
		return nil, ErrEmptyInput
	}
	rgba := make([]byte, 0, len(gray)*4)
	for _, y := range gray {
		rgba = append(rgba, y, y, y, 0xFF)
	}
	return rgba, nil
}

// MJPEGToRGB decodes a JPEG-compressed frame into dst, which must be
// width*height*3 bytes. The encoded image must match the given dimensions.
func MJPEGToRGB(width, height int, src, dst []byte) error {
	if len(src) == 0 {
		return ErrEmptyInput
	}
	if len(dst) < width*height*3 {
		return fmt.Errorf("convert: destination too short: got %d, need %d", len(dst), width*height*3)
	}
	return contain("MJPEGToRGB", func() error {
		img, err := jpeg.Decode(bytes.NewReader(src))
		if err != nil {
			return fmt.Errorf("convert: decoding MJPEG: %w", err)
		}
		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			return fmt.Errorf("convert: MJPEG frame is %dx%d, expected %dx%d",
				bounds.Dx(), bounds.Dy(), width, height)
		}
		rgba := toRGBA(img)
		for i := 0; i < width*height; i++ {
			dst[i*3], dst[i*3+1], dst[i*3+2] = rgba.Pix[i*4], rgba.Pix[i*4+1], rgba.Pix[i*4+2]
		}
		return nil
	})
}

// MJPEGToRGBA decodes a JPEG-compressed frame straight to the canonical
// RGBA8 layout, returning the decoded dimensions.
func MJPEGToRGBA(src []byte) (pix []byte, width, height int, err error) {
	if len(src) == 0 {
		return nil, 0, 0, ErrEmptyInput
	}
	err = contain("MJPEGToRGBA", func() error {
		img, derr := jpeg.Decode(bytes.NewReader(src))
		if derr != nil {
			return fmt.Errorf("convert: decoding MJPEG: %w", derr)
		}
		rgba := toRGBA(img)
		bounds := rgba.Bounds()
		pix, width, height = rgba.Pix, bounds.Dx(), bounds.Dy()
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return pix, width, height, nil
}

// YUYVPredictedSize returns the RGB byte count produced by decoding a YUYV
// buffer of the given length (two output pixels per four input bytes).
func YUYVPredictedSize(yuyvLen int) int {
	return yuyvLen / 4 * 6
}

// toRGBA normalizes any decoded image to a tightly packed *image.RGBA.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// yuvToRGB converts one YUV sample to RGB using the BT.601 integer
// approximation.
func yuvToRGB(y, u, v byte) (r, g, b byte) {
	c := int(y) - 16
	d := int(u) - 128
	e := int(v) - 128
	r = clamp((298*c + 409*e + 128) >> 8)
	g = clamp((298*c - 100*d - 208*e + 128) >> 8)
	b = clamp((298*c + 516*d + 128) >> 8)
	return r, g, b
}

func clamp(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
