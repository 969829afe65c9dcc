package camcapture

import (
	"fmt"

	"github.com/e7canasta/camcapture/internal/convert"
)

// Decode converts a raw device frame into the canonical RGBA8 layout. It is
// pure with respect to the device: the result depends only on the bytes and
// the declared format.
//
// Dispatch follows the declared format tag; unknown tags fall back to trying
// the RGB interpretation first (cheaper to expand), then the RGBA one. When
// no path succeeds the error is a *FrameDecodeError.
func Decode(raw RawFrame) (*Frame, error) {
	if len(raw.Data) == 0 {
		return nil, &FrameDecodeError{Format: raw.Format, Err: convert.ErrEmptyInput}
	}

	switch raw.Format {
	case FormatMJPEG:
		pix, w, h, err := convert.MJPEGToRGBA(raw.Data)
		if err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		return &Frame{Width: w, Height: h, Data: pix}, nil

	case FormatYUYV:
		rgb := make([]byte, raw.Width*raw.Height*3)
		if err := convert.YUYVToRGB(raw.Width, raw.Height, raw.Data, rgb); err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		rgba, err := convert.RGBToRGBA(rgb)
		if err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		return &Frame{Width: raw.Width, Height: raw.Height, Data: rgba}, nil

	case FormatNV12:
		pix, err := convert.NV12ToRGBA(raw.Width, raw.Height, raw.Data)
		if err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		return &Frame{Width: raw.Width, Height: raw.Height, Data: pix}, nil

	case FormatRGB:
		if err := checkLen(raw, 3); err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		rgba, err := convert.RGBToRGBA(raw.Data)
		if err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		return &Frame{Width: raw.Width, Height: raw.Height, Data: rgba}, nil

	case FormatRGBA:
		if err := checkLen(raw, 4); err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		pix := make([]byte, len(raw.Data))
		copy(pix, raw.Data)
		return &Frame{Width: raw.Width, Height: raw.Height, Data: pix}, nil

	case FormatGray:
		if err := checkLen(raw, 1); err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		pix, err := convert.GrayToRGBA(raw.Data)
		if err != nil {
			return nil, &FrameDecodeError{Format: raw.Format, Err: err}
		}
		return &Frame{Width: raw.Width, Height: raw.Height, Data: pix}, nil

	default:
		// Unknown tag: try the 3-channel interpretation, then 4-channel.
		if checkLen(raw, 3) == nil {
			if rgba, err := convert.RGBToRGBA(raw.Data); err == nil {
				return &Frame{Width: raw.Width, Height: raw.Height, Data: rgba}, nil
			}
		}
		if checkLen(raw, 4) == nil {
			pix := make([]byte, len(raw.Data))
			copy(pix, raw.Data)
			return &Frame{Width: raw.Width, Height: raw.Height, Data: pix}, nil
		}
		return nil, &FrameDecodeError{Format: raw.Format}
	}
}

func checkLen(raw RawFrame, channels int) error {
	want := raw.Width * raw.Height * channels
	if len(raw.Data) != want {
		return fmt.Errorf("camcapture: %d bytes for %dx%d at %d channels, want %d",
			len(raw.Data), raw.Width, raw.Height, channels, want)
	}
	return nil
}
