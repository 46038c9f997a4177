package v4l2

import (
	"fmt"
	"strings"
)

// PixelFormat is a V4L2 FourCC pixel format code.
type PixelFormat uint32

// fourcc packs four ASCII characters the way v4l2_fourcc does.
func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Common pixel formats.
var (
	PixelFormatYUYV    = fourcc('Y', 'U', 'Y', 'V')
	PixelFormatUYVY    = fourcc('U', 'Y', 'V', 'Y')
	PixelFormatYVYU    = fourcc('Y', 'V', 'Y', 'U')
	PixelFormatVYUY    = fourcc('V', 'Y', 'U', 'Y')
	PixelFormatRGB24   = fourcc('R', 'G', 'B', '3')
	PixelFormatBGR24   = fourcc('B', 'G', 'R', '3')
	PixelFormatRGB32   = fourcc('R', 'G', 'B', '4')
	PixelFormatBGR32   = fourcc('B', 'G', 'R', '4')
	PixelFormatRGB565  = fourcc('R', 'G', 'B', 'P')
	PixelFormatGREY    = fourcc('G', 'R', 'E', 'Y')
	PixelFormatY16     = fourcc('Y', '1', '6', ' ')
	PixelFormatNV12    = fourcc('N', 'V', '1', '2')
	PixelFormatNV21    = fourcc('N', 'V', '2', '1')
	PixelFormatNV16    = fourcc('N', 'V', '1', '6')
	PixelFormatNV61    = fourcc('N', 'V', '6', '1')
	PixelFormatYUV420  = fourcc('Y', 'U', '1', '2')
	PixelFormatYVU420  = fourcc('Y', 'V', '1', '2')
	PixelFormatYUV422P = fourcc('4', '2', '2', 'P')
	PixelFormatMJPEG   = fourcc('M', 'J', 'P', 'G')
	PixelFormatJPEG    = fourcc('J', 'P', 'E', 'G')
	PixelFormatH264    = fourcc('H', '2', '6', '4')
)

// bitsPerPixel covers the packed and planar formats whose frame size follows
// from the dimensions. Compressed formats are absent.
var bitsPerPixel = map[PixelFormat]int{
	PixelFormatYUYV:    16,
	PixelFormatUYVY:    16,
	PixelFormatYVYU:    16,
	PixelFormatVYUY:    16,
	PixelFormatRGB24:   24,
	PixelFormatBGR24:   24,
	PixelFormatRGB32:   32,
	PixelFormatBGR32:   32,
	PixelFormatRGB565:  16,
	PixelFormatGREY:    8,
	PixelFormatY16:     16,
	PixelFormatNV12:    12,
	PixelFormatNV21:    12,
	PixelFormatNV16:    16,
	PixelFormatNV61:    16,
	PixelFormatYUV420:  12,
	PixelFormatYVU420:  12,
	PixelFormatYUV422P: 16,
}

// String returns the FourCC characters, trimmed of padding spaces.
func (f PixelFormat) String() string {
	return strings.TrimRight(FormatFourCC(uint32(f)), " ")
}

// MarshalText implements encoding.TextMarshaler so formats read naturally in
// TOML and JSON.
func (f PixelFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *PixelFormat) UnmarshalText(text []byte) error {
	p, err := ParsePixelFormat(string(text))
	if err != nil {
		return err
	}
	*f = p
	return nil
}

// ParsePixelFormat accepts a FourCC of up to four characters such as "YUYV",
// "MJPG" or "Y16". A few common aliases are also understood.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToUpper(s) {
	case "MJPEG":
		return PixelFormatMJPEG, nil
	case "YUV420", "I420":
		return PixelFormatYUV420, nil
	case "YVU420":
		return PixelFormatYVU420, nil
	case "GRAY":
		return PixelFormatGREY, nil
	}
	if s == "" || len(s) > 4 {
		return 0, fmt.Errorf("invalid pixel format %q", s)
	}
	b := []byte(s + "    ")[:4]
	return fourcc(b[0], b[1], b[2], b[3]), nil
}

// FrameSize returns the expected byte size of one uncompressed frame. ok is
// false for compressed or unknown formats, whose size varies per frame.
func FrameSize(f PixelFormat, width, height uint32) (size int, ok bool) {
	bpp, ok := bitsPerPixel[f]
	if !ok {
		return 0, false
	}
	return int(width) * int(height) * bpp / 8, true
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}
