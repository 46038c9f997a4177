package v4l2

import "time"

// Capability describes the driver behind an open device.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// Effective returns the capabilities of the opened node rather than the
// whole physical device when the driver reports them.
func (c Capability) Effective() uint32 {
	if c.Capabilities&capDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// CanCapture reports whether the node supports single-planar video capture.
func (c Capability) CanCapture() bool {
	return c.Effective()&capVideoCapture != 0
}

// CanStream reports whether the node supports streaming I/O.
func (c Capability) CanStream() bool {
	return c.Effective()&capStreaming != 0
}

var capabilityNames = []struct {
	bit  uint32
	name string
}{
	{capVideoCapture, "video_capture"},
	{0x00000002, "video_output"},
	{0x00000004, "video_overlay"},
	{0x00001000, "video_capture_mplane"},
	{0x00008000, "video_m2m"},
	{capMetaCapture, "meta_capture"},
	{capReadWrite, "readwrite"},
	{capStreaming, "streaming"},
}

// Names lists the known effective capability flags.
func (c Capability) Names() []string {
	eff := c.Effective()
	var out []string
	for _, n := range capabilityNames {
		if eff&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat PixelFormat
	Description string
	Compressed  bool
	Emulated    bool
}

// ResolutionType is the kind of frame size entry reported by the driver.
type ResolutionType uint32

// Resolution types.
const (
	ResolutionDiscrete   ResolutionType = frmSizeTypeDiscrete
	ResolutionContinuous ResolutionType = frmSizeTypeContinuous
	ResolutionStepwise   ResolutionType = frmSizeTypeStepwise
)

func (t ResolutionType) String() string {
	switch t {
	case ResolutionDiscrete:
		return "discrete"
	case ResolutionContinuous:
		return "continuous"
	case ResolutionStepwise:
		return "stepwise"
	default:
		return "unknown"
	}
}

// Resolution is one frame size entry. Discrete entries have Min equal to Max
// and zero steps.
type Resolution struct {
	Type       ResolutionType
	MinWidth   uint32
	MaxWidth   uint32
	StepWidth  uint32
	MinHeight  uint32
	MaxHeight  uint32
	StepHeight uint32
}

// Size is a concrete frame width and height.
type Size struct {
	Width  uint32 `toml:"width" json:"width"`
	Height uint32 `toml:"height" json:"height"`
}

// Contains reports whether the entry admits the given size.
func (r Resolution) Contains(s Size) bool {
	if s.Width < r.MinWidth || s.Width > r.MaxWidth || s.Height < r.MinHeight || s.Height > r.MaxHeight {
		return false
	}
	if r.StepWidth > 1 && (s.Width-r.MinWidth)%r.StepWidth != 0 {
		return false
	}
	if r.StepHeight > 1 && (s.Height-r.MinHeight)%r.StepHeight != 0 {
		return false
	}
	return true
}

// Framerate represents a frame interval as a fraction of a second.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// Interval is one frame interval entry. Discrete entries have Min equal to Max.
type Interval struct {
	Type ResolutionType
	Min  Framerate
	Max  Framerate
	Step Framerate
}

// Rect is a crop rectangle in sensor pixels.
type Rect struct {
	Left   int32
	Top    int32
	Width  uint32
	Height uint32
}

// CropCapability reports the cropping limits and pixel aspect of a device.
type CropCapability struct {
	Bounds      Rect
	Default     Rect
	PixelAspect Framerate
}

// FrameFormat is the format the driver settled on after negotiation.
type FrameFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  PixelFormat
	BytesPerLine uint32
	SizeImage    uint32
}

// FrameMeta describes a dequeued frame.
type FrameMeta struct {
	Index     uint32
	BytesUsed uint32
	Sequence  uint32
	Flags     uint32
	Timestamp time.Duration
}

// Corrupted reports whether the driver flagged the frame data as damaged.
func (m FrameMeta) Corrupted() bool { return m.Flags&bufFlagError != 0 }

// Capability flags.
const (
	capVideoCapture = 0x00000001
	capMetaCapture  = 0x00800000
	capReadWrite    = 0x01000000
	capStreaming    = 0x04000000
	capDeviceCaps   = 0x80000000
)

// Format flags.
const (
	fmtFlagCompressed = 0x0001
	fmtFlagEmulated   = 0x0002
)

// Frame size types.
const (
	frmSizeTypeDiscrete   = 1
	frmSizeTypeContinuous = 2
	frmSizeTypeStepwise   = 3
)

// Frame interval types.
const (
	frmIvalTypeDiscrete   = 1
	frmIvalTypeContinuous = 2
	frmIvalTypeStepwise   = 3
)

// Buffer type, memory and field values.
const (
	bufTypeVideoCapture = 1
	memoryMmap          = 1
	fieldNone           = 1
)

// Buffer flags.
const (
	bufFlagMapped = 0x00000001
	bufFlagQueued = 0x00000002
	bufFlagDone   = 0x00000004
	bufFlagError  = 0x00000040
)

// Control flags.
const (
	ctrlFlagDisabled = 0x0001
	ctrlFlagReadOnly = 0x0004
	ctrlFlagInactive = 0x0010
)
