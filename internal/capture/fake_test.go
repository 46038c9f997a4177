package capture

import (
	"context"
	"sync"
	"syscall"

	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// fakeCamera stands in for an open device. Capture fills in the negotiated
// format the way the real negotiator does.
type fakeCamera struct {
	mu       sync.Mutex
	path     string
	settings v4l2.ConnectionSettings

	frame      []byte
	captureErr error
	streamErr  error
	closed     bool

	values map[v4l2.ControlID]v4l2.DeviceValue
}

func newFakeCamera(path string) *fakeCamera {
	return &fakeCamera{
		path:  path,
		frame: make([]byte, 640*480*2),
		values: map[v4l2.ControlID]v4l2.DeviceValue{
			v4l2.ControlBrightness: {ControlInfo: v4l2.ControlInfo{ID: v4l2.ControlBrightness, Name: "Brightness", Maximum: 255, Step: 1}, Current: 12},
			v4l2.ControlGain:       {ControlInfo: v4l2.ControlInfo{ID: v4l2.ControlGain, Name: "Gain", Maximum: 100, Step: 1, Default: 10}, Current: 10},
		},
	}
}

// opener returns an Opener handing out cam and recording the settings it
// was opened with.
func (c *fakeCamera) opener() Opener {
	return func(s v4l2.ConnectionSettings, _ ...v4l2.Option) (Camera, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.settings = s
		c.closed = false
		return c, nil
	}
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeCamera) Path() string { return c.path }

func (c *fakeCamera) Settings() v4l2.ConnectionSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *fakeCamera) Capability() (v4l2.Capability, error) {
	return v4l2.Capability{Driver: "fake", Card: "Fake Camera", BusInfo: "usb-0000:00:14.0-1"}, nil
}

func (c *fakeCamera) Capture(context.Context) ([]byte, error) {
	if c.captureErr != nil {
		return nil, c.captureErr
	}
	c.mu.Lock()
	if c.settings.CaptureSize == nil {
		c.settings.CaptureSize = &v4l2.Size{Width: 640, Height: 480}
	}
	if c.settings.PixelFormat == nil {
		c.settings.PixelFormat = v4l2.Ptr(v4l2.PixelFormatYUYV)
	}
	c.mu.Unlock()
	return append([]byte(nil), c.frame...), nil
}

func (c *fakeCamera) CaptureContinuous(ctx context.Context, handler v4l2.FrameHandler, _ ...v4l2.ContinuousOption) error {
	if c.streamErr != nil {
		return c.streamErr
	}
	for seq := uint32(1); ; seq++ {
		if ctx.Err() != nil {
			return nil
		}
		meta := v4l2.FrameMeta{Index: seq % 4, BytesUsed: uint32(len(c.frame)), Sequence: seq}
		if err := handler(c.frame, meta); err != nil {
			return err
		}
	}
}

func (c *fakeCamera) SupportedPixelFormats() ([]v4l2.FormatInfo, error) {
	return []v4l2.FormatInfo{
		{PixelFormat: v4l2.PixelFormatYUYV, Description: "YUYV 4:2:2"},
		{PixelFormat: v4l2.PixelFormatMJPEG, Description: "Motion-JPEG", Compressed: true},
	}, nil
}

func (c *fakeCamera) PixelFormatResolutions(pf v4l2.PixelFormat) ([]v4l2.Resolution, error) {
	if pf != v4l2.PixelFormatYUYV {
		return nil, nil
	}
	return []v4l2.Resolution{
		{Type: v4l2.ResolutionDiscrete, MinWidth: 640, MaxWidth: 640, MinHeight: 480, MaxHeight: 480},
		{Type: v4l2.ResolutionDiscrete, MinWidth: 1280, MaxWidth: 1280, MinHeight: 720, MaxHeight: 720},
	}, nil
}

func (c *fakeCamera) Framerates(_ v4l2.PixelFormat, size v4l2.Size) ([]v4l2.Interval, error) {
	if size.Width == 1280 {
		return nil, syscall.EINVAL
	}
	return []v4l2.Interval{{Type: v4l2.ResolutionDiscrete, Min: v4l2.Framerate{Numerator: 1, Denominator: 30}}}, nil
}

func (c *fakeCamera) DeviceValue(id v4l2.ControlID) (v4l2.DeviceValue, error) {
	v, ok := c.values[id]
	if !ok {
		return v4l2.DeviceValue{}, &v4l2.ControlError{Control: id, Err: syscall.EINVAL}
	}
	return v, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
