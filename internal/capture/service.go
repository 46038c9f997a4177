// Package capture runs V4L2 captures for the CLI and the API: it owns the
// device lock, and turns every capture into metrics and bus events.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/logging"
	"github.com/smazurov/videocap/internal/metrics"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// ErrBusy is returned while a continuous stream holds the device.
var ErrBusy = errors.New("device busy streaming")

// Camera is the part of *v4l2.Device the service drives.
type Camera interface {
	Path() string
	Settings() v4l2.ConnectionSettings
	Capability() (v4l2.Capability, error)
	Capture(ctx context.Context) ([]byte, error)
	CaptureContinuous(ctx context.Context, handler v4l2.FrameHandler, opts ...v4l2.ContinuousOption) error
	SupportedPixelFormats() ([]v4l2.FormatInfo, error)
	PixelFormatResolutions(pf v4l2.PixelFormat) ([]v4l2.Resolution, error)
	Framerates(pf v4l2.PixelFormat, size v4l2.Size) ([]v4l2.Interval, error)
	DeviceValue(id v4l2.ControlID) (v4l2.DeviceValue, error)
	Close() error
}

// Opener opens a camera for settings.
type Opener func(settings v4l2.ConnectionSettings, opts ...v4l2.Option) (Camera, error)

// OpenDevice opens the real device node.
func OpenDevice(settings v4l2.ConnectionSettings, opts ...v4l2.Option) (Camera, error) {
	dev, err := v4l2.Open(settings, opts...)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// Config configures a Service.
type Config struct {
	Settings       v4l2.ConnectionSettings
	BufferCount    int
	StrictControls bool
	// RetryDelay is how long Supervise waits before reopening a device
	// that failed. Defaults to 5s.
	RetryDelay time.Duration
	// Open defaults to OpenDevice.
	Open Opener
}

// Result is a captured frame with the format it was captured in.
type Result struct {
	Data        []byte
	DevicePath  string
	PixelFormat v4l2.PixelFormat
	Width       uint32
	Height      uint32
	Duration    time.Duration
	Settings    v4l2.ConnectionSettings
}

// Service serializes access to one capture device.
type Service struct {
	cfg    Config
	open   Opener
	bus    *events.Bus
	logger *slog.Logger

	mu        sync.Mutex
	streaming atomic.Bool

	settingsMu sync.RWMutex
	settings   v4l2.ConnectionSettings
	updates    chan []v4l2.ControlValue
}

// NewService creates a service for cfg.Settings. bus may be nil.
func NewService(cfg Config, bus *events.Bus) *Service {
	open := cfg.Open
	if open == nil {
		open = OpenDevice
	}
	if cfg.BufferCount <= 0 {
		cfg.BufferCount = v4l2.DefaultBufferCount
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	return &Service{
		cfg:      cfg,
		open:     open,
		bus:      bus,
		logger:   logging.GetLogger("capture"),
		settings: cfg.Settings,
		updates:  make(chan []v4l2.ControlValue, 8),
	}
}

// DevicePath returns the device node the service captures from.
func (s *Service) DevicePath() string {
	return s.Settings().Path()
}

// Settings returns the configured settings. Unset fields are negotiated
// on every capture.
func (s *Service) Settings() v4l2.ConnectionSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// Streaming reports whether a continuous capture is running.
func (s *Service) Streaming() bool {
	return s.streaming.Load()
}

// withCamera opens the device for the duration of fn. It waits behind
// other single operations but fails with ErrBusy as soon as a stream has
// claimed the device, even one still waiting for the lock.
func (s *Service) withCamera(fn func(Camera) error) error {
	if err := s.lockCamera(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	return s.run(fn)
}

const lockPoll = 5 * time.Millisecond

func (s *Service) lockCamera() error {
	for {
		if s.streaming.Load() {
			return ErrBusy
		}
		if s.mu.TryLock() {
			if s.streaming.Load() {
				s.mu.Unlock()
				return ErrBusy
			}
			return nil
		}
		time.Sleep(lockPoll)
	}
}

func (s *Service) run(fn func(Camera) error) (err error) {
	cam, err := s.open(s.Settings(),
		v4l2.WithBufferCount(s.cfg.BufferCount),
		v4l2.WithStrictControls(s.cfg.StrictControls),
		v4l2.WithStateObserver(s.observe),
		v4l2.WithLogger(logging.GetLogger("v4l2")),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cam.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(cam)
}

// Capture grabs one frame.
func (s *Service) Capture(ctx context.Context) (*Result, error) {
	var res *Result
	start := time.Now()
	err := s.withCamera(func(cam Camera) error {
		data, err := cam.Capture(ctx)
		if err != nil {
			return err
		}
		res = newResult(cam, data, time.Since(start))
		return nil
	})
	if err != nil {
		s.fail(err)
		return nil, err
	}

	metrics.RecordFrame(res.DevicePath, len(res.Data))
	metrics.ObserveCapture(res.DevicePath, res.Duration)
	s.logger.Info("Frame captured",
		"device", res.DevicePath,
		"format", res.PixelFormat,
		"width", res.Width,
		"height", res.Height,
		"bytes", len(res.Data),
		"duration", res.Duration)
	s.succeed(res, "")
	return res, nil
}

// CaptureToFile grabs one frame and writes it to path, creating parent
// directories. The file is left untouched if the capture fails.
func (s *Service) CaptureToFile(ctx context.Context, path string) (*Result, error) {
	var res *Result
	start := time.Now()
	err := s.withCamera(func(cam Camera) error {
		data, err := cam.Capture(ctx)
		if err != nil {
			return err
		}
		res = newResult(cam, data, time.Since(start))
		return nil
	})
	if err == nil {
		err = writeFrame(path, res.Data)
	}
	if err != nil {
		s.fail(err)
		return nil, err
	}

	metrics.RecordFrame(res.DevicePath, len(res.Data))
	metrics.ObserveCapture(res.DevicePath, res.Duration)
	s.logger.Info("Frame written", "device", res.DevicePath, "path", path, "bytes", len(res.Data))
	s.succeed(res, path)
	return res, nil
}

func newResult(cam Camera, data []byte, d time.Duration) *Result {
	negotiated := cam.Settings()
	res := &Result{Data: data, DevicePath: cam.Path(), Duration: d, Settings: negotiated}
	if negotiated.PixelFormat != nil {
		res.PixelFormat = *negotiated.PixelFormat
	}
	if negotiated.CaptureSize != nil {
		res.Width = negotiated.CaptureSize.Width
		res.Height = negotiated.CaptureSize.Height
	}
	return res
}

func writeFrame(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// Capability queries the driver.
func (s *Service) Capability() (v4l2.Capability, error) {
	var c v4l2.Capability
	err := s.withCamera(func(cam Camera) (err error) {
		c, err = cam.Capability()
		return err
	})
	return c, err
}

// Formats lists the pixel formats the device can capture.
func (s *Service) Formats() ([]v4l2.FormatInfo, error) {
	var out []v4l2.FormatInfo
	err := s.withCamera(func(cam Camera) (err error) {
		out, err = cam.SupportedPixelFormats()
		return err
	})
	return out, err
}

// Resolutions lists the frame sizes for pf, with the frame intervals of
// each discrete size.
func (s *Service) Resolutions(pf v4l2.PixelFormat) ([]ResolutionInfo, error) {
	var out []ResolutionInfo
	err := s.withCamera(func(cam Camera) error {
		res, err := cam.PixelFormatResolutions(pf)
		if err != nil {
			return err
		}
		out = make([]ResolutionInfo, 0, len(res))
		for _, r := range res {
			info := ResolutionInfo{Resolution: r}
			if r.Type == v4l2.ResolutionDiscrete {
				ivals, ierr := cam.Framerates(pf, v4l2.Size{Width: r.MaxWidth, Height: r.MaxHeight})
				if ierr != nil {
					s.logger.Debug("Frame intervals unavailable", "format", pf, "width", r.MaxWidth, "error", ierr)
				}
				info.Intervals = ivals
			}
			out = append(out, info)
		}
		return nil
	})
	return out, err
}

// ResolutionInfo is a frame size entry plus its frame intervals.
type ResolutionInfo struct {
	v4l2.Resolution
	Intervals []v4l2.Interval
}

// Control returns the descriptor and current value of one control.
func (s *Service) Control(id v4l2.ControlID) (v4l2.DeviceValue, error) {
	var v v4l2.DeviceValue
	err := s.withCamera(func(cam Camera) (err error) {
		v, err = cam.DeviceValue(id)
		return err
	})
	return v, err
}

// Controls returns every known control the device supports. Controls the
// device rejects are skipped.
func (s *Service) Controls() ([]v4l2.DeviceValue, error) {
	var out []v4l2.DeviceValue
	err := s.withCamera(func(cam Camera) error {
		for _, id := range v4l2.KnownControls() {
			v, err := cam.DeviceValue(id)
			if err != nil {
				continue
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// observe forwards state machine transitions to metrics and the bus.
func (s *Service) observe(device string, from, to v4l2.StreamState) {
	metrics.SetStreamState(device, to)
	switch to {
	case v4l2.StateBuffersReady:
		metrics.SetBuffersMapped(device, s.cfg.BufferCount)
	case v4l2.StateIdle:
		metrics.SetBuffersMapped(device, 0)
	}
	events.Publish(s.bus, events.StreamStateChangedEvent{
		DevicePath: device,
		From:       from.String(),
		To:         to.String(),
		Timestamp:  now(),
	})
}

func (s *Service) succeed(res *Result, path string) {
	events.Publish(s.bus, events.CaptureSuccessEvent{
		DevicePath:  res.DevicePath,
		PixelFormat: res.PixelFormat.String(),
		Width:       res.Width,
		Height:      res.Height,
		Bytes:       len(res.Data),
		Path:        path,
		DurationMs:  res.Duration.Milliseconds(),
		Timestamp:   now(),
	})
}

func (s *Service) fail(err error) {
	device := s.DevicePath()
	stage := Stage(err)
	if !errors.Is(err, ErrBusy) {
		metrics.RecordError(device, stage)
	}
	s.logger.Error("Capture failed", "device", device, "stage", stage, "error", err)
	events.Publish(s.bus, events.CaptureErrorEvent{
		DevicePath: device,
		Stage:      stage,
		Error:      err.Error(),
		Timestamp:  now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// WriteError reports a frame that was captured but could not be saved.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write frame %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
