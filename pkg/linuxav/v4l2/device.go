package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultBufferCount is the number of mmap buffers used for streaming.
const DefaultBufferCount = 4

// Device is an open capture device. The handle is acquired by Open and held
// until Close. A Device is not safe for concurrent use; the channel only
// keeps individual requests atomic.
type Device struct {
	path        string
	ch          *Channel
	logger      *slog.Logger
	bufferCount int
	strict      bool
	observer    StateObserver
	settings    ConnectionSettings
	state       StreamState

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Device at open time.
type Option func(*Device)

// WithBufferCount overrides the number of streaming buffers.
func WithBufferCount(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.bufferCount = n
		}
	}
}

// WithStrictControls makes any control that fails to apply fail the capture.
// By default such failures are logged and skipped.
func WithStrictControls(strict bool) Option {
	return func(d *Device) { d.strict = strict }
}

// WithStateObserver registers a callback for stream state transitions.
func WithStateObserver(fn StateObserver) Option {
	return func(d *Device) { d.observer = fn }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// Open opens the device described by settings. The settings are copied; use
// Settings to read back the negotiated values after a capture.
func Open(settings ConnectionSettings, opts ...Option) (*Device, error) {
	path := settings.Path()
	drv, err := openDriver(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return newDevice(settings, drv, nativeLayout, opts...), nil
}

// OpenBus opens /dev/video<id> with every tunable left to the device default.
func OpenBus(id int, opts ...Option) (*Device, error) {
	return Open(ConnectionSettings{BusID: id}, opts...)
}

func newDevice(settings ConnectionSettings, drv driver, l layout, opts ...Option) *Device {
	d := &Device{
		path:        settings.Path(),
		ch:          newChannel(drv, l),
		logger:      slog.With("component", "v4l2"),
		bufferCount: DefaultBufferCount,
		settings:    settings,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("device", d.path)
	return d
}

// Path returns the device node path.
func (d *Device) Path() string { return d.path }

// Channel exposes the control channel for requests not wrapped by Device.
func (d *Device) Channel() *Channel { return d.ch }

// Settings returns a copy of the settings after the most recent capture:
// negotiated defaults plus the format the driver actually applied.
func (d *Device) Settings() ConnectionSettings { return d.settings }

// SetSettings replaces the settings used by the next capture. Fields left
// nil are negotiated again.
func (d *Device) SetSettings(s ConnectionSettings) {
	s.BusID, s.DevicePath = d.settings.BusID, d.settings.DevicePath
	d.settings = s
}

// Close releases the device handle. It is safe to call more than once.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.ch.close()
		if d.closeErr != nil {
			d.closeErr = fmt.Errorf("close %s: %w", d.path, d.closeErr)
		}
	})
	return d.closeErr
}

// Capability queries the driver identity and capability flags.
func (d *Device) Capability() (Capability, error) {
	var c capability
	if err := d.ch.Execute(ReqQueryCap, &c); err != nil {
		return Capability{}, err
	}
	return Capability{
		Driver:       cstr(c.driver[:]),
		Card:         cstr(c.card[:]),
		BusInfo:      cstr(c.busInfo[:]),
		Version:      c.version,
		Capabilities: c.capabilities,
		DeviceCaps:   c.deviceCaps,
	}, nil
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
