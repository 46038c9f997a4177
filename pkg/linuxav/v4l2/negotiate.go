package v4l2

import (
	"errors"
	"fmt"
	"syscall"
)

// NegotiationResult lists what a negotiation pass changed.
type NegotiationResult struct {
	Filled       []ControlID // unset controls assigned the device default
	Unsupported  []ControlID // controls the device does not implement; left unset
	FormatFilled bool        // capture size or pixel format came from the device
}

// Negotiate fills every unset field of s from the device: the capture size
// and pixel format from the current format, and each control from its
// default value. Fields already set are left alone, so a second pass is a
// no-op. Controls the driver does not know stay nil.
func (d *Device) Negotiate(s *ConnectionSettings) (NegotiationResult, error) {
	var res NegotiationResult

	if s.CaptureSize == nil || s.PixelFormat == nil {
		cur, err := d.Format()
		if err != nil {
			return res, fmt.Errorf("read current format: %w", err)
		}
		if s.CaptureSize == nil {
			s.CaptureSize = &Size{Width: cur.Width, Height: cur.Height}
		}
		if s.PixelFormat == nil {
			pf := cur.PixelFormat
			s.PixelFormat = &pf
		}
		res.FormatFilled = true
	}

	for _, t := range tunables {
		if _, ok := t.get(s); ok {
			continue
		}
		info, err := d.QueryControl(t.id)
		if err != nil {
			if errors.Is(err, syscall.EINVAL) {
				res.Unsupported = append(res.Unsupported, t.id)
				continue
			}
			return res, err
		}
		if info.Disabled() {
			res.Unsupported = append(res.Unsupported, t.id)
			continue
		}
		t.set(s, info.Default)
		res.Filled = append(res.Filled, t.id)
	}

	d.logger.Debug("negotiated settings",
		"filled", len(res.Filled),
		"unsupported", len(res.Unsupported),
		"format_filled", res.FormatFilled)
	return res, nil
}

// Configure applies s to the device: the format first, then every set
// control in a fixed order. A format failure is fatal. Control failures are
// returned joined when strict controls are enabled and logged otherwise.
func (d *Device) Configure(s ConnectionSettings) (FrameFormat, error) {
	var applied FrameFormat
	if s.CaptureSize != nil && s.PixelFormat != nil {
		got, err := d.SetFormat(*s.CaptureSize, *s.PixelFormat)
		if err != nil {
			return FrameFormat{}, fmt.Errorf("set format %s %dx%d: %w",
				*s.PixelFormat, s.CaptureSize.Width, s.CaptureSize.Height, err)
		}
		if got.Width != s.CaptureSize.Width || got.Height != s.CaptureSize.Height || got.PixelFormat != *s.PixelFormat {
			d.logger.Warn("driver adjusted format",
				"requested", fmt.Sprintf("%s %dx%d", *s.PixelFormat, s.CaptureSize.Width, s.CaptureSize.Height),
				"applied", fmt.Sprintf("%s %dx%d", got.PixelFormat, got.Width, got.Height))
		}
		applied = got
	} else {
		cur, err := d.Format()
		if err != nil {
			return FrameFormat{}, fmt.Errorf("read current format: %w", err)
		}
		applied = cur
	}

	if err := d.ApplyControls(s.applicableControls()); err != nil {
		return applied, err
	}
	d.transition(StateConfigured)
	return applied, nil
}

// ApplyControls writes each value in order. See Configure for how failures
// are reported.
func (d *Device) ApplyControls(values []ControlValue) error {
	var errs []error
	for _, v := range values {
		if _, err := d.SetControl(v.ID, v.Value); err != nil {
			if d.strict {
				errs = append(errs, err)
				continue
			}
			d.logger.Warn("control not applied", "control", v.ID, "value", v.Value, "error", err)
		}
	}
	return errors.Join(errs...)
}

// applicableControls is Controls without an exposure time the current
// exposure mode would reject.
func (s *ConnectionSettings) applicableControls() []ControlValue {
	values := s.Controls()
	if s.ExposureType == nil || s.ExposureType.manualTime() {
		return values
	}
	out := values[:0]
	for _, v := range values {
		if v.ID != ControlExposureTime {
			out = append(out, v)
		}
	}
	return out
}
