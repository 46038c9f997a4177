package v4l2

import (
	"errors"
	"fmt"
	"syscall"
)

// SupportedPixelFormats returns every capture pixel format the device offers.
func (d *Device) SupportedPixelFormats() ([]FormatInfo, error) {
	var formats []FormatInfo

	for i := uint32(0); ; i++ {
		desc := fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := d.ch.Execute(ReqEnumFmt, &desc); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}

		formats = append(formats, FormatInfo{
			PixelFormat: PixelFormat(desc.pixelformat),
			Description: cstr(desc.description[:]),
			Compressed:  desc.flags&fmtFlagCompressed != 0,
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}

	return formats, nil
}

// PixelFormatResolutions returns the frame sizes supported for a pixel
// format. Stepwise and continuous devices report a single ranged entry.
func (d *Device) PixelFormatResolutions(pf PixelFormat) ([]Resolution, error) {
	var resolutions []Resolution

	for i := uint32(0); ; i++ {
		fs := frmSizeEnum{index: i, pixelFormat: uint32(pf)}
		if err := d.ch.Execute(ReqEnumFrameSizes, &fs); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			// ENOTTY means device doesn't support frame size enumeration
			if errors.Is(err, syscall.ENOTTY) {
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		resolutions = append(resolutions, Resolution{
			Type:       ResolutionType(fs.typ),
			MinWidth:   fs.minWidth,
			MaxWidth:   fs.maxWidth,
			StepWidth:  fs.stepWidth,
			MinHeight:  fs.minHeight,
			MaxHeight:  fs.maxHeight,
			StepHeight: fs.stepHeight,
		})
		if fs.typ != frmSizeTypeDiscrete {
			break // Only one stepwise entry
		}
	}

	return resolutions, nil
}

// Framerates returns the frame intervals supported for a format and size.
func (d *Device) Framerates(pf PixelFormat, size Size) ([]Interval, error) {
	var intervals []Interval

	for i := uint32(0); ; i++ {
		fi := frmIvalEnum{index: i, pixelFormat: uint32(pf), width: size.Width, height: size.Height}
		if err := d.ch.Execute(ReqEnumFrameIntervals, &fi); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			if errors.Is(err, syscall.ENOTTY) {
				return []Interval{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		intervals = append(intervals, Interval{
			Type: ResolutionType(fi.typ),
			Min:  Framerate{Numerator: fi.min.numerator, Denominator: fi.min.denominator},
			Max:  Framerate{Numerator: fi.max.numerator, Denominator: fi.max.denominator},
			Step: Framerate{Numerator: fi.step.numerator, Denominator: fi.step.denominator},
		})
		if fi.typ != frmIvalTypeDiscrete {
			break
		}
	}

	return intervals, nil
}

// CropCapability returns the cropping bounds and pixel aspect ratio.
func (d *Device) CropCapability() (CropCapability, error) {
	cc := cropCap{typ: bufTypeVideoCapture}
	if err := d.ch.Execute(ReqCropCap, &cc); err != nil {
		return CropCapability{}, err
	}
	toRect := func(r rect) Rect {
		return Rect{Left: r.left, Top: r.top, Width: r.width, Height: r.height}
	}
	return CropCapability{
		Bounds:      toRect(cc.bounds),
		Default:     toRect(cc.defrect),
		PixelAspect: Framerate{Numerator: cc.pixelaspect.numerator, Denominator: cc.pixelaspect.denominator},
	}, nil
}

// Format returns the format currently set on the device.
func (d *Device) Format() (FrameFormat, error) {
	f := format{typ: bufTypeVideoCapture}
	if err := d.ch.Execute(ReqGetFmt, &f); err != nil {
		return FrameFormat{}, err
	}
	return frameFormat(f.pix), nil
}

// SetFormat requests a size and pixel format and returns what the driver
// actually chose, which may differ.
func (d *Device) SetFormat(size Size, pf PixelFormat) (FrameFormat, error) {
	f := format{
		typ: bufTypeVideoCapture,
		pix: pixFormat{
			width:       size.Width,
			height:      size.Height,
			pixelformat: uint32(pf),
			field:       fieldNone,
		},
	}
	if err := d.ch.Execute(ReqSetFmt, &f); err != nil {
		return FrameFormat{}, err
	}
	return frameFormat(f.pix), nil
}

// Framerate returns the current frame interval.
func (d *Device) Framerate() (Framerate, error) {
	p := streamParm{typ: bufTypeVideoCapture}
	if err := d.ch.Execute(ReqGetParm, &p); err != nil {
		return Framerate{}, err
	}
	return Framerate{Numerator: p.timeperframe.numerator, Denominator: p.timeperframe.denominator}, nil
}

// SetFramerate requests a frame interval and returns the one applied.
func (d *Device) SetFramerate(fr Framerate) (Framerate, error) {
	p := streamParm{
		typ:          bufTypeVideoCapture,
		timeperframe: fract{numerator: fr.Numerator, denominator: fr.Denominator},
	}
	if err := d.ch.Execute(ReqSetParm, &p); err != nil {
		return Framerate{}, err
	}
	return Framerate{Numerator: p.timeperframe.numerator, Denominator: p.timeperframe.denominator}, nil
}

func frameFormat(p pixFormat) FrameFormat {
	return FrameFormat{
		Width:        p.width,
		Height:       p.height,
		PixelFormat:  PixelFormat(p.pixelformat),
		BytesPerLine: p.bytesperline,
		SizeImage:    p.sizeimage,
	}
}
