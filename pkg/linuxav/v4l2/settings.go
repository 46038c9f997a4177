package v4l2

import (
	"fmt"
	"maps"
	"slices"
)

// DevicePathPrefix is joined with a bus id to form the device node path.
const DevicePathPrefix = "/dev/video"

// ControlID identifies a device control.
type ControlID uint32

const (
	cidBase       ControlID = 0x00980900
	cidCameraBase ControlID = 0x009a0900
)

// Controls used by ConnectionSettings.
const (
	ControlBrightness              = cidBase + 0
	ControlContrast                = cidBase + 1
	ControlSaturation              = cidBase + 2
	ControlGamma                   = cidBase + 16
	ControlExposure                = cidBase + 17
	ControlGain                    = cidBase + 19
	ControlHorizontalFlip          = cidBase + 20
	ControlVerticalFlip            = cidBase + 21
	ControlPowerLineFrequency      = cidBase + 24
	ControlWhiteBalanceTemperature = cidBase + 26
	ControlSharpness               = cidBase + 27
	ControlColorEffect             = cidBase + 31
	ControlRotate                  = cidBase + 34
	ControlExposureType            = cidCameraBase + 1
	ControlExposureTime            = cidCameraBase + 2
	ControlWhiteBalanceEffect      = cidCameraBase + 20
	ControlSceneMode               = cidCameraBase + 26
)

var controlNames = map[ControlID]string{
	ControlBrightness:              "brightness",
	ControlContrast:                "contrast",
	ControlSaturation:              "saturation",
	ControlGamma:                   "gamma",
	ControlExposure:                "exposure",
	ControlGain:                    "gain",
	ControlHorizontalFlip:          "horizontal_flip",
	ControlVerticalFlip:            "vertical_flip",
	ControlPowerLineFrequency:      "power_line_frequency",
	ControlWhiteBalanceTemperature: "white_balance_temperature",
	ControlSharpness:               "sharpness",
	ControlColorEffect:             "color_effect",
	ControlRotate:                  "rotate",
	ControlExposureType:            "exposure_type",
	ControlExposureTime:            "exposure_time",
	ControlWhiteBalanceEffect:      "white_balance_effect",
	ControlSceneMode:               "scene_mode",
}

func (c ControlID) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(c))
}

// KnownControls returns every named control, ordered by id.
func KnownControls() []ControlID {
	return slices.Sorted(maps.Keys(controlNames))
}

// ParseControl resolves a control by name or by numeric id.
func ParseControl(s string) (ControlID, error) {
	for id, name := range controlNames {
		if name == s {
			return id, nil
		}
	}
	var v uint32
	if _, err := fmt.Sscanf(s, "0x%x", &v); err == nil {
		return ControlID(v), nil
	}
	if _, err := fmt.Sscanf(s, "%d", &v); err == nil {
		return ControlID(v), nil
	}
	return 0, fmt.Errorf("unknown control %q", s)
}

// ExposureType selects the exposure mode.
type ExposureType int32

// Exposure modes.
const (
	ExposureAuto             ExposureType = 0
	ExposureManual           ExposureType = 1
	ExposureShutterPriority  ExposureType = 2
	ExposureAperturePriority ExposureType = 3
)

// manualTime reports whether the mode honours an explicit exposure time.
func (e ExposureType) manualTime() bool {
	return e == ExposureManual || e == ExposureShutterPriority
}

// PowerLineFrequency configures anti-flicker filtering.
type PowerLineFrequency int32

// Power line frequencies.
const (
	PowerLineDisabled PowerLineFrequency = 0
	PowerLine50Hz     PowerLineFrequency = 1
	PowerLine60Hz     PowerLineFrequency = 2
	PowerLineAuto     PowerLineFrequency = 3
)

// WhiteBalanceEffect is the auto or preset white balance mode.
type WhiteBalanceEffect int32

// White balance presets.
const (
	WhiteBalanceManual WhiteBalanceEffect = iota
	WhiteBalanceAuto
	WhiteBalanceIncandescent
	WhiteBalanceFluorescent
	WhiteBalanceFluorescentH
	WhiteBalanceHorizon
	WhiteBalanceDaylight
	WhiteBalanceFlash
	WhiteBalanceCloudy
	WhiteBalanceShade
)

// ColorEffect is an in-sensor colour effect.
type ColorEffect int32

// Colour effects.
const (
	ColorEffectNone ColorEffect = iota
	ColorEffectBlackWhite
	ColorEffectSepia
	ColorEffectNegative
	ColorEffectEmboss
	ColorEffectSketch
	ColorEffectSkyBlue
	ColorEffectGrassGreen
	ColorEffectSkinWhiten
	ColorEffectVivid
	ColorEffectAqua
	ColorEffectArtFreeze
	ColorEffectSilhouette
	ColorEffectSolarization
	ColorEffectAntique
	ColorEffectSetCbCr
)

// SceneMode is a camera scene preset.
type SceneMode int32

// Scene presets.
const (
	SceneModeNone SceneMode = iota
	SceneModeBacklight
	SceneModeBeachSnow
	SceneModeCandleLight
	SceneModeDawnDusk
	SceneModeFallColors
	SceneModeFireworks
	SceneModeLandscape
	SceneModeNight
	SceneModePartyIndoor
	SceneModePortrait
	SceneModeSports
	SceneModeSunset
	SceneModeText
)

// ConnectionSettings describes the device to open and the capture
// parameters to apply. A nil field is unset and gets filled from the device
// default during negotiation; a non-nil field is never overwritten, even if
// it holds zero.
type ConnectionSettings struct {
	BusID      int    `toml:"bus_id" json:"bus_id"`
	DevicePath string `toml:"path,omitempty" json:"path,omitempty"`

	CaptureSize             *Size               `toml:"capture_size,omitempty" json:"capture_size,omitempty"`
	PixelFormat             *PixelFormat        `toml:"pixel_format,omitempty" json:"pixel_format,omitempty"`
	ExposureType            *ExposureType       `toml:"exposure_type,omitempty" json:"exposure_type,omitempty"`
	ExposureTime            *int32              `toml:"exposure_time,omitempty" json:"exposure_time,omitempty"`
	Sharpness               *int32              `toml:"sharpness,omitempty" json:"sharpness,omitempty"`
	Contrast                *int32              `toml:"contrast,omitempty" json:"contrast,omitempty"`
	Brightness              *int32              `toml:"brightness,omitempty" json:"brightness,omitempty"`
	Saturation              *int32              `toml:"saturation,omitempty" json:"saturation,omitempty"`
	Gain                    *int32              `toml:"gain,omitempty" json:"gain,omitempty"`
	Gamma                   *int32              `toml:"gamma,omitempty" json:"gamma,omitempty"`
	PowerLineFrequency      *PowerLineFrequency `toml:"power_line_frequency,omitempty" json:"power_line_frequency,omitempty"`
	WhiteBalanceEffect      *WhiteBalanceEffect `toml:"white_balance_effect,omitempty" json:"white_balance_effect,omitempty"`
	WhiteBalanceTemperature *int32              `toml:"white_balance_temperature,omitempty" json:"white_balance_temperature,omitempty"`
	ColorEffect             *ColorEffect        `toml:"color_effect,omitempty" json:"color_effect,omitempty"`
	SceneMode               *SceneMode          `toml:"scene_mode,omitempty" json:"scene_mode,omitempty"`
	Rotate                  *int32              `toml:"rotate,omitempty" json:"rotate,omitempty"`
	HorizontalFlip          *bool               `toml:"horizontal_flip,omitempty" json:"horizontal_flip,omitempty"`
	VerticalFlip            *bool               `toml:"vertical_flip,omitempty" json:"vertical_flip,omitempty"`
}

// Path returns the device node path.
func (s ConnectionSettings) Path() string {
	if s.DevicePath != "" {
		return s.DevicePath
	}
	return fmt.Sprintf("%s%d", DevicePathPrefix, s.BusID)
}

// Ptr returns a pointer to v, for filling optional settings.
func Ptr[T any](v T) *T {
	return &v
}

// tunable binds one optional setting to its device control.
type tunable struct {
	id  ControlID
	get func(*ConnectionSettings) (int32, bool)
	set func(*ConnectionSettings, int32)
}

func intTunable(id ControlID, field func(*ConnectionSettings) **int32) tunable {
	return tunable{
		id: id,
		get: func(s *ConnectionSettings) (int32, bool) {
			p := *field(s)
			if p == nil {
				return 0, false
			}
			return *p, true
		},
		set: func(s *ConnectionSettings, v int32) { *field(s) = &v },
	}
}

func enumTunable[T ~int32](id ControlID, field func(*ConnectionSettings) **T) tunable {
	return tunable{
		id: id,
		get: func(s *ConnectionSettings) (int32, bool) {
			p := *field(s)
			if p == nil {
				return 0, false
			}
			return int32(*p), true
		},
		set: func(s *ConnectionSettings, v int32) {
			t := T(v)
			*field(s) = &t
		},
	}
}

func boolTunable(id ControlID, field func(*ConnectionSettings) **bool) tunable {
	return tunable{
		id: id,
		get: func(s *ConnectionSettings) (int32, bool) {
			p := *field(s)
			if p == nil {
				return 0, false
			}
			if *p {
				return 1, true
			}
			return 0, true
		},
		set: func(s *ConnectionSettings, v int32) {
			b := v != 0
			*field(s) = &b
		},
	}
}

// tunables lists every control setting in the order it is applied.
// Exposure type precedes exposure time because drivers reject a manual
// time while auto exposure is active.
var tunables = []tunable{
	enumTunable(ControlExposureType, func(s *ConnectionSettings) **ExposureType { return &s.ExposureType }),
	intTunable(ControlExposureTime, func(s *ConnectionSettings) **int32 { return &s.ExposureTime }),
	intTunable(ControlBrightness, func(s *ConnectionSettings) **int32 { return &s.Brightness }),
	intTunable(ControlContrast, func(s *ConnectionSettings) **int32 { return &s.Contrast }),
	intTunable(ControlSaturation, func(s *ConnectionSettings) **int32 { return &s.Saturation }),
	intTunable(ControlSharpness, func(s *ConnectionSettings) **int32 { return &s.Sharpness }),
	intTunable(ControlGain, func(s *ConnectionSettings) **int32 { return &s.Gain }),
	intTunable(ControlGamma, func(s *ConnectionSettings) **int32 { return &s.Gamma }),
	enumTunable(ControlPowerLineFrequency, func(s *ConnectionSettings) **PowerLineFrequency { return &s.PowerLineFrequency }),
	enumTunable(ControlWhiteBalanceEffect, func(s *ConnectionSettings) **WhiteBalanceEffect { return &s.WhiteBalanceEffect }),
	intTunable(ControlWhiteBalanceTemperature, func(s *ConnectionSettings) **int32 { return &s.WhiteBalanceTemperature }),
	enumTunable(ControlColorEffect, func(s *ConnectionSettings) **ColorEffect { return &s.ColorEffect }),
	enumTunable(ControlSceneMode, func(s *ConnectionSettings) **SceneMode { return &s.SceneMode }),
	intTunable(ControlRotate, func(s *ConnectionSettings) **int32 { return &s.Rotate }),
	boolTunable(ControlHorizontalFlip, func(s *ConnectionSettings) **bool { return &s.HorizontalFlip }),
	boolTunable(ControlVerticalFlip, func(s *ConnectionSettings) **bool { return &s.VerticalFlip }),
}

// Controls returns the explicitly set control values in application order.
func (s *ConnectionSettings) Controls() []ControlValue {
	var out []ControlValue
	for _, t := range tunables {
		if v, ok := t.get(s); ok {
			out = append(out, ControlValue{ID: t.id, Value: v})
		}
	}
	return out
}

// ControlValue is a control id paired with a value.
type ControlValue struct {
	ID    ControlID
	Value int32
}

// Diff returns the controls whose value in next differs from s, in
// application order. Controls cleared in next are not reported.
func (s *ConnectionSettings) Diff(next *ConnectionSettings) []ControlValue {
	var out []ControlValue
	for _, t := range tunables {
		nv, ok := t.get(next)
		if !ok {
			continue
		}
		if ov, had := t.get(s); had && ov == nv {
			continue
		}
		out = append(out, ControlValue{ID: t.id, Value: nv})
	}
	return out
}

// SetControl sets the optional field bound to id. It fails for controls
// ConnectionSettings has no field for.
func (s *ConnectionSettings) SetControl(id ControlID, v int32) error {
	for _, t := range tunables {
		if t.id == id {
			t.set(s, v)
			return nil
		}
	}
	return fmt.Errorf("v4l2: %s is not a settings control", id)
}
