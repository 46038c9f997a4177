// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/videocap/internal/logging"
)

// HealthData is the health check body.
type HealthData struct {
	Status    string `json:"status" example:"ok" doc:"Service status"`
	Message   string `json:"message" example:"API is healthy" doc:"Status message"`
	Device    string `json:"device" example:"/dev/video0" doc:"Capture device node"`
	Streaming bool   `json:"streaming" example:"false" doc:"Whether a continuous capture holds the device"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData is build metadata.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	Modified  bool   `json:"modified" doc:"Built from a tree with uncommitted changes"`
	GoVersion string `json:"go_version" example:"go1.24.1" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// DeviceData describes the capture device.
type DeviceData struct {
	DevicePath   string   `json:"device_path" example:"/dev/video0" doc:"Device node"`
	Driver       string   `json:"driver" example:"uvcvideo" doc:"Kernel driver name"`
	Card         string   `json:"card" example:"HD Pro Webcam C920" doc:"Device name"`
	BusInfo      string   `json:"bus_info" example:"usb-0000:00:14.0-1" doc:"Bus location"`
	Version      string   `json:"version" example:"6.1.0" doc:"Driver version"`
	Capabilities []string `json:"capabilities" example:"[\"video_capture\",\"streaming\"]" doc:"Capabilities of the opened node"`
	CanCapture   bool     `json:"can_capture" doc:"Node supports video capture"`
	CanStream    bool     `json:"can_stream" doc:"Node supports streaming I/O"`
}

// DeviceResponse wraps DeviceData.
type DeviceResponse struct {
	Body DeviceData
}

// FormatInfo is one supported pixel format.
type FormatInfo struct {
	PixelFormat string `json:"pixel_format" example:"YUYV" doc:"FourCC code"`
	Code        uint32 `json:"code" example:"1448695129" doc:"Numeric FourCC"`
	Description string `json:"description" example:"YUYV 4:2:2" doc:"Driver description"`
	Compressed  bool   `json:"compressed" doc:"Compressed format"`
	Emulated    bool   `json:"emulated" doc:"Converted in software by the driver"`
}

// FormatsData lists pixel formats.
type FormatsData struct {
	Formats []FormatInfo `json:"formats" doc:"Supported pixel formats"`
	Count   int          `json:"count" example:"2" doc:"Number of formats"`
}

// FormatsResponse wraps FormatsData.
type FormatsResponse struct {
	Body FormatsData
}

// Framerate is a frame interval expressed as frames per second.
type Framerate struct {
	Numerator   uint32  `json:"numerator" example:"1" doc:"Interval numerator"`
	Denominator uint32  `json:"denominator" example:"30" doc:"Interval denominator"`
	FPS         float64 `json:"fps" example:"30" doc:"Frames per second"`
}

// Resolution is one frame size entry.
type Resolution struct {
	Type       string      `json:"type" example:"discrete" enum:"discrete,continuous,stepwise" doc:"Entry kind"`
	MinWidth   uint32      `json:"min_width" example:"640"`
	MaxWidth   uint32      `json:"max_width" example:"640"`
	StepWidth  uint32      `json:"step_width,omitempty"`
	MinHeight  uint32      `json:"min_height" example:"480"`
	MaxHeight  uint32      `json:"max_height" example:"480"`
	StepHeight uint32      `json:"step_height,omitempty"`
	Framerates []Framerate `json:"framerates,omitempty" doc:"Frame intervals for discrete sizes"`
}

// ResolutionsData lists frame sizes for one format.
type ResolutionsData struct {
	PixelFormat string       `json:"pixel_format" example:"YUYV"`
	Resolutions []Resolution `json:"resolutions"`
}

// ResolutionsResponse wraps ResolutionsData.
type ResolutionsResponse struct {
	Body ResolutionsData
}

// ControlData describes one device control and its current value.
type ControlData struct {
	ID       uint32 `json:"id" example:"9963776" doc:"Control id"`
	Key      string `json:"key" example:"brightness" doc:"Settings key"`
	Name     string `json:"name" example:"Brightness" doc:"Driver name"`
	Type     string `json:"type" example:"integer"`
	Minimum  int32  `json:"minimum" example:"0"`
	Maximum  int32  `json:"maximum" example:"255"`
	Step     int32  `json:"step" example:"1"`
	Default  int32  `json:"default" example:"128"`
	Current  int32  `json:"current" example:"140"`
	Disabled bool   `json:"disabled,omitempty"`
	ReadOnly bool   `json:"read_only,omitempty"`
	Inactive bool   `json:"inactive,omitempty"`
}

// ControlResponse wraps ControlData.
type ControlResponse struct {
	Body ControlData
}

// ControlsData lists controls.
type ControlsData struct {
	Controls []ControlData `json:"controls"`
}

// ControlsResponse wraps ControlsData.
type ControlsResponse struct {
	Body ControlsData
}

// CaptureResponse is a raw frame with its format in headers.
type CaptureResponse struct {
	ContentType string `header:"Content-Type"`
	PixelFormat string `header:"X-Pixel-Format"`
	Width       uint32 `header:"X-Frame-Width"`
	Height      uint32 `header:"X-Frame-Height"`
	Body        []byte
}

// LogsData is a page of retained log entries.
type LogsData struct {
	Entries []logging.Entry `json:"entries"`
	Count   int             `json:"count" example:"100"`
}

// LogsResponse wraps LogsData.
type LogsResponse struct {
	Body LogsData
}

// LogLevelsData maps modules to levels.
type LogLevelsData struct {
	Levels map[string]string `json:"levels" doc:"Effective level per module"`
}

// LogLevelsResponse wraps LogLevelsData.
type LogLevelsResponse struct {
	Body LogLevelsData
}
