package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"syscall"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/videocap/internal/api/models"
	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/device",
		Summary:     "Device",
		Description: "Driver identity and capabilities of the capture device",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(_ context.Context, _ *struct{}) (*models.DeviceResponse, error) {
		c, err := s.device.Capability()
		if err != nil {
			return nil, s.deviceError("query device", err)
		}
		return &models.DeviceResponse{Body: models.DeviceData{
			DevicePath:   s.device.DevicePath(),
			Driver:       c.Driver,
			Card:         c.Card,
			BusInfo:      c.BusInfo,
			Version:      fmt.Sprintf("%d.%d.%d", c.Version>>16&0xff, c.Version>>8&0xff, c.Version&0xff),
			Capabilities: c.Names(),
			CanCapture:   c.CanCapture(),
			CanStream:    c.CanStream(),
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-formats",
		Method:      http.MethodGet,
		Path:        "/api/formats",
		Summary:     "Pixel formats",
		Description: "Pixel formats the device can capture",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(_ context.Context, _ *struct{}) (*models.FormatsResponse, error) {
		formats, err := s.device.Formats()
		if err != nil {
			return nil, s.deviceError("list formats", err)
		}
		out := make([]models.FormatInfo, 0, len(formats))
		for _, f := range formats {
			out = append(out, models.FormatInfo{
				PixelFormat: f.PixelFormat.String(),
				Code:        uint32(f.PixelFormat),
				Description: f.Description,
				Compressed:  f.Compressed,
				Emulated:    f.Emulated,
			})
		}
		return &models.FormatsResponse{Body: models.FormatsData{Formats: out, Count: len(out)}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-resolutions",
		Method:      http.MethodGet,
		Path:        "/api/formats/{format}/resolutions",
		Summary:     "Resolutions",
		Description: "Frame sizes and intervals for one pixel format",
		Tags:        []string{"device"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 500},
	}, func(_ context.Context, input *struct {
		Format string `path:"format" example:"YUYV" doc:"FourCC or format name"`
	}) (*models.ResolutionsResponse, error) {
		pf, err := v4l2.ParsePixelFormat(input.Format)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid pixel format", err)
		}
		res, err := s.device.Resolutions(pf)
		if err != nil {
			return nil, s.deviceError("list resolutions", err)
		}
		out := make([]models.Resolution, 0, len(res))
		for _, r := range res {
			out = append(out, resolutionModel(r))
		}
		return &models.ResolutionsResponse{Body: models.ResolutionsData{
			PixelFormat: pf.String(),
			Resolutions: out,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/controls",
		Summary:     "Controls",
		Description: "Every known control the device supports, with its current value",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(_ context.Context, _ *struct{}) (*models.ControlsResponse, error) {
		values, err := s.device.Controls()
		if err != nil {
			return nil, s.deviceError("list controls", err)
		}
		out := make([]models.ControlData, 0, len(values))
		for _, v := range values {
			out = append(out, controlModel(v))
		}
		return &models.ControlsResponse{Body: models.ControlsData{Controls: out}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-control",
		Method:      http.MethodGet,
		Path:        "/api/controls/{control}",
		Summary:     "Control",
		Description: "Range, default and current value of one control",
		Tags:        []string{"controls"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(_ context.Context, input *struct {
		Control string `path:"control" example:"brightness" doc:"Control key or numeric id"`
	}) (*models.ControlResponse, error) {
		id, err := v4l2.ParseControl(input.Control)
		if err != nil {
			return nil, huma.Error404NotFound("Unknown control", err)
		}
		v, err := s.device.Control(id)
		if errors.Is(err, syscall.EINVAL) {
			return nil, huma.Error404NotFound("Control not supported by device", err)
		}
		if err != nil {
			return nil, s.deviceError("query control", err)
		}
		return &models.ControlResponse{Body: controlModel(v)}, nil
	})
}

func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "capture-frame",
		Method:      http.MethodPost,
		Path:        "/api/capture",
		Summary:     "Capture",
		Description: "Capture one frame and return its raw bytes. Format and size are in the X-Pixel-Format and X-Frame-* headers.",
		Tags:        []string{"capture"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 409, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.CaptureResponse, error) {
		res, err := s.device.Capture(ctx)
		if err != nil {
			return nil, s.deviceError("capture", err)
		}
		return &models.CaptureResponse{
			ContentType: contentType(res.PixelFormat),
			PixelFormat: res.PixelFormat.String(),
			Width:       res.Width,
			Height:      res.Height,
			Body:        res.Data,
		}, nil
	})
}

// deviceError maps capture failures onto HTTP statuses.
func (s *Server) deviceError(op string, err error) error {
	switch {
	case errors.Is(err, capture.ErrBusy):
		return huma.Error409Conflict("Device is streaming", err)
	case errors.Is(err, v4l2.ErrUnsupportedPlatform):
		return huma.Error501NotImplemented("Capture is not supported on this platform", err)
	case errors.Is(err, fs.ErrNotExist):
		return huma.Error404NotFound("Device not found", err)
	}
	s.logger.Error("Device request failed", "op", op, "device", s.device.DevicePath(), "error", err)
	return huma.Error500InternalServerError("Failed to "+op, err)
}

func contentType(pf v4l2.PixelFormat) string {
	if pf == v4l2.PixelFormatMJPEG {
		return "image/jpeg"
	}
	return "application/octet-stream"
}

func resolutionModel(r capture.ResolutionInfo) models.Resolution {
	out := models.Resolution{
		Type:       r.Type.String(),
		MinWidth:   r.MinWidth,
		MaxWidth:   r.MaxWidth,
		StepWidth:  r.StepWidth,
		MinHeight:  r.MinHeight,
		MaxHeight:  r.MaxHeight,
		StepHeight: r.StepHeight,
	}
	for _, iv := range r.Intervals {
		out.Framerates = append(out.Framerates, framerateModel(iv.Min))
		if iv.Max != iv.Min {
			out.Framerates = append(out.Framerates, framerateModel(iv.Max))
		}
	}
	return out
}

func framerateModel(f v4l2.Framerate) models.Framerate {
	return models.Framerate{Numerator: f.Numerator, Denominator: f.Denominator, FPS: f.FPS()}
}

func controlModel(v v4l2.DeviceValue) models.ControlData {
	return models.ControlData{
		ID:       uint32(v.ID),
		Key:      v.ID.String(),
		Name:     v.Name,
		Type:     v.Type.String(),
		Minimum:  v.Minimum,
		Maximum:  v.Maximum,
		Step:     v.Step,
		Default:  v.Default,
		Current:  v.Current,
		Disabled: v.Disabled(),
		ReadOnly: v.ReadOnly(),
		Inactive: v.Inactive(),
	}
}
