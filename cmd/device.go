// Package cmd holds the videocap subcommands that talk to the device
// directly, without the HTTP server.
package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/internal/config"
	"github.com/smazurov/videocap/internal/devices"
	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/logging"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
	"github.com/spf13/cobra"
)

// deviceFlags are shared by every subcommand. The [device] table of the
// config file is the base; flags that were set override it.
type deviceFlags struct {
	configFile string
	bus        int
	device     string
	format     string
	size       string
	buffers    int
	strict     bool
	controls   map[string]string
	logJSON    bool

	// open replaces the real device in tests.
	open capture.Opener
}

func (f *deviceFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "config.toml", "Configuration file with a [device] table")
	fs.IntVarP(&f.bus, "bus", "b", 0, "Device bus id, opens /dev/video<bus>")
	fs.StringVarP(&f.device, "device", "d", "", "Device node path or stable ID (usb-..., platform-...), overrides --bus")
	fs.StringVarP(&f.format, "format", "f", "", "Pixel format FourCC, e.g. YUYV or MJPG")
	fs.StringVarP(&f.size, "size", "s", "", "Capture size as WIDTHxHEIGHT")
	fs.IntVar(&f.buffers, "buffers", v4l2.DefaultBufferCount, "Number of mmap buffers")
	fs.BoolVar(&f.strict, "strict", false, "Fail when a control cannot be applied")
	fs.StringToStringVar(&f.controls, "set", nil, "Control values, e.g. --set brightness=40,gain=10")
	fs.BoolVar(&f.logJSON, "log-json", false, "Log as JSON")
}

// settings merges the config file with the flags that were changed.
func (f *deviceFlags) settings(cmd *cobra.Command) (v4l2.ConnectionSettings, error) {
	s, err := config.LoadDeviceSettings(f.configFile)
	if err != nil {
		return s, err
	}

	fs := cmd.Flags()
	if fs.Changed("bus") {
		s.BusID = f.bus
		s.DevicePath = ""
	}
	if fs.Changed("device") {
		s.DevicePath = f.device
	}
	if s.DevicePath, err = devices.Resolve(s.DevicePath); err != nil {
		return s, err
	}
	if f.format != "" {
		pf, err := v4l2.ParsePixelFormat(f.format)
		if err != nil {
			return s, err
		}
		s.PixelFormat = &pf
	}
	if f.size != "" {
		size, err := parseSize(f.size)
		if err != nil {
			return s, err
		}
		s.CaptureSize = &size
	}
	for name, raw := range f.controls {
		id, err := v4l2.ParseControl(name)
		if err != nil {
			return s, err
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return s, fmt.Errorf("control %s: %w", name, err)
		}
		if err := s.SetControl(id, int32(v)); err != nil {
			return s, err
		}
	}
	return s, nil
}

// service builds a capture service from the merged settings.
func (f *deviceFlags) service(cmd *cobra.Command, bus *events.Bus) (*capture.Service, error) {
	s, err := f.settings(cmd)
	if err != nil {
		return nil, err
	}
	return capture.NewService(capture.Config{
		Settings:       s,
		BufferCount:    f.buffers,
		StrictControls: f.strict,
		Open:           f.open,
	}, bus), nil
}

// initLogging applies the [logging] table of the config file.
func (f *deviceFlags) initLogging() *slog.Logger {
	cfg := config.LoadLoggingConfig(f.configFile)
	if f.logJSON {
		cfg.Format = "json"
	}
	logging.Initialize(cfg)
	return logging.GetLogger("cli")
}

// parseSize parses "1280x720".
func parseSize(s string) (v4l2.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return v4l2.Size{}, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	width, err := strconv.ParseUint(w, 10, 32)
	if err != nil {
		return v4l2.Size{}, fmt.Errorf("invalid width in %q: %w", s, err)
	}
	height, err := strconv.ParseUint(h, 10, 32)
	if err != nil {
		return v4l2.Size{}, fmt.Errorf("invalid height in %q: %w", s, err)
	}
	if width == 0 || height == 0 {
		return v4l2.Size{}, fmt.Errorf("invalid size %q", s)
	}
	return v4l2.Size{Width: uint32(width), Height: uint32(height)}, nil
}

// exitOnError turns RunE into Run: a failure is logged and the process
// exits non-zero.
func exitOnError(cmd *cobra.Command) *cobra.Command {
	runE := cmd.RunE
	cmd.RunE = nil
	cmd.Run = func(c *cobra.Command, args []string) {
		if err := runE(c, args); err != nil {
			logging.GetLogger("cli").Error("Command failed", "command", c.Name(), "error", err, "stage", capture.Stage(err))
			exit(1)
		}
	}
	return cmd
}
