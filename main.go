package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/videocap/cmd"
	"github.com/smazurov/videocap/internal/api"
	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/internal/config"
	"github.com/smazurov/videocap/internal/devices"
	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/led"
	"github.com/smazurov/videocap/internal/logging"
	"github.com/smazurov/videocap/internal/metrics/exporters"
	"github.com/smazurov/videocap/internal/systemd"
	"github.com/smazurov/videocap/pkg/linuxav/hotplug"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Device settings; the rest of the [device] table is read as capture settings
	Bus            int    `help:"Device bus id, opens /dev/video<bus>" default:"0" toml:"device.bus_id" env:"DEVICE_BUS_ID"`
	Device         string `help:"Device node path or stable ID, overrides bus" default:"" toml:"device.path" env:"DEVICE_PATH"`
	Buffers        int    `help:"Number of mmap capture buffers" default:"4" toml:"capture.buffers" env:"CAPTURE_BUFFERS"`
	StrictControls bool   `help:"Fail captures when a control cannot be applied" default:"false" toml:"capture.strict_controls" env:"CAPTURE_STRICT_CONTROLS"`
	Stream         bool   `help:"Capture continuously while the server runs" default:"false" toml:"capture.stream" env:"CAPTURE_STREAM"`
	WatchConfig    bool   `help:"Apply [device] control changes while streaming" default:"true" toml:"capture.watch_config" env:"CAPTURE_WATCH_CONFIG"`

	// Metrics settings
	MetricsPrometheus bool   `help:"Serve Prometheus metrics at /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSE        bool   `help:"Publish capture stats on /api/metrics" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`
	MetricsInterval   string `help:"Capture stats interval" default:"1s" toml:"metrics.interval" env:"METRICS_INTERVAL"`

	// Feature settings
	FeaturesLEDControl bool   `help:"Show stream state on the board status LED" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL_ENABLED"`
	FeaturesLEDName    string `help:"sysfs LED name, overrides board detection" default:"" toml:"features.led_name" env:"FEATURES_LED_NAME"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture service logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingV4L2    string `help:"Device driver logging level" default:"info" toml:"logging.v4l2" env:"LOGGING_V4L2"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"capture": opts.LoggingCapture,
				"v4l2":    opts.LoggingV4L2,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
			},
		})
		logger := logging.GetLogger("main")

		settings, err := config.LoadDeviceSettings(opts.Config)
		if err != nil {
			logger.Warn("Failed to load device settings, using driver defaults", "config", opts.Config, "error", err)
		}
		settings.BusID = opts.Bus
		settings.DevicePath = opts.Device
		if resolved, resolveErr := devices.Resolve(opts.Device); resolveErr != nil {
			logger.Warn("Failed to resolve device ID", "device", opts.Device, "error", resolveErr)
		} else {
			settings.DevicePath = resolved
		}

		eventBus := events.New()
		service := capture.NewService(capture.Config{
			Settings:       settings,
			BufferCount:    opts.Buffers,
			StrictControls: opts.StrictControls,
		}, eventBus)

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Device:       service,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheus {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		var statsExporter *exporters.SSEExporter
		if opts.MetricsSSE {
			interval, parseErr := time.ParseDuration(opts.MetricsInterval)
			if parseErr != nil {
				logger.Warn("Invalid metrics interval, using 1s", "value", opts.MetricsInterval)
				interval = time.Second
			}
			statsExporter = exporters.NewSSEExporter(eventBus, interval)
		}

		var ledManager *led.Manager
		if opts.FeaturesLEDControl {
			ledLogger := logging.GetLogger("led")
			ledManager = led.NewManager(led.New(ledLogger, opts.FeaturesLEDName), eventBus, ledLogger)
		}
		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		ctx, cancel := context.WithCancel(context.Background())
		streamDone := make(chan struct{})
		var watcher interface{ Stop() error }

		hooks.OnStart(func() {
			if statsExporter != nil {
				statsExporter.Start(ctx)
			}
			if ledManager != nil {
				ledManager.Start()
			}
			go notifier.Run(ctx, eventBus)

			if opts.Stream {
				if opts.WatchConfig {
					w, watchErr := service.WatchSettings(opts.Config)
					if watchErr != nil {
						logger.Warn("Config watch disabled", "config", opts.Config, "error", watchErr)
					} else {
						watcher = w
					}
				}
				var presence chan hotplug.Event
				if monitor, monErr := hotplug.NewMonitor(hotplug.SubsystemVideo4Linux); monErr != nil {
					logger.Warn("Hotplug monitoring disabled", "error", monErr)
				} else {
					presence = make(chan hotplug.Event, 16)
					go func() {
						defer monitor.Close()
						if runErr := monitor.Run(ctx, presence); runErr != nil && !errors.Is(runErr, context.Canceled) {
							logger.Warn("Hotplug monitor stopped", "error", runErr)
						}
					}()
				}
				go func() {
					defer close(streamDone)
					if streamErr := service.Supervise(ctx, nil, presence); streamErr != nil {
						logger.Error("Continuous capture failed", "device", service.DevicePath(), "error", streamErr)
					}
				}()
			} else {
				close(streamDone)
			}

			notifier.Ready()
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Stopping the stream releases the device buffers.
			cancel()
			<-streamDone
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
			if statsExporter != nil {
				statsExporter.Stop()
			}
			if ledManager != nil {
				ledManager.Stop()
			}
		})
	})

	cli.Root().AddCommand(
		cmd.CreateCaptureCmd(),
		cmd.CreateFormatsCmd(),
		cmd.CreateControlsCmd(),
		cmd.CreateInfoCmd(),
		cmd.CreateStreamCmd(),
	)

	cli.Run()
}
