// Package api serves the capture device over HTTP with huma.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/videocap/internal/api/models"
	"github.com/smazurov/videocap/internal/capture"
	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/logging"
	"github.com/smazurov/videocap/internal/version"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// Device is the capture service as seen by the API.
type Device interface {
	DevicePath() string
	Streaming() bool
	Capability() (v4l2.Capability, error)
	Formats() ([]v4l2.FormatInfo, error)
	Resolutions(pf v4l2.PixelFormat) ([]capture.ResolutionInfo, error)
	Control(id v4l2.ControlID) (v4l2.DeviceValue, error)
	Controls() ([]v4l2.DeviceValue, error)
	Capture(ctx context.Context) (*capture.Result, error)
}

// Options configures the server.
type Options struct {
	AuthUsername string
	AuthPassword string
	Device       Device
	EventBus     *events.Bus
	// PrometheusHandler is served at /metrics when set.
	PrometheusHandler http.Handler
}

// Server is the huma API server.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	device     Device
	eventBus   *events.Bus
	logger     *slog.Logger

	logSeq      atomic.Uint64
	unsubscribe func()
}

// NewServer builds the API and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("videocap API", version.String())
	config.Info.Description = "Frame capture from a V4L2 device"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	bus := opts.EventBus
	if bus == nil {
		bus = events.New()
	}

	s := &Server{
		api:      api,
		mux:      mux,
		device:   opts.Device,
		eventBus: bus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.unsubscribe = logging.GetHistory().Subscribe(s.forwardLog)
	s.registerRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// API returns the huma API, e.g. for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Start listens on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr, "device", s.device.DevicePath())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop shuts the server down, waiting up to ctx for in-flight captures.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// forwardLog republishes log history entries on the bus for SSE.
func (s *Server) forwardLog(e logging.Entry) {
	events.Publish(s.eventBus, events.LogEntryEvent{
		Seq:        s.logSeq.Add(1),
		Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
		Level:      e.Level,
		Module:     e.Module,
		Message:    e.Message,
		Attributes: e.Attributes,
	})
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:    "ok",
				Message:   "API is healthy",
				Device:    s.device.DevicePath(),
				Streaming: s.device.Streaming(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				Modified:  info.Modified,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerDeviceRoutes()
	s.registerCaptureRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
	s.registerMetricsRoutes()
}

// withAuth returns the basic auth security requirement.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}

// basicAuthMiddleware checks credentials on operations that declare
// security. SSE clients that cannot set headers may pass base64
// "user:pass" in the auth query parameter.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	deny := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="videocap"`)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var encoded string
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				deny(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			deny(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			deny(ctx, "Invalid credentials format", err)
			return
		}
		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			deny(ctx, "Invalid credentials format")
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !userOK || !passOK {
			deny(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}
