package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/metrics/exporters"
)

// registerMetricsRoutes registers the periodic capture statistics stream.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Metrics Server-Sent Events Stream",
		Description: "Frame rate, error count and stream state of the capture device",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.EventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)
		unsubscribe := events.SubscribeToChannel[events.CaptureStatsEvent](s.eventBus, eventCh)
		defer unsubscribe()

		forward(ctx, eventCh, send)
	})
}
