package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/videocap/internal/events"
)

// registerSSERoutes registers the application event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Capture results, stream state, frames, control reloads and device hotplug",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"capture-success":      events.CaptureSuccessEvent{},
		"capture-error":        events.CaptureErrorEvent{},
		"frame-ready":          events.FrameReadyEvent{},
		"stream-state-changed": events.StreamStateChangedEvent{},
		"controls-reloaded":    events.ControlsReloadedEvent{},
		"device-presence":      events.DevicePresenceEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Frames arrive at the device rate; a slow client drops them.
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.CaptureSuccessEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CaptureErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameReadyEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.StreamStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ControlsReloadedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DevicePresenceEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		forward(ctx, eventCh, send)
	})
}

// forward sends events until the client goes away.
func forward(ctx context.Context, ch <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
