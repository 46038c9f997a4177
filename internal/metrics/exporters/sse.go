package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/metrics"
)

// SSEExporter periodically publishes a CaptureStatsEvent per device.
type SSEExporter struct {
	bus      *events.Bus
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	lastFrames map[string]uint64
	lastTick   time.Time
}

// NewSSEExporter creates an exporter publishing to bus every interval.
func NewSSEExporter(bus *events.Bus, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &SSEExporter{
		bus:        bus,
		interval:   interval,
		lastFrames: make(map[string]uint64),
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.lastTick = time.Now()
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the exporter and waits for the loop to exit.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.publish(now)
		}
	}
}

// publish emits one snapshot per device. FPS is the frame delta since the
// previous tick.
func (s *SSEExporter) publish(now time.Time) {
	elapsed := now.Sub(s.lastTick).Seconds()
	s.lastTick = now

	for device, st := range metrics.AllStats() {
		var fps float64
		if prev, ok := s.lastFrames[device]; ok && elapsed > 0 && st.Frames >= prev {
			fps = float64(st.Frames-prev) / elapsed
		}
		s.lastFrames[device] = st.Frames

		events.Publish(s.bus, events.CaptureStatsEvent{
			DevicePath:    device,
			FPS:           fps,
			Frames:        st.Frames,
			Errors:        st.Errors,
			BuffersMapped: st.BuffersMapped,
			State:         st.StateName,
		})
	}
}

// EventTypes maps SSE event names to their payload types for endpoint
// registration.
func EventTypes() map[string]any {
	return map[string]any{
		"capture-stats": events.CaptureStatsEvent{},
	}
}
