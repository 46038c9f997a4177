// Package metrics provides Prometheus metrics for the capture pipeline and
// a cached per-device snapshot for the API and SSE.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

const namespace = "videocap"

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames dequeued from the device",
	}, []string{"device"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "errors_total",
		Help:      "Capture failures by pipeline stage",
	}, []string{"device", "stage"})

	captureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "duration_seconds",
		Help:      "Single-frame capture time including negotiation and teardown",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"device"})

	buffersMapped = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffers_mapped",
		Help:      "Driver buffers currently mapped into the process",
	}, []string{"device"})

	streamState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_state",
		Help:      "Streaming state machine position (0 idle .. 6 stopped)",
	}, []string{"device"})

	frameBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "frame_bytes",
		Help:      "Payload size of the most recent frame",
	}, []string{"device"})

	cache   = make(map[string]*DeviceStats)
	cacheMu sync.RWMutex
)

// DeviceStats is the cached view of one device's metrics.
type DeviceStats struct {
	Frames        uint64           `json:"frames"`
	Errors        uint64           `json:"errors"`
	LastFrameSize int              `json:"last_frame_bytes"`
	LastCapture   time.Duration    `json:"last_capture_ns"`
	BuffersMapped int              `json:"buffers_mapped"`
	State         v4l2.StreamState `json:"-"`
	StateName     string           `json:"state"`
}

// RecordFrame counts one frame of size bytes.
func RecordFrame(device string, size int) {
	framesTotal.WithLabelValues(device).Inc()
	frameBytes.WithLabelValues(device).Set(float64(size))
	update(device, func(s *DeviceStats) {
		s.Frames++
		s.LastFrameSize = size
	})
}

// RecordError counts a failure in stage ("negotiate", "allocate",
// "stream", "dequeue", "write").
func RecordError(device, stage string) {
	errorsTotal.WithLabelValues(device, stage).Inc()
	update(device, func(s *DeviceStats) { s.Errors++ })
}

// ObserveCapture records how long a single-frame capture took.
func ObserveCapture(device string, d time.Duration) {
	captureDuration.WithLabelValues(device).Observe(d.Seconds())
	update(device, func(s *DeviceStats) { s.LastCapture = d })
}

// SetBuffersMapped sets the live mapping count.
func SetBuffersMapped(device string, n int) {
	buffersMapped.WithLabelValues(device).Set(float64(n))
	update(device, func(s *DeviceStats) { s.BuffersMapped = n })
}

// SetStreamState records a state machine transition.
func SetStreamState(device string, state v4l2.StreamState) {
	streamState.WithLabelValues(device).Set(float64(state))
	update(device, func(s *DeviceStats) {
		s.State = state
		s.StateName = state.String()
	})
}

// DeleteDevice removes all series and cached stats for device.
func DeleteDevice(device string) {
	framesTotal.DeleteLabelValues(device)
	errorsTotal.DeletePartialMatch(prometheus.Labels{"device": device})
	captureDuration.DeleteLabelValues(device)
	buffersMapped.DeleteLabelValues(device)
	streamState.DeleteLabelValues(device)
	frameBytes.DeleteLabelValues(device)

	cacheMu.Lock()
	delete(cache, device)
	cacheMu.Unlock()
}

// Stats returns a copy of device's cached stats, or nil if nothing was
// recorded for it.
func Stats(device string) *DeviceStats {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	if s, ok := cache[device]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// AllStats returns copies of every device's cached stats.
func AllStats() map[string]*DeviceStats {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	out := make(map[string]*DeviceStats, len(cache))
	for device, s := range cache {
		dup := *s
		out[device] = &dup
	}
	return out
}

func update(device string, fn func(*DeviceStats)) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	s, ok := cache[device]
	if !ok {
		s = &DeviceStats{StateName: v4l2.StateIdle.String()}
		cache[device] = s
	}
	fn(s)
}
