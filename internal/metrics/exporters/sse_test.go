package exporters

import (
	"context"
	"testing"
	"time"

	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/metrics"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

func TestSSEExporterPublishes(t *testing.T) {
	const device = "/dev/video-sse"
	metrics.DeleteDevice(device)
	defer metrics.DeleteDevice(device)

	metrics.SetStreamState(device, v4l2.StateStreaming)
	metrics.SetBuffersMapped(device, 4)
	metrics.RecordFrame(device, 100)

	bus := events.New()
	received := make(chan events.CaptureStatsEvent, 16)
	defer events.Subscribe(bus, func(e events.CaptureStatsEvent) {
		if e.DevicePath == device {
			received <- e
		}
	})()

	exp := NewSSEExporter(bus, 20*time.Millisecond)
	exp.Start(context.Background())
	defer exp.Stop()

	select {
	case e := <-received:
		if e.State != "streaming" || e.BuffersMapped != 4 || e.Frames != 1 {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no stats event published")
	}
}

func TestSSEExporterFPS(t *testing.T) {
	const device = "/dev/video-fps"
	metrics.DeleteDevice(device)
	defer metrics.DeleteDevice(device)
	metrics.RecordFrame(device, 1)

	exp := NewSSEExporter(events.New(), time.Second)
	start := time.Now()
	exp.lastTick = start
	exp.publish(start.Add(time.Second))

	for range 30 {
		metrics.RecordFrame(device, 1)
	}

	bus := events.New()
	exp.bus = bus
	got := make(chan events.CaptureStatsEvent, 16)
	defer events.Subscribe(bus, func(e events.CaptureStatsEvent) {
		if e.DevicePath == device {
			got <- e
		}
	})()
	exp.publish(start.Add(2 * time.Second))

	select {
	case e := <-got:
		if e.FPS < 29.9 || e.FPS > 30.1 {
			t.Errorf("FPS = %v, want 30", e.FPS)
		}
	case <-time.After(time.Second):
		t.Fatal("no stats event published")
	}
}

func TestSSEExporterStopWithoutStart(_ *testing.T) {
	NewSSEExporter(events.New(), 0).Stop()
}

func TestEventTypes(t *testing.T) {
	if _, ok := EventTypes()["capture-stats"].(events.CaptureStatsEvent); !ok {
		t.Error("capture-stats not registered")
	}
}
