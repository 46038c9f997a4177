package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureSuccessEvent, 1)

	unsub := Subscribe(bus, func(e CaptureSuccessEvent) {
		received <- e
	})
	defer unsub()

	ev := CaptureSuccessEvent{
		DevicePath:  "/dev/video0",
		PixelFormat: "YUYV",
		Width:       640,
		Height:      480,
		Bytes:       614400,
		Timestamp:   "2025-01-27T10:30:00Z",
	}
	Publish(bus, ev)

	select {
	case got := <-received:
		if got != ev {
			t.Errorf("got %+v, want %+v", got, ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan FrameReadyEvent, 1)
	received2 := make(chan FrameReadyEvent, 1)

	defer Subscribe(bus, func(e FrameReadyEvent) { received1 <- e })()
	defer Subscribe(bus, func(e FrameReadyEvent) { received2 <- e })()

	Publish(bus, FrameReadyEvent{DevicePath: "/dev/video0", Sequence: 7})

	for _, ch := range []chan FrameReadyEvent{received1, received2} {
		select {
		case e := <-ch:
			if e.Sequence != 7 {
				t.Errorf("Sequence = %d, want 7", e.Sequence)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber missed event")
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := Subscribe(bus, func(e CaptureErrorEvent) {
		received <- e
	})

	Publish(bus, CaptureErrorEvent{DevicePath: "/dev/video0"})
	<-received

	unsub()

	Publish(bus, CaptureErrorEvent{DevicePath: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	frames := make(chan FrameReadyEvent, 1)
	states := make(chan StreamStateChangedEvent, 1)

	defer Subscribe(bus, func(e FrameReadyEvent) { frames <- e })()
	defer Subscribe(bus, func(e StreamStateChangedEvent) { states <- e })()

	Publish(bus, StreamStateChangedEvent{From: "queued", To: "streaming"})

	select {
	case e := <-states:
		if e.To != "streaming" {
			t.Errorf("To = %q", e.To)
		}
	case <-time.After(time.Second):
		t.Fatal("state event not delivered")
	}
	select {
	case <-frames:
		t.Fatal("frame subscriber received a state event")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_NilPublish(_ *testing.T) {
	var bus *Bus
	Publish(bus, FrameReadyEvent{})
}

func TestBus_ThreadSafety(t *testing.T) {
	bus := New()
	var mu sync.Mutex
	count := 0
	done := make(chan struct{})

	const publishers, perPublisher = 8, 50
	defer Subscribe(bus, func(FrameReadyEvent) {
		mu.Lock()
		count++
		if count == publishers*perPublisher {
			close(done)
		}
		mu.Unlock()
	})()

	var wg sync.WaitGroup
	for range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perPublisher {
				Publish(bus, FrameReadyEvent{Sequence: uint32(i)})
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		mu.Lock()
		defer mu.Unlock()
		t.Fatalf("received %d of %d events", count, publishers*perPublisher)
	}
}

func TestEventTypesDistinct(t *testing.T) {
	all := []Event{
		CaptureSuccessEvent{},
		CaptureErrorEvent{},
		FrameReadyEvent{},
		StreamStateChangedEvent{},
		ControlsReloadedEvent{},
		CaptureStatsEvent{},
		LogEntryEvent{},
	}
	seen := make(map[uint32]bool)
	for _, e := range all {
		if seen[e.Type()] {
			t.Errorf("duplicate type id %d for %T", e.Type(), e)
		}
		seen[e.Type()] = true
	}
}

func TestEventJSONSerialization(t *testing.T) {
	data, err := json.Marshal(ControlsReloadedEvent{
		DevicePath: "/dev/video0",
		Controls:   map[string]int32{"Brightness": 20},
		Timestamp:  "2025-01-27T10:30:00Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["device_path"] != "/dev/video0" {
		t.Errorf("device_path = %v", m["device_path"])
	}
	controls, ok := m["controls"].(map[string]any)
	if !ok || controls["Brightness"] != float64(20) {
		t.Errorf("controls = %v", m["controls"])
	}

	data, err = json.Marshal(CaptureSuccessEvent{DevicePath: "/dev/video0"})
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Fatal("invalid json")
	}
	m = nil
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, present := m["path"]; present {
		t.Error("empty path should be omitted")
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	defer SubscribeToChannel[StreamStateChangedEvent](bus, ch)()

	Publish(bus, StreamStateChangedEvent{To: "stopped"})

	select {
	case got := <-ch:
		e, ok := got.(StreamStateChangedEvent)
		if !ok || e.To != "stopped" {
			t.Errorf("got %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)
	defer SubscribeToChannel[FrameReadyEvent](bus, ch)()

	for i := range 10 {
		Publish(bus, FrameReadyEvent{Sequence: uint32(i)})
	}
}
