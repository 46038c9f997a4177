package led

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/videocap/internal/events"
)

type recorder struct {
	mu    sync.Mutex
	modes chan Mode
	fail  error
}

func newRecorder() *recorder { return &recorder{modes: make(chan Mode, 16)} }

func (r *recorder) Set(name string, mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name != StatusLED {
		return errors.New("unexpected LED " + name)
	}
	if r.fail != nil {
		return r.fail
	}
	r.modes <- mode
	return nil
}

func (r *recorder) Available() []string { return []string{StatusLED} }

func (r *recorder) expect(t *testing.T, want Mode) {
	t.Helper()
	select {
	case got := <-r.modes:
		if got != want {
			t.Fatalf("mode = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func state(to string) events.StreamStateChangedEvent {
	return events.StreamStateChangedEvent{DevicePath: "/dev/video0", To: to}
}

func TestManagerFollowsStreamState(t *testing.T) {
	bus := events.New()
	rec := newRecorder()
	m := NewManager(rec, bus, discard())
	m.Start()
	rec.expect(t, ModeBlink)

	events.Publish(bus, state("streaming"))
	rec.expect(t, ModeSolid)

	// frame_available keeps the LED solid without another write.
	events.Publish(bus, state("frame_available"))
	events.Publish(bus, state("stopped"))
	rec.expect(t, ModeBlink)

	m.Stop()
	rec.expect(t, ModeOff)
}

func TestManagerDevicePresence(t *testing.T) {
	bus := events.New()
	rec := newRecorder()
	m := NewManager(rec, bus, discard())
	m.Start()
	defer m.Stop()
	rec.expect(t, ModeBlink)

	events.Publish(bus, events.DevicePresenceEvent{DevicePath: "/dev/video0", Present: false})
	rec.expect(t, ModeOff)

	events.Publish(bus, events.DevicePresenceEvent{DevicePath: "/dev/video0", Present: true})
	rec.expect(t, ModeBlink)
}

func TestManagerIgnoresStateWhileUnplugged(t *testing.T) {
	rec := newRecorder()
	m := NewManager(rec, events.New(), discard())
	m.handlePresence(events.DevicePresenceEvent{Present: false})
	rec.expect(t, ModeOff)

	m.handleStreamState(state("streaming"))
	select {
	case got := <-rec.modes:
		t.Fatalf("unexpected mode %v while unplugged", got)
	default:
	}
}

func TestManagerRetriesAfterSetFailure(t *testing.T) {
	rec := newRecorder()
	rec.fail = errors.New("read-only file system")
	m := NewManager(rec, events.New(), discard())

	m.apply(ModeSolid)

	rec.mu.Lock()
	rec.fail = nil
	rec.mu.Unlock()
	m.apply(ModeSolid)
	rec.expect(t, ModeSolid)
}

func TestModeForState(t *testing.T) {
	tests := map[string]Mode{
		"streaming":       ModeSolid,
		"frame_available": ModeSolid,
		"idle":            ModeBlink,
		"queued":          ModeBlink,
		"stopped":         ModeBlink,
	}
	for in, want := range tests {
		if got := modeForState(in); got != want {
			t.Errorf("modeForState(%q) = %v, want %v", in, got, want)
		}
	}
}
