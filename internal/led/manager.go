package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/videocap/internal/events"
)

// Manager keeps the status LED in step with the capture device: solid while
// frames are flowing, blinking while the device is idle or being retried,
// off once the device has been unplugged.
type Manager struct {
	controller  Controller
	bus         *events.Bus
	logger      *slog.Logger
	unsubscribe []func()

	mu      sync.Mutex
	mode    Mode
	present bool
}

// NewManager creates a manager driving controller from bus events.
func NewManager(controller Controller, bus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{controller: controller, bus: bus, logger: logger, mode: -1, present: true}
}

// Start subscribes to stream and presence events and shows the idle pattern.
func (m *Manager) Start() {
	m.unsubscribe = append(m.unsubscribe,
		events.Subscribe(m.bus, m.handleStreamState),
		events.Subscribe(m.bus, m.handlePresence),
	)
	m.apply(ModeBlink)
	m.logger.Info("LED manager started", "leds", m.controller.Available())
}

// Stop unsubscribes and turns the LED off.
func (m *Manager) Stop() {
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
	m.apply(ModeOff)
	m.logger.Info("LED manager stopped")
}

func (m *Manager) handleStreamState(e events.StreamStateChangedEvent) {
	m.mu.Lock()
	present := m.present
	m.mu.Unlock()
	if !present {
		return
	}
	m.logger.Debug("Stream state changed", "device", e.DevicePath, "from", e.From, "to", e.To)
	m.apply(modeForState(e.To))
}

func (m *Manager) handlePresence(e events.DevicePresenceEvent) {
	m.mu.Lock()
	m.present = e.Present
	m.mu.Unlock()
	if e.Present {
		m.apply(ModeBlink)
		return
	}
	m.apply(ModeOff)
}

// modeForState maps a streaming state name to an LED mode. Dequeue and
// requeue bounce between streaming and frame_available; both count as live.
func modeForState(state string) Mode {
	switch state {
	case "streaming", "frame_available":
		return ModeSolid
	default:
		return ModeBlink
	}
}

func (m *Manager) apply(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == m.mode {
		return
	}
	if err := m.controller.Set(StatusLED, mode); err != nil {
		m.logger.Warn("Failed to set status LED", "mode", mode.String(), "error", err)
		return
	}
	m.mode = mode
}
