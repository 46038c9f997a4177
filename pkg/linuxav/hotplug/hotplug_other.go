//go:build !linux

package hotplug

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by NewMonitor off Linux.
var ErrUnsupported = errors.New("hotplug: netlink uevents require linux")

// Monitor is unavailable off Linux.
type Monitor struct{}

// NewMonitor always fails off Linux.
func NewMonitor(...string) (*Monitor, error) {
	return nil, ErrUnsupported
}

// Close does nothing.
func (m *Monitor) Close() error { return nil }

// Run closes events and returns.
func (m *Monitor) Run(_ context.Context, events chan<- Event) error {
	close(events)
	return ErrUnsupported
}
