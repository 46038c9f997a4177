// Package systemd reports service readiness, status and watchdog pings to
// the service manager over the sd_notify protocol.
package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/videocap/internal/events"
)

// Notifier is a no-op when NOTIFY_SOCKET is unset.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier logging through logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Ready tells the service manager startup has finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping tells the service manager shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by `systemctl status`.
func (n *Notifier) Status(format string, args ...any) {
	n.send("STATUS=" + fmt.Sprintf(format, args...))
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return false
	}
	return sent
}

// Run mirrors stream state into the status line and, when the unit sets
// WatchdogSec, pings the watchdog at half the interval. It returns when ctx
// is done.
func (n *Notifier) Run(ctx context.Context, bus *events.Bus) {
	if bus != nil {
		defer events.Subscribe(bus, func(e events.StreamStateChangedEvent) {
			n.Status("%s %s", e.DevicePath, e.To)
		})()
		defer events.Subscribe(bus, func(e events.DevicePresenceEvent) {
			if !e.Present {
				n.Status("%s unplugged", e.DevicePath)
			}
		})()
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	n.logger.Info("Watchdog enabled", "interval", interval)
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
