package capture

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/pkg/linuxav/hotplug"
)

// Supervise streams until ctx is done, reopening the device whenever the
// stream fails: as soon as presence reports the node added again, or after
// RetryDelay. presence may be nil.
func (s *Service) Supervise(ctx context.Context, fn FrameFunc, presence <-chan hotplug.Event) error {
	appeared := make(chan struct{}, 1)
	if presence != nil {
		go s.trackPresence(ctx, presence, appeared)
	}

	for {
		err := s.Stream(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrBusy) {
			return err
		}
		s.logger.Warn("Stream interrupted, waiting for device",
			"device", s.DevicePath(), "error", err, "retry", s.cfg.RetryDelay)

		retry := time.NewTimer(s.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			retry.Stop()
			return nil
		case <-appeared:
			retry.Stop()
		case <-retry.C:
		}
	}
}

// trackPresence publishes add and remove events for the service's node and
// signals appeared on add.
func (s *Service) trackPresence(ctx context.Context, presence <-chan hotplug.Event, appeared chan<- struct{}) {
	node := s.DevicePath()
	// Resolve by-id and by-path links while the node still exists.
	if resolved, err := filepath.EvalSymlinks(node); err == nil {
		node = resolved
	}

	for {
		var e hotplug.Event
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-presence:
			if !ok {
				return
			}
			e = ev
		}
		if e.Node() != node {
			continue
		}

		switch e.Action {
		case hotplug.ActionAdd:
			s.logger.Info("Device node appeared", "device", node)
			events.Publish(s.bus, events.DevicePresenceEvent{DevicePath: s.DevicePath(), Present: true, Timestamp: now()})
			select {
			case appeared <- struct{}{}:
			default:
			}
		case hotplug.ActionRemove:
			s.logger.Warn("Device node removed", "device", node)
			events.Publish(s.bus, events.DevicePresenceEvent{DevicePath: s.DevicePath(), Present: false, Timestamp: now()})
		}
	}
}
