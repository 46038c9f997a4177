package capture

import (
	"context"

	"github.com/smazurov/videocap/internal/events"
	"github.com/smazurov/videocap/internal/metrics"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// FrameFunc receives each frame of a continuous capture. data is reused
// after it returns.
type FrameFunc func(data []byte, meta v4l2.FrameMeta) error

// Stream captures continuously until ctx is done or fn fails. Other device
// operations return ErrBusy meanwhile. fn may be nil when only metrics and
// events are wanted.
func (s *Service) Stream(ctx context.Context, fn FrameFunc) error {
	if !s.streaming.CompareAndSwap(false, true) {
		return ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.streaming.Store(false)

	// Updates queued before this session were already folded into the
	// settings it opens with.
	s.drainPending()

	device := s.DevicePath()
	s.logger.Info("Continuous capture started", "device", device)

	err := s.run(func(cam Camera) error {
		return cam.CaptureContinuous(ctx, func(data []byte, meta v4l2.FrameMeta) error {
			metrics.RecordFrame(device, len(data))
			events.Publish(s.bus, events.FrameReadyEvent{
				DevicePath: device,
				Sequence:   meta.Sequence,
				BufferID:   meta.Index,
				Bytes:      meta.BytesUsed,
				Corrupted:  meta.Corrupted(),
				Timestamp:  meta.Timestamp.String(),
			})
			if fn == nil {
				return nil
			}
			return fn(data, meta)
		}, v4l2.WithPooledBuffers(), v4l2.WithControlUpdates(s.updates))
	})
	if err != nil {
		s.fail(err)
		return err
	}
	s.logger.Info("Continuous capture stopped", "device", device)
	return nil
}

// UpdateSettings replaces the configured settings. Controls that changed
// are pushed to a running stream; a changed size or pixel format takes
// effect on the next capture.
func (s *Service) UpdateSettings(next v4l2.ConnectionSettings) []v4l2.ControlValue {
	s.settingsMu.Lock()
	prev := s.settings
	s.settings = next
	s.settingsMu.Unlock()

	if !sameFormat(prev, next) {
		s.logger.Info("Format change applies to the next capture", "device", next.Path())
	}

	changed := prev.Diff(&next)
	if len(changed) == 0 {
		return nil
	}
	if s.streaming.Load() {
		select {
		case s.updates <- changed:
		default:
			s.logger.Warn("Control update dropped, stream is not keeping up", "device", next.Path())
			return nil
		}
	}

	applied := make(map[string]int32, len(changed))
	for _, cv := range changed {
		applied[cv.ID.String()] = cv.Value
	}
	s.logger.Info("Device controls updated", "device", next.Path(), "controls", applied)
	events.Publish(s.bus, events.ControlsReloadedEvent{
		DevicePath: next.Path(),
		Controls:   applied,
		Timestamp:  now(),
	})
	return changed
}

func (s *Service) drainPending() {
	for {
		select {
		case <-s.updates:
		default:
			return
		}
	}
}

func sameFormat(a, b v4l2.ConnectionSettings) bool {
	return a.Path() == b.Path() && ptrEqual(a.CaptureSize, b.CaptureSize) && ptrEqual(a.PixelFormat, b.PixelFormat)
}

func ptrEqual[T comparable](x, y *T) bool {
	if x == nil || y == nil {
		return x == y
	}
	return *x == *y
}
