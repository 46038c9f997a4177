package capture

import (
	"github.com/smazurov/videocap/internal/config"
	"github.com/smazurov/videocap/internal/devices"
	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// WatchSettings reloads the [device] table of path on change and feeds it
// to UpdateSettings. The device node itself is fixed for the service's
// lifetime; a changed bus_id or path is logged and ignored.
func (s *Service) WatchSettings(path string) (*config.Watcher[v4l2.ConnectionSettings], error) {
	w := config.NewConfigWatcher(path, config.LoadDeviceSettings, s.logger)
	w.OnReload(func(next v4l2.ConnectionSettings) {
		cur := s.Settings()
		if resolved, err := devices.Resolve(next.DevicePath); err == nil {
			next.DevicePath = resolved
		}
		if next.Path() != cur.Path() {
			s.logger.Warn("Device path change ignored until restart", "current", cur.Path(), "configured", next.Path())
			next.BusID, next.DevicePath = cur.BusID, cur.DevicePath
		}
		s.UpdateSettings(next)
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
