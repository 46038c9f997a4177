// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or JSON) when stdout is attached, to the
// systemd journal when journald is running, and always to an in-memory
// History that backs the /api/logs endpoints.
//
// Initialize once at startup, then fetch module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"v4l2":    "debug",
//			"capture": "info",
//		},
//	})
//	logger := logging.GetLogger("capture").With("device", "/dev/video0")
//	logger.Info("Frame captured", "bytes", n)
//
// Levels can be changed while running with SetLevel. Journal entries carry
// the identifier "videocap" and attributes as upper-case fields:
//
//	journalctl -t videocap MODULE=capture DEVICE=/dev/video0
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	v4l2 = "debug"
//	api = "warn"
package logging
