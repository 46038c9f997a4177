package led

import "log/slog"

// noop stands in on boards without a known status LED.
type noop struct {
	logger *slog.Logger
}

func (n noop) Set(name string, mode Mode) error {
	n.logger.Debug("LED control not available", "led", name, "mode", mode.String())
	return nil
}

func (noop) Available() []string { return []string{} }
