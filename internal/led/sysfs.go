package led

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives LEDs through /sys/class/leds/<name>/{trigger,brightness}.
type sysfs struct {
	root string
	leds map[string]string // logical name -> sysfs directory
}

func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{root: root, leds: leds}
}

func (s *sysfs) Set(name string, mode Mode) error {
	dir, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", name)
	}
	ledPath := filepath.Join(s.root, dir)
	if _, err := os.Stat(ledPath); err != nil {
		return fmt.Errorf("LED %q: %w", name, err)
	}

	trigger, brightness := "none", "0"
	switch mode {
	case ModeSolid:
		brightness = "1"
	case ModeBlink:
		trigger = "heartbeat"
	}

	if err := os.WriteFile(filepath.Join(ledPath, "trigger"), []byte(trigger), 0o644); err != nil {
		return fmt.Errorf("set LED trigger: %w", err)
	}
	// The heartbeat trigger owns brightness.
	if mode == ModeBlink {
		return nil
	}
	if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte(brightness), 0o644); err != nil {
		return fmt.Errorf("set LED brightness: %w", err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
