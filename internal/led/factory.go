package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// StatusLED is the logical name the Indicator drives.
const StatusLED = "status"

// New picks a controller for the board this process runs on. An explicit
// sysfsName overrides board detection. Boards without a known LED get a
// no-op controller.
func New(logger *slog.Logger, sysfsName string) Controller {
	if sysfsName != "" {
		logger.Info("Using configured LED", "sysfs_name", sysfsName)
		return newSysfs(sysfsLEDPath, map[string]string{StatusLED: sysfsName})
	}

	model := detectBoard(deviceTreeModelPath)
	if dir, ok := boardLED(model); ok {
		logger.Info("Detected board with status LED", "board_model", model, "sysfs_name", dir)
		return newSysfs(sysfsLEDPath, map[string]string{StatusLED: dir})
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return noop{logger: logger}
}

// boardLED maps a device tree model to its status LED directory.
func boardLED(model string) (string, bool) {
	switch {
	case strings.Contains(model, "NanoPC-T6"):
		return "sys_led", true
	case strings.Contains(model, "Orange Pi"):
		return "green_led", true
	case strings.Contains(model, "Raspberry Pi"):
		return "ACT", true
	default:
		return "", false
	}
}

func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00\n")
}
