// Package devices maps the stable udev names under /dev/v4l to device
// nodes, so a camera can be configured by an ID that survives reboots and
// re-enumeration.
package devices

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// v4lDir holds the by-id and by-path link directories udev maintains.
var v4lDir = "/dev/v4l"

// Resolve turns a stable device ID into a path that can be opened. Anything
// containing a slash is taken as a path and returned unchanged.
func Resolve(id string) (string, error) {
	if id == "" || strings.Contains(id, "/") {
		return id, nil
	}

	var kinds []string
	switch {
	case strings.HasPrefix(id, "usb-"):
		kinds = []string{"by-id", "by-path"}
	case strings.HasPrefix(id, "platform-"), strings.HasPrefix(id, "pci-"):
		kinds = []string{"by-path"}
	default:
		return "", fmt.Errorf("unrecognized device ID %q", id)
	}

	for _, kind := range kinds {
		p := filepath.Join(v4lDir, kind, id)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no stable link found for device ID %s: %w", id, fs.ErrNotExist)
}
