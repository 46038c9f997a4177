// Package hotplug reports kernel device add and remove events from the
// netlink uevent socket, without cgo or udev.
package hotplug

import (
	"bytes"
	"path"
	"strings"
)

// Actions reported by the kernel.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// SubsystemVideo4Linux is the subsystem of /dev/video* nodes.
const SubsystemVideo4Linux = "video4linux"

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string
	Subsystem string
	DevName   string
	Env       map[string]string
}

// Node returns the /dev path of the event's device node, or "" when the
// event carries no DEVNAME.
func (e Event) Node() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/") {
		return path.Clean(e.DevName)
	}
	return "/dev/" + e.DevName
}

// ParseUEvent decodes "ACTION@KOBJ\0KEY=VALUE\0...". It returns false for
// anything else, including the udev daemon's "libudev" framing.
func ParseUEvent(data []byte) (Event, bool) {
	if bytes.HasPrefix(data, []byte("libudev")) {
		return Event{}, false
	}
	head, rest, _ := bytes.Cut(data, []byte{0})
	action, kobj, ok := strings.Cut(string(head), "@")
	if !ok || action == "" {
		return Event{}, false
	}

	e := Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for len(rest) > 0 {
		var field []byte
		field, rest, _ = bytes.Cut(rest, []byte{0})
		key, value, ok := strings.Cut(string(field), "=")
		if !ok || key == "" {
			continue
		}
		e.Env[key] = value
		switch key {
		case "SUBSYSTEM":
			e.Subsystem = value
		case "DEVNAME":
			e.DevName = value
		}
	}
	return e, true
}
