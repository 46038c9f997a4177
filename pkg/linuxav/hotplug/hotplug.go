//go:build linux

package hotplug

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sys/unix"
)

// pollTimeout bounds how long Run waits before rechecking its context.
const pollTimeout = 500 // ms

// Monitor reads kernel uevents from a netlink socket.
type Monitor struct {
	fd         int
	subsystems []string
}

// NewMonitor opens the uevent socket. Only events of the given subsystems
// are reported; none means all.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("hotplug: socket: %w", err)
	}
	// Group 1 is the kernel broadcast; udevd rebroadcasts on group 2.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("hotplug: bind: %w", err)
	}
	return &Monitor{fd: fd, subsystems: subsystems}, nil
}

// Close releases the socket. Call it after Run has returned.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run sends matching events to events until ctx is done, then closes
// events and returns ctx.Err().
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	buf := make([]byte, 16<<10)
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(fds, pollTimeout)
		if errors.Is(err, unix.EINTR) || n == 0 {
			continue
		}
		if err != nil {
			return fmt.Errorf("hotplug: poll: %w", err)
		}

		for {
			size, from, err := unix.Recvfrom(m.fd, buf, 0)
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				break
			}
			if err != nil {
				return fmt.Errorf("hotplug: recv: %w", err)
			}
			// Only the kernel (port 0) is trusted.
			if nl, ok := from.(*unix.SockaddrNetlink); !ok || nl.Pid != 0 {
				continue
			}
			e, ok := ParseUEvent(buf[:size])
			if !ok || !m.wants(e.Subsystem) {
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Monitor) wants(subsystem string) bool {
	return len(m.subsystems) == 0 || slices.Contains(m.subsystems, subsystem)
}
