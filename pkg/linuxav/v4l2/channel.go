package v4l2

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// driver is the raw kernel boundary of an open device node.
type driver interface {
	ioctl(code uintptr, arg []byte) error
	mmap(offset int64, length int) ([]byte, error)
	munmap(b []byte) error
	// poll waits up to timeout for a frame to become ready.
	poll(timeout time.Duration) (bool, error)
	close() error
}

// Channel issues typed control requests against one open device. Each
// request is encoded with its structure codec, handed to the kernel and
// decoded back into the same message.
type Channel struct {
	mu     sync.Mutex
	drv    driver
	layout layout
	closed bool
}

func newChannel(drv driver, l layout) *Channel {
	return &Channel{drv: drv, layout: l}
}

// Execute performs req with msg as the in/out argument. On failure the
// contents of msg are unspecified and the error is a *RequestError.
func (c *Channel) Execute(req Request, msg message) error {
	entry, ok := requestTable[req]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownRequest, int(req))
	}
	if reflect.TypeOf(msg) != reflect.TypeOf(entry.proto()) {
		return fmt.Errorf("%w: %s with %T", ErrMessageMismatch, req, msg)
	}
	code, err := req.code(c.layout)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	buf := make([]byte, msg.size(c.layout))
	msg.encode(c.layout, buf)
	if err := c.drv.ioctl(code, buf); err != nil {
		return &RequestError{Request: req, Err: err}
	}
	msg.decode(c.layout, buf)
	return nil
}

func (c *Channel) mmap(offset int64, length int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.drv.mmap(offset, length)
}

// munmap is allowed after close so that late releases still free memory.
func (c *Channel) munmap(b []byte) error {
	return c.drv.munmap(b)
}

func (c *Channel) poll(timeout time.Duration) (bool, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false, ErrClosed
	}
	return c.drv.poll(timeout)
}

// close releases the handle. Later calls are no-ops.
func (c *Channel) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.drv.close()
}
