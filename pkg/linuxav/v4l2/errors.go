package v4l2

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrClosed is returned by any operation on a device after Close.
	ErrClosed = fmt.Errorf("v4l2: device closed: %w", fs.ErrClosed)

	ErrUnknownRequest      = errors.New("v4l2: unknown request")
	ErrMessageMismatch     = errors.New("v4l2: message does not match request")
	ErrPoolSize            = errors.New("v4l2: driver granted a different buffer count")
	ErrPoolStreaming       = errors.New("v4l2: buffer pool is streaming")
	ErrPoolReleased        = errors.New("v4l2: buffer pool released")
	ErrBufferReleased      = errors.New("v4l2: frame buffer no longer accessible")
	ErrNotStreaming        = errors.New("v4l2: stream stopped")
	ErrNotCaptureDevice    = errors.New("v4l2: device does not support streaming capture")
	ErrUnsupportedPlatform = errors.New("v4l2: not supported on this platform")
)

// OpenError reports a failure to open the device node.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("v4l2: open %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// RequestError reports a rejected control request. Err is usually a
// syscall.Errno, so errors.Is(err, syscall.EINVAL) works through it.
type RequestError struct {
	Request Request
	Err     error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("v4l2: %s: %v", e.Request, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ControlError reports a control that could not be queried or applied.
type ControlError struct {
	Control ControlID
	Err     error
}

func (e *ControlError) Error() string {
	return fmt.Sprintf("v4l2: control %s: %v", e.Control, e.Err)
}

func (e *ControlError) Unwrap() error { return e.Err }

// PoolError reports a buffer allocation or mapping failure. By the time it is
// returned every buffer mapped during the attempt has been unmapped.
type PoolError struct {
	Index int // -1 when the failure is not tied to one buffer
	Err   error
}

func (e *PoolError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("v4l2: buffer pool: %v", e.Err)
	}
	return fmt.Sprintf("v4l2: buffer %d: %v", e.Index, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

// StreamError reports a failure while the stream is active.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("v4l2: stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
