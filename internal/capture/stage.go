package capture

import (
	"context"
	"errors"

	"github.com/smazurov/videocap/pkg/linuxav/v4l2"
)

// Stage names the pipeline step err came from, for metrics and events.
func Stage(err error) string {
	var (
		writeErr   *WriteError
		openErr    *v4l2.OpenError
		streamErr  *v4l2.StreamError
		poolErr    *v4l2.PoolError
		controlErr *v4l2.ControlError
		requestErr *v4l2.RequestError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &writeErr):
		return "write"
	case errors.As(err, &openErr), errors.Is(err, v4l2.ErrNotCaptureDevice), errors.Is(err, v4l2.ErrUnsupportedPlatform):
		return "open"
	case errors.As(err, &streamErr):
		if streamErr.Op == "dequeue" || streamErr.Op == "poll" {
			return "dequeue"
		}
		return "stream"
	case errors.As(err, &poolErr):
		return "allocate"
	case errors.As(err, &controlErr), errors.As(err, &requestErr):
		return "negotiate"
	default:
		return "unknown"
	}
}
