package v4l2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FrameHandler receives each frame of a continuous capture. Returning an
// error stops the capture and the error is returned from CaptureContinuous.
type FrameHandler func(data []byte, meta FrameMeta) error

type continuousConfig struct {
	pooled  bool
	updates <-chan []ControlValue
}

// ContinuousOption configures CaptureContinuous.
type ContinuousOption func(*continuousConfig)

// WithPooledBuffers reuses copy buffers between frames. The handler must
// not retain the slice after it returns.
func WithPooledBuffers() ContinuousOption {
	return func(c *continuousConfig) { c.pooled = true }
}

// WithControlUpdates applies control values received on ch between frames.
func WithControlUpdates(ch <-chan []ControlValue) ContinuousOption {
	return func(c *continuousConfig) { c.updates = ch }
}

// prepare negotiates and applies the settings, then maps the buffer pool.
// The format the driver settled on replaces the requested one, since
// drivers round sizes to what the sensor supports.
func (d *Device) prepare() (*BufferPool, error) {
	c, err := d.Capability()
	if err != nil {
		return nil, fmt.Errorf("query capability: %w", err)
	}
	if !c.CanCapture() || !c.CanStream() {
		return nil, fmt.Errorf("%s: %w", d.path, ErrNotCaptureDevice)
	}

	settings := d.settings
	if _, err := d.Negotiate(&settings); err != nil {
		return nil, fmt.Errorf("negotiate: %w", err)
	}
	applied, err := d.Configure(settings)
	if applied.Width != 0 && applied.Height != 0 {
		settings.CaptureSize = &Size{Width: applied.Width, Height: applied.Height}
		settings.PixelFormat = Ptr(applied.PixelFormat)
	}
	d.settings = settings
	if err != nil {
		return nil, fmt.Errorf("configure: %w", err)
	}
	return d.AllocateBuffers(d.bufferCount)
}

// session runs fn between stream-on and stream-off. Teardown happens on
// every path: a pool that failed to start is still released, and a failed
// fn still stops the stream and unmaps.
func (d *Device) session(fn func(*Stream) error) error {
	pool, err := d.prepare()
	if err != nil {
		return err
	}

	stream, err := pool.StreamOn()
	if err != nil {
		return errors.Join(err, pool.Release())
	}

	runErr := fn(stream)
	_, offErr := stream.StreamOff()
	relErr := pool.Release()
	return errors.Join(runErr, offErr, relErr)
}

// Capture takes a single frame: unset settings are negotiated from device
// defaults, the format and controls are applied, and the first dequeued
// frame is copied out. It returns the whole frame or an error.
func (d *Device) Capture(ctx context.Context) ([]byte, error) {
	var data []byte
	err := d.session(func(s *Stream) error {
		f, err := s.Dequeue(ctx)
		if err != nil {
			return err
		}
		data, err = f.Bytes()
		if err != nil {
			return err
		}
		return f.Requeue()
	})
	if err != nil {
		return nil, err
	}
	d.logger.Debug("frame captured", "bytes", len(data))
	return data, nil
}

// CaptureToFile captures a single frame and writes it to path, creating the
// parent directory if needed.
func (d *Device) CaptureToFile(ctx context.Context, path string) error {
	data, err := d.Capture(ctx)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write frame to %s: %w", path, err)
	}
	return nil
}

// CaptureContinuous streams frames to handler until ctx is done or the
// handler fails. Cancellation is a normal stop and returns nil.
func (d *Device) CaptureContinuous(ctx context.Context, handler FrameHandler, opts ...ContinuousOption) error {
	var cfg continuousConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	err := d.session(func(s *Stream) error {
		var bufPool *sync.Pool
		if cfg.pooled {
			maxLen := 0
			for _, b := range s.pool.buffers {
				maxLen = max(maxLen, int(b.Length))
			}
			bufPool = &sync.Pool{New: func() any {
				b := make([]byte, maxLen)
				return &b
			}}
		}

		for {
			if err := d.drainUpdates(cfg.updates); err != nil {
				return err
			}

			f, err := s.Dequeue(ctx)
			if err != nil {
				return err
			}

			var data []byte
			var pooled *[]byte
			if bufPool != nil {
				pooled = bufPool.Get().(*[]byte)
				n, err := f.CopyTo(*pooled)
				if err != nil {
					bufPool.Put(pooled)
					return err
				}
				data = (*pooled)[:n]
			} else if data, err = f.Bytes(); err != nil {
				return err
			}
			meta := f.Meta

			if err := f.Requeue(); err != nil {
				return err
			}
			herr := handler(data, meta)
			if pooled != nil {
				bufPool.Put(pooled)
			}
			if herr != nil {
				return herr
			}
		}
	})

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (d *Device) drainUpdates(ch <-chan []ControlValue) error {
	if ch == nil {
		return nil
	}
	for {
		select {
		case values := <-ch:
			if err := d.ApplyControls(values); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
