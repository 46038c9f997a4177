package v4l2

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// StreamState is a position in the capture lifecycle.
type StreamState int

// Stream states.
const (
	StateIdle StreamState = iota
	StateConfigured
	StateBuffersReady
	StateQueued
	StateStreaming
	StateFrameAvailable
	StateStopped
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StateBuffersReady:
		return "buffers_ready"
	case StateQueued:
		return "queued"
	case StateStreaming:
		return "streaming"
	case StateFrameAvailable:
		return "frame_available"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateObserver is called after every successful state transition.
type StateObserver func(device string, from, to StreamState)

// pollInterval bounds each readiness wait so context cancellation is noticed.
const pollInterval = 100 * time.Millisecond

func (d *Device) transition(to StreamState) {
	from := d.state
	if from == to {
		return
	}
	d.state = to
	d.logger.Debug("stream state", "from", from, "to", to)
	if d.observer != nil {
		d.observer(d.path, from, to)
	}
}

// State returns the current lifecycle state.
func (d *Device) State() StreamState { return d.state }

// Stream is an active capture stream over a BufferPool. The pool cannot be
// released until StreamOff returns it.
type Stream struct {
	pool    *BufferPool
	queued  int
	held    int
	stopped bool
}

// StreamOn enqueues every buffer and starts streaming. On failure the
// queue is reset and the pool stays usable for Release.
func (p *BufferPool) StreamOn() (*Stream, error) {
	if p.released {
		return nil, ErrPoolReleased
	}
	if p.streaming {
		return nil, ErrPoolStreaming
	}
	d := p.dev
	s := &Stream{pool: p}

	for _, b := range p.buffers {
		if err := s.enqueue(b); err != nil {
			p.resetQueue()
			return nil, &StreamError{Op: "queue", Err: err}
		}
	}
	d.transition(StateQueued)

	typ := bufType(bufTypeVideoCapture)
	if err := d.ch.Execute(ReqStreamOn, &typ); err != nil {
		p.resetQueue()
		return nil, &StreamError{Op: "on", Err: err}
	}
	p.streaming = true
	d.transition(StateStreaming)
	return s, nil
}

// resetQueue returns all buffers to userspace after a failed start.
func (p *BufferPool) resetQueue() {
	typ := bufType(bufTypeVideoCapture)
	if err := p.dev.ch.Execute(ReqStreamOff, &typ); err != nil {
		p.dev.logger.Debug("queue reset failed", "error", err)
	}
	for _, b := range p.buffers {
		b.state = bufferIdle
		b.gen++
	}
	p.dev.transition(StateBuffersReady)
}

func (s *Stream) enqueue(b *FrameBuffer) error {
	if b.state == bufferQueued {
		return fmt.Errorf("buffer %d already queued", b.Index)
	}
	if !b.Mapped() {
		return ErrBufferReleased
	}
	qb := buffer{index: b.Index, typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := s.pool.dev.ch.Execute(ReqQBuf, &qb); err != nil {
		return err
	}
	if b.state == bufferHeld {
		s.held--
	}
	b.state = bufferQueued
	b.gen++
	s.queued++
	return nil
}

// Queued returns how many buffers the driver currently owns.
func (s *Stream) Queued() int { return s.queued }

// Held returns how many dequeued frames have not been requeued.
func (s *Stream) Held() int { return s.held }

// Dequeue waits for the next filled buffer. It blocks until a frame is
// ready, the stream fails, or ctx is done.
func (s *Stream) Dequeue(ctx context.Context) (*Frame, error) {
	if s.stopped {
		return nil, ErrNotStreaming
	}
	d := s.pool.dev

	for {
		if err := ctx.Err(); err != nil {
			return nil, &StreamError{Op: "dequeue", Err: err}
		}
		ready, err := d.ch.poll(pollInterval)
		if err != nil {
			return nil, &StreamError{Op: "poll", Err: err}
		}
		if !ready {
			continue
		}

		qb := buffer{typ: bufTypeVideoCapture, memory: memoryMmap}
		if err := d.ch.Execute(ReqDQBuf, &qb); err != nil {
			if errors.Is(err, syscall.EAGAIN) {
				continue
			}
			return nil, &StreamError{Op: "dequeue", Err: err}
		}
		if int(qb.index) >= len(s.pool.buffers) {
			return nil, &StreamError{Op: "dequeue", Err: fmt.Errorf("driver returned buffer index %d of %d", qb.index, len(s.pool.buffers))}
		}

		b := s.pool.buffers[qb.index]
		if b.state != bufferQueued {
			return nil, &StreamError{Op: "dequeue", Err: fmt.Errorf("driver returned buffer %d which was not queued", qb.index)}
		}
		b.state = bufferHeld
		b.gen++
		s.queued--
		s.held++
		d.transition(StateFrameAvailable)

		return &Frame{
			stream: s,
			buf:    b,
			gen:    b.gen,
			Meta: FrameMeta{
				Index:     qb.index,
				BytesUsed: qb.bytesused,
				Sequence:  qb.sequence,
				Flags:     qb.flags,
				Timestamp: qb.timestamp,
			},
		}, nil
	}
}

// StreamOff stops streaming and hands back the pool for reuse or release.
// Frames not yet requeued become invalid. The pool is returned even when the
// driver reports an error so the caller can still unmap it.
func (s *Stream) StreamOff() (*BufferPool, error) {
	p := s.pool
	if s.stopped {
		return p, nil
	}
	s.stopped = true

	typ := bufType(bufTypeVideoCapture)
	err := p.dev.ch.Execute(ReqStreamOff, &typ)

	for _, b := range p.buffers {
		b.state = bufferIdle
		b.gen++
	}
	s.queued, s.held = 0, 0
	p.streaming = false
	p.dev.transition(StateStopped)

	if err != nil {
		return p, &StreamError{Op: "off", Err: err}
	}
	return p, nil
}

// Frame is a dequeued buffer. Its contents may be read until Requeue or
// StreamOff; after that every access returns ErrBufferReleased.
type Frame struct {
	stream *Stream
	buf    *FrameBuffer
	gen    uint64
	Meta   FrameMeta
}

func (f *Frame) valid() bool {
	return f.buf.gen == f.gen && f.buf.state == bufferHeld && f.buf.Mapped()
}

// Len returns the number of payload bytes in the frame. Drivers that do not
// report bytesused get the whole buffer length.
func (f *Frame) Len() int {
	if f.Meta.BytesUsed == 0 || f.Meta.BytesUsed > f.buf.Length {
		return int(f.buf.Length)
	}
	return int(f.Meta.BytesUsed)
}

// CopyTo copies the payload into dst and returns the number of bytes copied.
// dst must be at least Len bytes; a short destination is an error rather
// than a silently truncated frame.
func (f *Frame) CopyTo(dst []byte) (int, error) {
	if !f.valid() {
		return 0, ErrBufferReleased
	}
	n := f.Len()
	if len(dst) < n {
		return 0, fmt.Errorf("destination holds %d bytes, frame has %d", len(dst), n)
	}
	src, err := f.buf.span.bytes(n)
	if err != nil {
		return 0, err
	}
	return copy(dst, src), nil
}

// Bytes returns a copy of the payload.
func (f *Frame) Bytes() ([]byte, error) {
	out := make([]byte, f.Len())
	if _, err := f.CopyTo(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Corrupted reports whether the driver flagged the payload as damaged.
func (f *Frame) Corrupted() bool {
	return f.Meta.Corrupted()
}

// Requeue hands the buffer back to the driver.
func (f *Frame) Requeue() error {
	if !f.valid() {
		return ErrBufferReleased
	}
	s := f.stream
	if s.stopped {
		return ErrNotStreaming
	}
	if err := s.enqueue(f.buf); err != nil {
		return &StreamError{Op: "requeue", Err: err}
	}
	s.pool.dev.transition(StateStreaming)
	return nil
}
