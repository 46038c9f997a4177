package v4l2

import (
	"errors"
	"fmt"
)

// mappedSpan is a bounds-checked view of one mmap region. After unmap every
// access fails with ErrBufferReleased.
type mappedSpan struct {
	data []byte
}

func (s *mappedSpan) bytes(n int) ([]byte, error) {
	if s.data == nil {
		return nil, ErrBufferReleased
	}
	if n < 0 || n > len(s.data) {
		return nil, fmt.Errorf("span access %d out of range [0,%d]", n, len(s.data))
	}
	return s.data[:n], nil
}

func (s *mappedSpan) unmap(ch *Channel) error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	return ch.munmap(data)
}

type bufferState int

const (
	bufferIdle   bufferState = iota // owned by userspace, not queued
	bufferQueued                    // owned by the driver
	bufferHeld                      // dequeued, contents readable
)

// FrameBuffer is one kernel buffer mapped into the process.
type FrameBuffer struct {
	Index  uint32
	Length uint32
	offset uint32
	span   mappedSpan
	state  bufferState
	// gen changes every time the buffer changes hands, invalidating any
	// Frame handed out for an earlier dequeue.
	gen uint64
}

// Mapped reports whether the buffer memory is still mapped.
func (b *FrameBuffer) Mapped() bool { return b.span.data != nil }

// BufferPool is the fixed set of buffers from one allocation. Either all of
// them are mapped or none are.
type BufferPool struct {
	dev       *Device
	buffers   []*FrameBuffer
	streaming bool
	released  bool
}

// AllocateBuffers requests n mmap buffers from the driver and maps each of
// them. If the driver grants a different count, or any query or mapping
// fails, everything acquired so far is unmapped and freed before returning.
func (d *Device) AllocateBuffers(n int) (*BufferPool, error) {
	if n <= 0 {
		return nil, &PoolError{Index: -1, Err: fmt.Errorf("invalid buffer count %d", n)}
	}

	req := requestBuffers{count: uint32(n), typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := d.ch.Execute(ReqReqBufs, &req); err != nil {
		return nil, &PoolError{Index: -1, Err: err}
	}
	if int(req.count) != n {
		err := fmt.Errorf("%w: requested %d, got %d", ErrPoolSize, n, req.count)
		if req.count > 0 {
			if ferr := d.freeBuffers(); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return nil, &PoolError{Index: -1, Err: err}
	}

	pool := &BufferPool{dev: d, buffers: make([]*FrameBuffer, 0, n)}
	for i := 0; i < n; i++ {
		qb := buffer{index: uint32(i), typ: bufTypeVideoCapture, memory: memoryMmap}
		if err := d.ch.Execute(ReqQueryBuf, &qb); err != nil {
			return nil, pool.rollback(i, err)
		}
		data, err := d.ch.mmap(int64(qb.offset), int(qb.length))
		if err != nil {
			return nil, pool.rollback(i, fmt.Errorf("mmap: %w", err))
		}
		pool.buffers = append(pool.buffers, &FrameBuffer{
			Index:  qb.index,
			Length: qb.length,
			offset: qb.offset,
			span:   mappedSpan{data: data},
		})
	}

	d.logger.Debug("buffers mapped", "count", n)
	d.transition(StateBuffersReady)
	return pool, nil
}

// rollback undoes a partial allocation and wraps cause for buffer index.
func (p *BufferPool) rollback(index int, cause error) error {
	errs := []error{cause}
	for _, b := range p.buffers {
		if err := b.span.unmap(p.dev.ch); err != nil {
			errs = append(errs, fmt.Errorf("unmap buffer %d: %w", b.Index, err))
		}
	}
	p.buffers = nil
	p.released = true
	if err := p.dev.freeBuffers(); err != nil {
		errs = append(errs, err)
	}
	p.dev.logger.Debug("buffer allocation rolled back", "index", index, "error", cause)
	return &PoolError{Index: index, Err: errors.Join(errs...)}
}

// freeBuffers asks the driver to release every buffer of the queue.
func (d *Device) freeBuffers() error {
	req := requestBuffers{count: 0, typ: bufTypeVideoCapture, memory: memoryMmap}
	if err := d.ch.Execute(ReqReqBufs, &req); err != nil {
		return fmt.Errorf("free buffers: %w", err)
	}
	return nil
}

// Len returns the number of buffers in the pool.
func (p *BufferPool) Len() int { return len(p.buffers) }

// Buffers returns the pool's buffers in index order.
func (p *BufferPool) Buffers() []*FrameBuffer { return p.buffers }

// Mapped returns how many buffers are currently mapped.
func (p *BufferPool) Mapped() int {
	n := 0
	for _, b := range p.buffers {
		if b.Mapped() {
			n++
		}
	}
	return n
}

// Release unmaps every buffer and frees them in the driver. It is rejected
// while the pool is streaming; stop the stream first. Releasing twice is a
// no-op.
func (p *BufferPool) Release() error {
	if p.streaming {
		return ErrPoolStreaming
	}
	if p.released {
		return nil
	}
	p.released = true

	var errs []error
	for _, b := range p.buffers {
		b.gen++
		b.state = bufferIdle
		if err := b.span.unmap(p.dev.ch); err != nil {
			errs = append(errs, fmt.Errorf("unmap buffer %d: %w", b.Index, err))
		}
	}
	if err := p.dev.freeBuffers(); err != nil && !errors.Is(err, ErrClosed) {
		errs = append(errs, err)
	}

	p.dev.logger.Debug("buffers released", "count", len(p.buffers))
	p.dev.transition(StateIdle)
	if err := errors.Join(errs...); err != nil {
		return &PoolError{Index: -1, Err: err}
	}
	return nil
}
