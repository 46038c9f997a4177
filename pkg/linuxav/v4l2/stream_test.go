package v4l2

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startStream(t *testing.T, dev *Device) (*BufferPool, *Stream) {
	t.Helper()
	pool, err := dev.AllocateBuffers(DefaultBufferCount)
	require.NoError(t, err)
	stream, err := pool.StreamOn()
	require.NoError(t, err)
	return pool, stream
}

func TestStreamQueueInvariant(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)
	ctx := context.Background()

	assert.Equal(t, DefaultBufferCount, stream.Queued())

	f, err := stream.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferCount-1, stream.Queued())
	assert.Equal(t, 1, stream.Held())
	assert.Equal(t, StateFrameAvailable, dev.State())

	require.NoError(t, f.Requeue())
	assert.Equal(t, DefaultBufferCount, stream.Queued())
	assert.Equal(t, 0, stream.Held())
	assert.Equal(t, StateStreaming, dev.State())

	pool, err := stream.StreamOff()
	require.NoError(t, err)
	require.NoError(t, pool.Release())
}

func TestFrameContents(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	drv.bytesused = 1000
	_, stream := startStream(t, dev)

	f, err := stream.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(0), f.Meta.Index)
	assert.Equal(t, uint32(1), f.Meta.Sequence)
	assert.Equal(t, 33*time.Millisecond, f.Meta.Timestamp)
	assert.False(t, f.Corrupted())
	assert.Equal(t, 1000, f.Len())

	data, err := f.Bytes()
	require.NoError(t, err)
	require.Len(t, data, 1000)
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, byte(1), data[999])

	_, err = f.CopyTo(make([]byte, 10))
	require.Error(t, err, "short destination must not truncate")

	require.NoError(t, f.Requeue())
}

func TestFrameLenFallsBackToBufferLength(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)

	f, err := stream.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int(drv.bufLen), f.Len())
}

func TestFrameAccessAfterRequeue(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)

	f, err := stream.Dequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.Requeue())

	_, err = f.Bytes()
	require.ErrorIs(t, err, ErrBufferReleased)
	require.ErrorIs(t, f.Requeue(), ErrBufferReleased, "a buffer is never queued twice")
}

func TestFrameAccessAfterStreamOffAndRelease(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)

	f, err := stream.Dequeue(context.Background())
	require.NoError(t, err)

	pool, err := stream.StreamOff()
	require.NoError(t, err)

	_, err = f.Bytes()
	require.ErrorIs(t, err, ErrBufferReleased)

	require.NoError(t, pool.Release())
	_, err = f.CopyTo(make([]byte, f.Len()))
	require.ErrorIs(t, err, ErrBufferReleased)

	_, err = stream.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrNotStreaming)
}

func TestDequeueHonoursContext(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)

	// Drain the queue without requeueing so nothing is ready.
	for range DefaultBufferCount {
		_, err := stream.Dequeue(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, stream.Queued())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := stream.Dequeue(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDequeueFailure(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)
	drv.fail[ReqDQBuf] = syscall.EIO

	_, err := stream.Dequeue(context.Background())
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "dequeue", streamErr.Op)
	assert.True(t, errors.Is(err, syscall.EIO))
}

func TestDequeueRejectsBufferNotQueued(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)
	ctx := context.Background()

	f, err := stream.Dequeue(ctx)
	require.NoError(t, err)

	// A misbehaving driver hands back the frame we still hold.
	drv.mu.Lock()
	drv.queue = []uint32{f.Meta.Index}
	drv.mu.Unlock()

	_, err = stream.Dequeue(ctx)
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "dequeue", streamErr.Op)
	assert.Equal(t, 1, stream.Held(), "held count unchanged")
	assert.Equal(t, DefaultBufferCount-1, stream.Queued())

	data, err := f.Bytes()
	require.NoError(t, err, "original frame stays valid")
	assert.NotEmpty(t, data)
}

func TestStreamOffErrorStillReturnsPool(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	_, stream := startStream(t, dev)
	drv.fail[ReqStreamOff] = syscall.EIO

	pool, err := stream.StreamOff()
	require.Error(t, err)
	require.NotNil(t, pool)

	delete(drv.fail, ReqStreamOff)
	drv.streaming = false
	require.NoError(t, pool.Release())
	assert.Equal(t, 0, drv.liveMappings())
}

func TestStateObserver(t *testing.T) {
	var seen []StreamState
	dev, _ := newTestDevice(ConnectionSettings{}, WithStateObserver(func(_ string, _, to StreamState) {
		seen = append(seen, to)
	}))

	_, err := dev.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []StreamState{
		StateConfigured,
		StateBuffersReady,
		StateQueued,
		StateStreaming,
		StateFrameAvailable,
		StateStreaming,
		StateStopped,
		StateIdle,
	}, seen)
}
