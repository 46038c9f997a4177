package v4l2

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateBuffers(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})

	pool, err := dev.AllocateBuffers(DefaultBufferCount)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferCount, pool.Len())
	assert.Equal(t, DefaultBufferCount, pool.Mapped())
	assert.Equal(t, DefaultBufferCount, drv.liveMappings())
	for i, b := range pool.Buffers() {
		assert.Equal(t, uint32(i), b.Index)
		assert.Equal(t, drv.bufLen, b.Length)
	}
	assert.Equal(t, StateBuffersReady, dev.State())

	require.NoError(t, pool.Release())
	assert.Equal(t, 0, pool.Mapped())
	assert.Equal(t, 0, drv.liveMappings())
	assert.Nil(t, drv.mem, "driver buffers must be freed")
	require.NoError(t, pool.Release(), "second release is a no-op")
}

func TestAllocateBuffersRollsBackOnMapFailure(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	drv.failMmapAt = 3

	pool, err := dev.AllocateBuffers(4)
	require.Error(t, err)
	assert.Nil(t, pool)

	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 2, poolErr.Index)
	assert.ErrorIs(t, err, syscall.ENOMEM)

	assert.Equal(t, 0, drv.liveMappings(), "mappings 1 and 2 must be unmapped")
	assert.Nil(t, drv.mem, "driver buffers must be freed")
	assert.Equal(t, 2, drv.countCalls(ReqReqBufs))

	// A retry requests a fresh set of four.
	pool, err = dev.AllocateBuffers(4)
	require.NoError(t, err)
	assert.Equal(t, 4, pool.Mapped())
	assert.Equal(t, 3, drv.countCalls(ReqReqBufs))
	require.NoError(t, pool.Release())
}

func TestAllocateBuffersRollsBackOnQueryFailure(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	drv.fail[ReqQueryBuf] = syscall.EIO

	_, err := dev.AllocateBuffers(4)
	var poolErr *PoolError
	require.ErrorAs(t, err, &poolErr)
	assert.Equal(t, 0, poolErr.Index)
	assert.Equal(t, 0, drv.liveMappings())
}

func TestAllocateBuffersRejectsPartialGrant(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	drv.grant = 2

	_, err := dev.AllocateBuffers(4)
	require.ErrorIs(t, err, ErrPoolSize)
	assert.Nil(t, drv.mem, "granted buffers must be returned")
	assert.Equal(t, 0, drv.countCalls(ReqQueryBuf))
}

func TestAllocateBuffersInvalidCount(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	_, err := dev.AllocateBuffers(0)
	require.Error(t, err)
	assert.Equal(t, 0, drv.countCalls(ReqReqBufs))
}

func TestReleaseWhileStreaming(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	pool, err := dev.AllocateBuffers(4)
	require.NoError(t, err)

	stream, err := pool.StreamOn()
	require.NoError(t, err)

	require.ErrorIs(t, pool.Release(), ErrPoolStreaming)
	assert.Equal(t, 4, drv.liveMappings())

	pool, err = stream.StreamOff()
	require.NoError(t, err)
	require.NoError(t, pool.Release())
	assert.Equal(t, 0, drv.liveMappings())
}

func TestMappedSpan(t *testing.T) {
	drv := newFakeDriver(nativeLayout)
	ch := newChannel(drv, nativeLayout)
	drv.mem = [][]byte{make([]byte, 16)}

	data, err := ch.mmap(0, 16)
	require.NoError(t, err)
	span := mappedSpan{data: data}

	b, err := span.bytes(8)
	require.NoError(t, err)
	assert.Len(t, b, 8)

	_, err = span.bytes(17)
	require.Error(t, err)

	require.NoError(t, span.unmap(ch))
	require.NoError(t, span.unmap(ch), "unmapping twice is a no-op")

	_, err = span.bytes(1)
	require.ErrorIs(t, err, ErrBufferReleased)
}

func TestStreamOnReleasedPool(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	pool, err := dev.AllocateBuffers(4)
	require.NoError(t, err)
	require.NoError(t, pool.Release())

	_, err = pool.StreamOn()
	require.ErrorIs(t, err, ErrPoolReleased)
}

func TestStreamOnFailureKeepsPoolReleasable(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{})
	drv.fail[ReqStreamOn] = syscall.EIO

	pool, err := dev.AllocateBuffers(4)
	require.NoError(t, err)

	_, err = pool.StreamOn()
	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "on", streamErr.Op)

	require.NoError(t, pool.Release())
	assert.Equal(t, 0, drv.liveMappings())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = dev.Capture(ctx)
	require.ErrorIs(t, err, syscall.EIO)
	assert.Equal(t, 0, drv.liveMappings())
}
