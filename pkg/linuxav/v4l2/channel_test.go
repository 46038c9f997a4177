package v4l2

import (
	"errors"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelExecute(t *testing.T) {
	for _, l := range []layout{layout64, layout32} {
		drv := newFakeDriver(l)
		ch := newChannel(drv, l)

		var c capability
		require.NoError(t, ch.Execute(ReqQueryCap, &c))
		assert.Equal(t, "fakecam", cstr(c.driver[:]))

		f := format{typ: bufTypeVideoCapture}
		require.NoError(t, ch.Execute(ReqGetFmt, &f))
		assert.Equal(t, uint32(640), f.pix.width)
		assert.Equal(t, uint32(PixelFormatYUYV), f.pix.pixelformat)
	}
}

func TestChannelRejectsUnknownRequest(t *testing.T) {
	ch := newChannel(newFakeDriver(nativeLayout), nativeLayout)
	err := ch.Execute(Request(42), &control{})
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func TestChannelRejectsMismatchedMessage(t *testing.T) {
	drv := newFakeDriver(nativeLayout)
	ch := newChannel(drv, nativeLayout)
	err := ch.Execute(ReqSetCtrl, &queryCtrl{})
	require.ErrorIs(t, err, ErrMessageMismatch)
	assert.Empty(t, drv.calls, "mismatched message must not reach the driver")
}

func TestChannelRequestError(t *testing.T) {
	drv := newFakeDriver(nativeLayout)
	ch := newChannel(drv, nativeLayout)

	err := ch.Execute(ReqQueryCtrl, &queryCtrl{id: 0xdeadbeef})
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, ReqQueryCtrl, reqErr.Request)
	assert.True(t, errors.Is(err, syscall.EINVAL))
	assert.Contains(t, err.Error(), "VIDIOC_QUERYCTRL")
}

func TestChannelClosed(t *testing.T) {
	drv := newFakeDriver(nativeLayout)
	ch := newChannel(drv, nativeLayout)

	require.NoError(t, ch.close())
	require.NoError(t, ch.close(), "second close is a no-op")

	err := ch.Execute(ReqQueryCap, &capability{})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, fs.ErrClosed)

	_, err = ch.mmap(0, 10)
	require.ErrorIs(t, err, ErrClosed)
	_, err = ch.poll(0)
	require.ErrorIs(t, err, ErrClosed)
}

func TestDeviceCloseOnce(t *testing.T) {
	dev, drv := newTestDevice(ConnectionSettings{BusID: 2})
	assert.Equal(t, "/dev/video2", dev.Path())

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	assert.True(t, drv.closed)

	_, err := dev.Capability()
	require.ErrorIs(t, err, ErrClosed)
}

func TestDeviceCapability(t *testing.T) {
	dev, _ := newTestDevice(ConnectionSettings{})
	c, err := dev.Capability()
	require.NoError(t, err)

	assert.Equal(t, "Fake Camera", c.Card)
	assert.Equal(t, "platform:fake", c.BusInfo)
	assert.True(t, c.CanCapture())
	assert.True(t, c.CanStream())
	assert.Equal(t, []string{"video_capture", "streaming"}, c.Names())

	whole := Capability{Capabilities: capVideoCapture | 0x00000002}
	assert.Equal(t, []string{"video_capture", "video_output"}, whole.Names(), "no device caps falls back to physical caps")
}

func TestErrnoComparison(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{"EINVAL through RequestError", &RequestError{Request: ReqEnumFmt, Err: syscall.EINVAL}, syscall.EINVAL, true},
		{"ENOTTY through RequestError", &RequestError{Request: ReqEnumFrameSizes, Err: syscall.ENOTTY}, syscall.ENOTTY, true},
		{"EINVAL through ControlError", &ControlError{Control: ControlGain, Err: &RequestError{Request: ReqQueryCtrl, Err: syscall.EINVAL}}, syscall.EINVAL, true},
		{"EBUSY through PoolError", &PoolError{Index: -1, Err: syscall.EBUSY}, syscall.EBUSY, true},
		{"EINVAL does not match ENOTTY", &RequestError{Request: ReqEnumFmt, Err: syscall.EINVAL}, syscall.ENOTTY, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errors.Is(tt.err, tt.target)
			if result != tt.expected {
				t.Errorf("errors.Is(%v, %v) = %v, want %v",
					tt.err, tt.target, result, tt.expected)
			}
		})
	}
}
