package v4l2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructSizes(t *testing.T) {
	tests := []struct {
		name   string
		msg    message
		size64 int
		size32 int
	}{
		{"v4l2_capability", &capability{}, 104, 104},
		{"v4l2_fmtdesc", &fmtdesc{}, 64, 64},
		{"v4l2_format", &format{}, 208, 204},
		{"v4l2_requestbuffers", &requestBuffers{}, 20, 20},
		{"v4l2_buffer", &buffer{}, 88, 68},
		{"v4l2_queryctrl", &queryCtrl{}, 68, 68},
		{"v4l2_control", &control{}, 8, 8},
		{"v4l2_cropcap", &cropCap{}, 44, 44},
		{"v4l2_frmsizeenum", &frmSizeEnum{}, 44, 44},
		{"v4l2_frmivalenum", &frmIvalEnum{}, 52, 52},
		{"v4l2_streamparm", &streamParm{}, 204, 204},
		{"int", new(bufType), 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.size64, tt.msg.size(layout64))
			require.Equal(t, tt.size32, tt.msg.size(layout32))
		})
	}
}

func TestRequestCodes(t *testing.T) {
	codes64 := map[Request]uintptr{
		ReqQueryCap:           0x80685600,
		ReqEnumFmt:            0xc0405602,
		ReqGetFmt:             0xc0d05604,
		ReqSetFmt:             0xc0d05605,
		ReqReqBufs:            0xc0145608,
		ReqQueryBuf:           0xc0585609,
		ReqQBuf:               0xc058560f,
		ReqDQBuf:              0xc0585611,
		ReqStreamOn:           0x40045612,
		ReqStreamOff:          0x40045613,
		ReqGetParm:            0xc0cc5615,
		ReqSetParm:            0xc0cc5616,
		ReqGetCtrl:            0xc008561b,
		ReqSetCtrl:            0xc008561c,
		ReqQueryCtrl:          0xc0445624,
		ReqCropCap:            0xc02c563a,
		ReqEnumFrameSizes:     0xc02c564a,
		ReqEnumFrameIntervals: 0xc034564b,
	}
	require.Len(t, codes64, len(requestTable), "every request must have a pinned code")

	for req, want := range codes64 {
		got, err := req.code(layout64)
		require.NoError(t, err)
		assert.Equalf(t, want, got, "%s: got %#x want %#x", req, got, want)
	}

	codes32 := map[Request]uintptr{
		ReqGetFmt:   0xc0cc5604,
		ReqSetFmt:   0xc0cc5605,
		ReqQueryBuf: 0xc0445609,
		ReqQBuf:     0xc044560f,
		ReqDQBuf:    0xc0445611,
		ReqQueryCap: 0x80685600,
	}
	for req, want := range codes32 {
		got, err := req.code(layout32)
		require.NoError(t, err)
		assert.Equalf(t, want, got, "%s: got %#x want %#x", req, got, want)
	}

	_, err := Request(999).code(layout64)
	require.ErrorIs(t, err, ErrUnknownRequest)
}

func encodeMsg(l layout, m message) []byte {
	b := make([]byte, m.size(l))
	m.encode(l, b)
	return b
}

func TestBufferOffsets(t *testing.T) {
	in := &buffer{
		index:     3,
		typ:       bufTypeVideoCapture,
		bytesused: 0x1234,
		flags:     bufFlagDone,
		field:     fieldNone,
		timestamp: 2*time.Second + 500*time.Microsecond,
		sequence:  7,
		memory:    memoryMmap,
		offset:    0x4000,
		length:    0x9600,
	}

	t.Run("64-bit", func(t *testing.T) {
		b := encodeMsg(layout64, in)
		assert.Equal(t, uint32(3), ne.Uint32(b[0:]))
		assert.Equal(t, uint32(0x1234), ne.Uint32(b[8:]))
		assert.Equal(t, uint64(2), ne.Uint64(b[24:]))
		assert.Equal(t, uint64(500), ne.Uint64(b[32:]))
		assert.Equal(t, uint32(7), ne.Uint32(b[56:]))
		assert.Equal(t, uint32(memoryMmap), ne.Uint32(b[60:]))
		assert.Equal(t, uint32(0x4000), ne.Uint32(b[64:]))
		assert.Equal(t, []byte{0, 0, 0, 0}, b[68:72], "union tail stays zero")
		assert.Equal(t, uint32(0x9600), ne.Uint32(b[72:]))

		var out buffer
		out.decode(layout64, b)
		assert.Equal(t, *in, out)
	})

	t.Run("64-bit reused buffer", func(t *testing.T) {
		b := make([]byte, in.size(layout64))
		for i := range b {
			b[i] = 0xff
		}
		in.encode(layout64, b)
		assert.Equal(t, uint32(0x4000), ne.Uint32(b[64:]))
		assert.Equal(t, []byte{0, 0, 0, 0}, b[68:72])
	})

	t.Run("32-bit", func(t *testing.T) {
		b := encodeMsg(layout32, in)
		assert.Equal(t, uint32(2), ne.Uint32(b[20:]))
		assert.Equal(t, uint32(500), ne.Uint32(b[24:]))
		assert.Equal(t, uint32(7), ne.Uint32(b[44:]))
		assert.Equal(t, uint32(memoryMmap), ne.Uint32(b[48:]))
		assert.Equal(t, uint32(0x4000), ne.Uint32(b[52:]))
		assert.Equal(t, uint32(0x9600), ne.Uint32(b[56:]))

		var out buffer
		out.decode(layout32, b)
		assert.Equal(t, *in, out)
	})
}

func TestFormatOffsets(t *testing.T) {
	in := &format{
		typ: bufTypeVideoCapture,
		pix: pixFormat{width: 1920, height: 1080, pixelformat: uint32(PixelFormatMJPEG), sizeimage: 4147200},
	}

	b64 := encodeMsg(layout64, in)
	assert.Equal(t, uint32(1920), ne.Uint32(b64[8:]))
	assert.Equal(t, uint32(1080), ne.Uint32(b64[12:]))
	assert.Equal(t, uint32(PixelFormatMJPEG), ne.Uint32(b64[16:]))
	assert.Equal(t, uint32(4147200), ne.Uint32(b64[28:]))

	b32 := encodeMsg(layout32, in)
	assert.Equal(t, uint32(1920), ne.Uint32(b32[4:]))
	assert.Equal(t, uint32(PixelFormatMJPEG), ne.Uint32(b32[12:]))

	var out format
	out.decode(layout32, b32)
	assert.Equal(t, *in, out)
}

func TestControlStructOffsets(t *testing.T) {
	q := &queryCtrl{id: uint32(ControlGain), typ: uint32(ControlTypeInteger), minimum: -5, maximum: 255, step: 1, defaultValue: 12, flags: ctrlFlagInactive}
	copy(q.name[:], "Gain")
	b := encodeMsg(layout64, q)
	assert.Equal(t, uint32(ControlGain), ne.Uint32(b[0:]))
	assert.Equal(t, "Gain", cstr(b[8:40]))
	assert.Equal(t, int32(-5), int32(ne.Uint32(b[40:])))
	assert.Equal(t, int32(12), int32(ne.Uint32(b[52:])))
	assert.Equal(t, uint32(ctrlFlagInactive), ne.Uint32(b[56:]))

	c := encodeMsg(layout64, &control{id: uint32(ControlBrightness), value: -3})
	assert.Equal(t, uint32(ControlBrightness), ne.Uint32(c[0:]))
	assert.Equal(t, int32(-3), int32(ne.Uint32(c[4:])))
}

func TestEnumStructOffsets(t *testing.T) {
	fs := &frmSizeEnum{index: 1, pixelFormat: uint32(PixelFormatYUYV), typ: frmSizeTypeStepwise,
		minWidth: 160, maxWidth: 1920, stepWidth: 16, minHeight: 120, maxHeight: 1080, stepHeight: 8}
	b := encodeMsg(layout64, fs)
	assert.Equal(t, uint32(160), ne.Uint32(b[12:]))
	assert.Equal(t, uint32(1920), ne.Uint32(b[16:]))
	assert.Equal(t, uint32(1080), ne.Uint32(b[28:]))
	assert.Equal(t, uint32(8), ne.Uint32(b[32:]))

	disc := &frmSizeEnum{typ: frmSizeTypeDiscrete, minWidth: 640, minHeight: 480}
	b = encodeMsg(layout64, disc)
	assert.Equal(t, uint32(640), ne.Uint32(b[12:]))
	assert.Equal(t, uint32(480), ne.Uint32(b[16:]))
	var got frmSizeEnum
	got.decode(layout64, b)
	assert.Equal(t, uint32(640), got.maxWidth)
	assert.Equal(t, uint32(480), got.maxHeight)

	fi := &frmIvalEnum{width: 640, height: 480, typ: frmIvalTypeStepwise, min: fract{1, 60}, max: fract{1, 5}, step: fract{1, 1}}
	b = encodeMsg(layout64, fi)
	assert.Equal(t, uint32(640), ne.Uint32(b[8:]))
	assert.Equal(t, uint32(60), ne.Uint32(b[24:]))
	assert.Equal(t, uint32(5), ne.Uint32(b[32:]))

	cc := &cropCap{typ: bufTypeVideoCapture, bounds: rect{left: -2, width: 640, height: 480}, pixelaspect: fract{54, 59}}
	b = encodeMsg(layout64, cc)
	assert.Equal(t, int32(-2), int32(ne.Uint32(b[4:])))
	assert.Equal(t, uint32(640), ne.Uint32(b[12:]))
	assert.Equal(t, uint32(54), ne.Uint32(b[36:]))
	assert.Equal(t, uint32(59), ne.Uint32(b[40:]))

	sp := &streamParm{typ: bufTypeVideoCapture, timeperframe: fract{1, 25}}
	b = encodeMsg(layout64, sp)
	assert.Equal(t, uint32(1), ne.Uint32(b[12:]))
	assert.Equal(t, uint32(25), ne.Uint32(b[16:]))
}

func TestRequestBuffersOffsets(t *testing.T) {
	b := encodeMsg(layout64, &requestBuffers{count: 4, typ: bufTypeVideoCapture, memory: memoryMmap, flags: 1})
	assert.Equal(t, uint32(4), ne.Uint32(b[0:]))
	assert.Equal(t, uint32(bufTypeVideoCapture), ne.Uint32(b[4:]))
	assert.Equal(t, uint32(memoryMmap), ne.Uint32(b[8:]))
	assert.Equal(t, byte(1), b[16])
}
