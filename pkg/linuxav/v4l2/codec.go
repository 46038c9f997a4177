package v4l2

import (
	"encoding/binary"
	"time"
)

var ne = binary.NativeEndian

// message is a kernel structure with an explicit wire form. Every field is
// written at a fixed offset so the encoded bytes match the C layout exactly.
type message interface {
	size(l layout) int
	encode(l layout, b []byte)
	decode(l layout, b []byte)
}

func putWord(l layout, b []byte, v int64) {
	if l.word == 8 {
		ne.PutUint64(b, uint64(v))
		return
	}
	ne.PutUint32(b, uint32(int32(v)))
}

func getWord(l layout, b []byte) int64 {
	if l.word == 8 {
		return int64(ne.Uint64(b))
	}
	return int64(int32(ne.Uint32(b)))
}

// struct v4l2_capability
type capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
}

func (*capability) size(layout) int { return 104 }

func (m *capability) encode(_ layout, b []byte) {
	copy(b[0:16], m.driver[:])
	copy(b[16:48], m.card[:])
	copy(b[48:80], m.busInfo[:])
	ne.PutUint32(b[80:], m.version)
	ne.PutUint32(b[84:], m.capabilities)
	ne.PutUint32(b[88:], m.deviceCaps)
}

func (m *capability) decode(_ layout, b []byte) {
	copy(m.driver[:], b[0:16])
	copy(m.card[:], b[16:48])
	copy(m.busInfo[:], b[48:80])
	m.version = ne.Uint32(b[80:])
	m.capabilities = ne.Uint32(b[84:])
	m.deviceCaps = ne.Uint32(b[88:])
}

// struct v4l2_fmtdesc
type fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbusCode    uint32
}

func (*fmtdesc) size(layout) int { return 64 }

func (m *fmtdesc) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.index)
	ne.PutUint32(b[4:], m.typ)
	ne.PutUint32(b[8:], m.flags)
	copy(b[12:44], m.description[:])
	ne.PutUint32(b[44:], m.pixelformat)
	ne.PutUint32(b[48:], m.mbusCode)
}

func (m *fmtdesc) decode(_ layout, b []byte) {
	m.index = ne.Uint32(b[0:])
	m.typ = ne.Uint32(b[4:])
	m.flags = ne.Uint32(b[8:])
	copy(m.description[:], b[12:44])
	m.pixelformat = ne.Uint32(b[44:])
	m.mbusCode = ne.Uint32(b[48:])
}

// struct v4l2_pix_format, embedded in the v4l2_format union.
type pixFormat struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

// struct v4l2_format. The union holds pointers in v4l2_window, so it is
// aligned to the word size and the struct is 208 bytes on 64-bit, 204 on 32-bit.
type format struct {
	typ uint32
	pix pixFormat
}

func (format) unionOffset(l layout) int { return l.align(4) }

func (m *format) size(l layout) int { return m.unionOffset(l) + 200 }

func (m *format) encode(l layout, b []byte) {
	ne.PutUint32(b[0:], m.typ)
	p := b[m.unionOffset(l):]
	ne.PutUint32(p[0:], m.pix.width)
	ne.PutUint32(p[4:], m.pix.height)
	ne.PutUint32(p[8:], m.pix.pixelformat)
	ne.PutUint32(p[12:], m.pix.field)
	ne.PutUint32(p[16:], m.pix.bytesperline)
	ne.PutUint32(p[20:], m.pix.sizeimage)
	ne.PutUint32(p[24:], m.pix.colorspace)
	ne.PutUint32(p[28:], m.pix.priv)
	ne.PutUint32(p[32:], m.pix.flags)
	ne.PutUint32(p[36:], m.pix.ycbcrEnc)
	ne.PutUint32(p[40:], m.pix.quantization)
	ne.PutUint32(p[44:], m.pix.xferFunc)
}

func (m *format) decode(l layout, b []byte) {
	m.typ = ne.Uint32(b[0:])
	p := b[m.unionOffset(l):]
	m.pix.width = ne.Uint32(p[0:])
	m.pix.height = ne.Uint32(p[4:])
	m.pix.pixelformat = ne.Uint32(p[8:])
	m.pix.field = ne.Uint32(p[12:])
	m.pix.bytesperline = ne.Uint32(p[16:])
	m.pix.sizeimage = ne.Uint32(p[20:])
	m.pix.colorspace = ne.Uint32(p[24:])
	m.pix.priv = ne.Uint32(p[28:])
	m.pix.flags = ne.Uint32(p[32:])
	m.pix.ycbcrEnc = ne.Uint32(p[36:])
	m.pix.quantization = ne.Uint32(p[40:])
	m.pix.xferFunc = ne.Uint32(p[44:])
}

// struct v4l2_requestbuffers
type requestBuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
}

func (*requestBuffers) size(layout) int { return 20 }

func (m *requestBuffers) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.count)
	ne.PutUint32(b[4:], m.typ)
	ne.PutUint32(b[8:], m.memory)
	ne.PutUint32(b[12:], m.capabilities)
	b[16] = m.flags
}

func (m *requestBuffers) decode(_ layout, b []byte) {
	m.count = ne.Uint32(b[0:])
	m.typ = ne.Uint32(b[4:])
	m.memory = ne.Uint32(b[8:])
	m.capabilities = ne.Uint32(b[12:])
	m.flags = b[16]
}

// struct v4l2_timecode
type timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// struct v4l2_buffer for single-planar MMAP buffers. The m union carries the
// mmap offset in its low 32 bits.
type buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	timestamp time.Duration
	timecode  timecode
	sequence  uint32
	memory    uint32
	offset    uint32
	length    uint32
	requestFD int32
}

// bufferOffsets holds the layout-dependent field offsets of v4l2_buffer.
type bufferOffsets struct {
	timestamp, timecode, sequence, memory, m, length, requestFD, size int
}

func (buffer) offsets(l layout) bufferOffsets {
	var o bufferOffsets
	o.timestamp = l.align(20)
	o.timecode = o.timestamp + l.timevalSize()
	o.sequence = o.timecode + 16
	o.memory = o.sequence + 4
	o.m = l.align(o.memory + 4)
	o.length = o.m + l.word
	o.requestFD = o.length + 8
	o.size = l.align(o.requestFD + 4)
	return o
}

func (m *buffer) size(l layout) int { return m.offsets(l).size }

func (m *buffer) encode(l layout, b []byte) {
	o := m.offsets(l)
	ne.PutUint32(b[0:], m.index)
	ne.PutUint32(b[4:], m.typ)
	ne.PutUint32(b[8:], m.bytesused)
	ne.PutUint32(b[12:], m.flags)
	ne.PutUint32(b[16:], m.field)
	putWord(l, b[o.timestamp:], int64(m.timestamp/time.Second))
	putWord(l, b[o.timestamp+l.word:], int64(m.timestamp%time.Second/time.Microsecond))
	tc := b[o.timecode:]
	ne.PutUint32(tc[0:], m.timecode.typ)
	ne.PutUint32(tc[4:], m.timecode.flags)
	tc[8], tc[9], tc[10], tc[11] = m.timecode.frames, m.timecode.seconds, m.timecode.minutes, m.timecode.hours
	copy(tc[12:16], m.timecode.userbits[:])
	ne.PutUint32(b[o.sequence:], m.sequence)
	ne.PutUint32(b[o.memory:], m.memory)
	// mem_offset is the first member of the m union; the rest of the word stays zero.
	clear(b[o.m : o.m+l.word])
	ne.PutUint32(b[o.m:], m.offset)
	ne.PutUint32(b[o.length:], m.length)
	ne.PutUint32(b[o.requestFD:], uint32(m.requestFD))
}

func (m *buffer) decode(l layout, b []byte) {
	o := m.offsets(l)
	m.index = ne.Uint32(b[0:])
	m.typ = ne.Uint32(b[4:])
	m.bytesused = ne.Uint32(b[8:])
	m.flags = ne.Uint32(b[12:])
	m.field = ne.Uint32(b[16:])
	sec := getWord(l, b[o.timestamp:])
	usec := getWord(l, b[o.timestamp+l.word:])
	m.timestamp = time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond
	tc := b[o.timecode:]
	m.timecode.typ = ne.Uint32(tc[0:])
	m.timecode.flags = ne.Uint32(tc[4:])
	m.timecode.frames, m.timecode.seconds, m.timecode.minutes, m.timecode.hours = tc[8], tc[9], tc[10], tc[11]
	copy(m.timecode.userbits[:], tc[12:16])
	m.sequence = ne.Uint32(b[o.sequence:])
	m.memory = ne.Uint32(b[o.memory:])
	m.offset = ne.Uint32(b[o.m:])
	m.length = ne.Uint32(b[o.length:])
	m.requestFD = int32(ne.Uint32(b[o.requestFD:]))
}

// struct v4l2_queryctrl
type queryCtrl struct {
	id           uint32
	typ          uint32
	name         [32]byte
	minimum      int32
	maximum      int32
	step         int32
	defaultValue int32
	flags        uint32
}

func (*queryCtrl) size(layout) int { return 68 }

func (m *queryCtrl) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.id)
	ne.PutUint32(b[4:], m.typ)
	copy(b[8:40], m.name[:])
	ne.PutUint32(b[40:], uint32(m.minimum))
	ne.PutUint32(b[44:], uint32(m.maximum))
	ne.PutUint32(b[48:], uint32(m.step))
	ne.PutUint32(b[52:], uint32(m.defaultValue))
	ne.PutUint32(b[56:], m.flags)
}

func (m *queryCtrl) decode(_ layout, b []byte) {
	m.id = ne.Uint32(b[0:])
	m.typ = ne.Uint32(b[4:])
	copy(m.name[:], b[8:40])
	m.minimum = int32(ne.Uint32(b[40:]))
	m.maximum = int32(ne.Uint32(b[44:]))
	m.step = int32(ne.Uint32(b[48:]))
	m.defaultValue = int32(ne.Uint32(b[52:]))
	m.flags = ne.Uint32(b[56:])
}

// struct v4l2_control
type control struct {
	id    uint32
	value int32
}

func (*control) size(layout) int { return 8 }

func (m *control) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.id)
	ne.PutUint32(b[4:], uint32(m.value))
}

func (m *control) decode(_ layout, b []byte) {
	m.id = ne.Uint32(b[0:])
	m.value = int32(ne.Uint32(b[4:]))
}

// struct v4l2_rect
type rect struct {
	left, top     int32
	width, height uint32
}

func (r rect) put(b []byte) {
	ne.PutUint32(b[0:], uint32(r.left))
	ne.PutUint32(b[4:], uint32(r.top))
	ne.PutUint32(b[8:], r.width)
	ne.PutUint32(b[12:], r.height)
}

func getRect(b []byte) rect {
	return rect{
		left:   int32(ne.Uint32(b[0:])),
		top:    int32(ne.Uint32(b[4:])),
		width:  ne.Uint32(b[8:]),
		height: ne.Uint32(b[12:]),
	}
}

// struct v4l2_fract
type fract struct {
	numerator, denominator uint32
}

func (f fract) put(b []byte) {
	ne.PutUint32(b[0:], f.numerator)
	ne.PutUint32(b[4:], f.denominator)
}

func getFract(b []byte) fract {
	return fract{numerator: ne.Uint32(b[0:]), denominator: ne.Uint32(b[4:])}
}

// struct v4l2_cropcap
type cropCap struct {
	typ         uint32
	bounds      rect
	defrect     rect
	pixelaspect fract
}

func (*cropCap) size(layout) int { return 44 }

func (m *cropCap) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.typ)
	m.bounds.put(b[4:])
	m.defrect.put(b[20:])
	m.pixelaspect.put(b[36:])
}

func (m *cropCap) decode(_ layout, b []byte) {
	m.typ = ne.Uint32(b[0:])
	m.bounds = getRect(b[4:])
	m.defrect = getRect(b[20:])
	m.pixelaspect = getFract(b[36:])
}

// struct v4l2_frmsizeenum. For discrete entries only minWidth and minHeight
// are meaningful and map to the union's width and height.
type frmSizeEnum struct {
	index       uint32
	pixelFormat uint32
	typ         uint32
	minWidth    uint32
	maxWidth    uint32
	stepWidth   uint32
	minHeight   uint32
	maxHeight   uint32
	stepHeight  uint32
}

func (*frmSizeEnum) size(layout) int { return 44 }

func (m *frmSizeEnum) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.index)
	ne.PutUint32(b[4:], m.pixelFormat)
	ne.PutUint32(b[8:], m.typ)
	if m.typ == frmSizeTypeDiscrete {
		ne.PutUint32(b[12:], m.minWidth)
		ne.PutUint32(b[16:], m.minHeight)
		return
	}
	ne.PutUint32(b[12:], m.minWidth)
	ne.PutUint32(b[16:], m.maxWidth)
	ne.PutUint32(b[20:], m.stepWidth)
	ne.PutUint32(b[24:], m.minHeight)
	ne.PutUint32(b[28:], m.maxHeight)
	ne.PutUint32(b[32:], m.stepHeight)
}

func (m *frmSizeEnum) decode(_ layout, b []byte) {
	m.index = ne.Uint32(b[0:])
	m.pixelFormat = ne.Uint32(b[4:])
	m.typ = ne.Uint32(b[8:])
	if m.typ == frmSizeTypeDiscrete {
		m.minWidth, m.maxWidth, m.stepWidth = ne.Uint32(b[12:]), ne.Uint32(b[12:]), 0
		m.minHeight, m.maxHeight, m.stepHeight = ne.Uint32(b[16:]), ne.Uint32(b[16:]), 0
		return
	}
	m.minWidth = ne.Uint32(b[12:])
	m.maxWidth = ne.Uint32(b[16:])
	m.stepWidth = ne.Uint32(b[20:])
	m.minHeight = ne.Uint32(b[24:])
	m.maxHeight = ne.Uint32(b[28:])
	m.stepHeight = ne.Uint32(b[32:])
}

// struct v4l2_frmivalenum. Discrete entries use min only.
type frmIvalEnum struct {
	index       uint32
	pixelFormat uint32
	width       uint32
	height      uint32
	typ         uint32
	min         fract
	max         fract
	step        fract
}

func (*frmIvalEnum) size(layout) int { return 52 }

func (m *frmIvalEnum) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.index)
	ne.PutUint32(b[4:], m.pixelFormat)
	ne.PutUint32(b[8:], m.width)
	ne.PutUint32(b[12:], m.height)
	ne.PutUint32(b[16:], m.typ)
	m.min.put(b[20:])
	if m.typ != frmIvalTypeDiscrete {
		m.max.put(b[28:])
		m.step.put(b[36:])
	}
}

func (m *frmIvalEnum) decode(_ layout, b []byte) {
	m.index = ne.Uint32(b[0:])
	m.pixelFormat = ne.Uint32(b[4:])
	m.width = ne.Uint32(b[8:])
	m.height = ne.Uint32(b[12:])
	m.typ = ne.Uint32(b[16:])
	m.min = getFract(b[20:])
	if m.typ == frmIvalTypeDiscrete {
		m.max, m.step = m.min, fract{}
		return
	}
	m.max = getFract(b[28:])
	m.step = getFract(b[36:])
}

// struct v4l2_streamparm with the v4l2_captureparm member of the union.
type streamParm struct {
	typ          uint32
	capability   uint32
	capturemode  uint32
	timeperframe fract
	extendedmode uint32
	readbuffers  uint32
}

func (*streamParm) size(layout) int { return 204 }

func (m *streamParm) encode(_ layout, b []byte) {
	ne.PutUint32(b[0:], m.typ)
	ne.PutUint32(b[4:], m.capability)
	ne.PutUint32(b[8:], m.capturemode)
	m.timeperframe.put(b[12:])
	ne.PutUint32(b[20:], m.extendedmode)
	ne.PutUint32(b[24:], m.readbuffers)
}

func (m *streamParm) decode(_ layout, b []byte) {
	m.typ = ne.Uint32(b[0:])
	m.capability = ne.Uint32(b[4:])
	m.capturemode = ne.Uint32(b[8:])
	m.timeperframe = getFract(b[12:])
	m.extendedmode = ne.Uint32(b[20:])
	m.readbuffers = ne.Uint32(b[24:])
}

// bufType is the int argument of VIDIOC_STREAMON and VIDIOC_STREAMOFF.
type bufType uint32

func (*bufType) size(layout) int { return 4 }

func (m *bufType) encode(_ layout, b []byte) { ne.PutUint32(b, uint32(*m)) }

func (m *bufType) decode(_ layout, b []byte) { *m = bufType(ne.Uint32(b)) }
