package v4l2

import (
	"fmt"
	"sync"
	"syscall"
	"time"
)

type fakeControl struct {
	info  queryCtrl
	value int32
}

// fakeDriver emulates a V4L2 capture node in memory. Requests arrive as
// encoded bytes and are decoded with the same codecs the channel uses, so
// tests exercise the full wire path.
type fakeDriver struct {
	mu     sync.Mutex
	layout layout
	codes  map[uintptr]Request

	caps     capability
	format   pixFormat
	formats  []fmtdesc
	sizes    map[uint32][]frmSizeEnum
	ivals    []frmIvalEnum
	crop     cropCap
	parm     streamParm
	controls map[ControlID]*fakeControl

	// snap, when set, picks the size S_FMT settles on, like drivers that
	// round to the nearest sensor mode.
	snap func(w, h uint32) (uint32, uint32)

	grant      int // buffer count granted; 0 grants what was asked
	bufLen     uint32
	mem        [][]byte
	mapped     map[*byte]bool
	mmapCalls  int
	failMmapAt int // 1-based mmap call that fails; 0 never
	fail       map[Request]error
	failCtrl   map[ControlID]error

	queue     []uint32
	streaming bool
	sequence  uint32
	bytesused uint32

	calls  []Request
	closed bool
}

func newFakeDriver(l layout) *fakeDriver {
	f := &fakeDriver{
		layout: l,
		codes:  make(map[uintptr]Request),
		format: pixFormat{
			width:        640,
			height:       480,
			pixelformat:  uint32(PixelFormatYUYV),
			bytesperline: 1280,
			sizeimage:    640 * 480 * 2,
		},
		controls: make(map[ControlID]*fakeControl),
		bufLen:   640 * 480 * 2,
		mapped:   make(map[*byte]bool),
		fail:     make(map[Request]error),
		failCtrl: make(map[ControlID]error),
		sizes:    make(map[uint32][]frmSizeEnum),
	}
	for req := range requestTable {
		code, _ := req.code(l)
		f.codes[code] = req
	}
	copy(f.caps.driver[:], "fakecam")
	copy(f.caps.card[:], "Fake Camera")
	copy(f.caps.busInfo[:], "platform:fake")
	f.caps.capabilities = capVideoCapture | capStreaming | capDeviceCaps
	f.caps.deviceCaps = capVideoCapture | capStreaming

	f.addFormat(PixelFormatYUYV, "YUYV 4:2:2", 0)
	f.addFormat(PixelFormatMJPEG, "Motion-JPEG", fmtFlagCompressed)
	f.addFormat(PixelFormatNV12, "Y/UV 4:2:0", 0)
	f.sizes[uint32(PixelFormatYUYV)] = []frmSizeEnum{
		{typ: frmSizeTypeDiscrete, minWidth: 640, minHeight: 480},
		{typ: frmSizeTypeDiscrete, minWidth: 1280, minHeight: 720},
	}
	f.sizes[uint32(PixelFormatNV12)] = []frmSizeEnum{
		{typ: frmSizeTypeDiscrete, minWidth: 1920, minHeight: 1080},
	}
	f.sizes[uint32(PixelFormatMJPEG)] = []frmSizeEnum{
		{typ: frmSizeTypeStepwise, minWidth: 160, maxWidth: 1920, stepWidth: 16, minHeight: 120, maxHeight: 1080, stepHeight: 8},
	}
	f.ivals = []frmIvalEnum{
		{typ: frmIvalTypeDiscrete, min: fract{1, 30}},
		{typ: frmIvalTypeDiscrete, min: fract{1, 15}},
	}
	f.crop = cropCap{
		bounds:      rect{width: 640, height: 480},
		defrect:     rect{width: 640, height: 480},
		pixelaspect: fract{1, 1},
	}
	f.parm = streamParm{capability: 0x1000, timeperframe: fract{1, 30}}

	f.addControl(ControlBrightness, "Brightness", ControlTypeInteger, -64, 64, 1, 0, 0)
	f.addControl(ControlContrast, "Contrast", ControlTypeInteger, 0, 95, 1, 32, 0)
	f.addControl(ControlSaturation, "Saturation", ControlTypeInteger, 0, 100, 1, 55, 0)
	f.addControl(ControlGain, "Gain", ControlTypeInteger, 0, 255, 1, 12, 0)
	f.addControl(ControlExposureType, "Auto Exposure", ControlTypeMenu, 0, 3, 1, int32(ExposureAperturePriority), 0)
	f.addControl(ControlExposureTime, "Exposure Time, Absolute", ControlTypeInteger, 1, 5000, 1, 157, ctrlFlagInactive)
	f.addControl(ControlPowerLineFrequency, "Power Line Frequency", ControlTypeMenu, 0, 2, 1, int32(PowerLine60Hz), 0)
	f.addControl(ControlHorizontalFlip, "Horizontal Flip", ControlTypeBoolean, 0, 1, 1, 0, 0)
	f.addControl(ControlVerticalFlip, "Vertical Flip", ControlTypeBoolean, 0, 1, 1, 1, 0)
	return f
}

// fakePixFormat sizes a frame the way a driver would: exact for raw
// formats, a w*h worst case for compressed ones.
func fakePixFormat(w, h uint32, pf PixelFormat) pixFormat {
	p := pixFormat{width: w, height: h, pixelformat: uint32(pf)}
	if size, ok := FrameSize(pf, w, h); ok {
		p.sizeimage = uint32(size)
		p.bytesperline = uint32(size) / h
		if pf == PixelFormatNV12 {
			p.bytesperline = w
		}
		return p
	}
	p.sizeimage = w * h
	return p
}

func (f *fakeDriver) addFormat(pf PixelFormat, desc string, flags uint32) {
	d := fmtdesc{typ: bufTypeVideoCapture, flags: flags, pixelformat: uint32(pf)}
	copy(d.description[:], desc)
	f.formats = append(f.formats, d)
}

func (f *fakeDriver) addControl(id ControlID, name string, typ ControlType, min, max, step, def int32, flags uint32) {
	q := queryCtrl{id: uint32(id), typ: uint32(typ), minimum: min, maximum: max, step: step, defaultValue: def, flags: flags}
	copy(q.name[:], name)
	f.controls[id] = &fakeControl{info: q, value: def}
}

func (f *fakeDriver) countCalls(req Request) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == req {
			n++
		}
	}
	return n
}

func (f *fakeDriver) liveMappings() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mapped)
}

func (f *fakeDriver) ioctl(code uintptr, arg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.codes[code]
	if !ok {
		return syscall.ENOTTY
	}
	f.calls = append(f.calls, req)
	if err := f.fail[req]; err != nil {
		return err
	}
	if len(arg) != requestTable[req].proto().size(f.layout) {
		return syscall.EFAULT
	}

	msg := requestTable[req].proto()
	msg.decode(f.layout, arg)
	if err := f.handle(req, msg); err != nil {
		return err
	}
	msg.encode(f.layout, arg)
	return nil
}

func (f *fakeDriver) handle(req Request, msg message) error {
	switch m := msg.(type) {
	case *capability:
		*m = f.caps
	case *fmtdesc:
		if int(m.index) >= len(f.formats) {
			return syscall.EINVAL
		}
		idx := m.index
		*m = f.formats[idx]
		m.index = idx
	case *format:
		if req == ReqSetFmt {
			if f.streaming || len(f.mem) > 0 {
				return syscall.EBUSY
			}
			w, h := m.pix.width, m.pix.height
			if f.snap != nil {
				w, h = f.snap(w, h)
			}
			f.format = fakePixFormat(w, h, PixelFormat(m.pix.pixelformat))
			f.bufLen = f.format.sizeimage
		}
		m.pix = f.format
	case *frmSizeEnum:
		list := f.sizes[m.pixelFormat]
		if int(m.index) >= len(list) {
			return syscall.EINVAL
		}
		idx, pf := m.index, m.pixelFormat
		*m = list[idx]
		m.index, m.pixelFormat = idx, pf
	case *frmIvalEnum:
		if int(m.index) >= len(f.ivals) {
			return syscall.EINVAL
		}
		e := f.ivals[m.index]
		m.typ, m.min, m.max, m.step = e.typ, e.min, e.max, e.step
	case *cropCap:
		*m = f.crop
		m.typ = bufTypeVideoCapture
	case *streamParm:
		if req == ReqSetParm {
			f.parm.timeperframe = m.timeperframe
		}
		*m = f.parm
		m.typ = bufTypeVideoCapture
	case *queryCtrl:
		c, ok := f.controls[ControlID(m.id)]
		if !ok {
			return syscall.EINVAL
		}
		*m = c.info
	case *control:
		c, ok := f.controls[ControlID(m.id)]
		if !ok {
			return syscall.EINVAL
		}
		if err := f.failCtrl[ControlID(m.id)]; err != nil {
			return err
		}
		if req == ReqSetCtrl {
			if m.value < c.info.minimum || m.value > c.info.maximum {
				return syscall.ERANGE
			}
			c.value = m.value
		}
		m.value = c.value
	case *requestBuffers:
		return f.reqbufs(m)
	case *buffer:
		return f.handleBuffer(req, m)
	case *bufType:
		switch req {
		case ReqStreamOn:
			if len(f.queue) == 0 {
				return syscall.EINVAL
			}
			f.streaming = true
		case ReqStreamOff:
			f.streaming = false
			f.queue = nil
		}
	default:
		return fmt.Errorf("fake: unhandled %T", msg)
	}
	return nil
}

func (f *fakeDriver) reqbufs(m *requestBuffers) error {
	if f.streaming {
		return syscall.EBUSY
	}
	if m.count == 0 {
		f.mem = nil
		f.queue = nil
		return nil
	}
	n := int(m.count)
	if f.grant > 0 {
		n = f.grant
	}
	f.mem = make([][]byte, n)
	for i := range f.mem {
		f.mem[i] = make([]byte, f.bufLen)
	}
	m.count = uint32(n)
	return nil
}

func (f *fakeDriver) handleBuffer(req Request, m *buffer) error {
	switch req {
	case ReqQueryBuf, ReqQBuf:
		if int(m.index) >= len(f.mem) {
			return syscall.EINVAL
		}
		m.length = f.bufLen
		m.offset = m.index * 4096
		if req == ReqQBuf {
			for _, q := range f.queue {
				if q == m.index {
					return syscall.EINVAL
				}
			}
			f.queue = append(f.queue, m.index)
			m.flags = bufFlagMapped | bufFlagQueued
		}
	case ReqDQBuf:
		if !f.streaming || len(f.queue) == 0 {
			return syscall.EAGAIN
		}
		idx := f.queue[0]
		f.queue = f.queue[1:]
		f.sequence++
		mem := f.mem[idx]
		for i := range mem {
			mem[i] = byte(f.sequence)
		}
		m.index = idx
		m.length = f.bufLen
		m.bytesused = f.bytesused
		if m.bytesused == 0 {
			m.bytesused = f.bufLen
		}
		m.sequence = f.sequence
		m.flags = bufFlagMapped | bufFlagDone
		m.timestamp = time.Duration(f.sequence) * 33 * time.Millisecond
	}
	return nil
}

func (f *fakeDriver) mmap(offset int64, length int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mmapCalls++
	if f.failMmapAt > 0 && f.mmapCalls == f.failMmapAt {
		return nil, syscall.ENOMEM
	}
	idx := int(offset / 4096)
	if idx >= len(f.mem) || length != len(f.mem[idx]) {
		return nil, syscall.EINVAL
	}
	b := f.mem[idx]
	f.mapped[&b[0]] = true
	return b, nil
}

func (f *fakeDriver) munmap(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(b) == 0 || !f.mapped[&b[0]] {
		return syscall.EINVAL
	}
	delete(f.mapped, &b[0])
	return nil
}

func (f *fakeDriver) poll(time.Duration) (bool, error) {
	f.mu.Lock()
	ready := f.streaming && len(f.queue) > 0
	f.mu.Unlock()
	if !ready {
		time.Sleep(time.Millisecond)
	}
	return ready, nil
}

func (f *fakeDriver) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return syscall.EBADF
	}
	f.closed = true
	return nil
}

// newTestDevice opens a Device on a fresh fake driver.
func newTestDevice(settings ConnectionSettings, opts ...Option) (*Device, *fakeDriver) {
	drv := newFakeDriver(nativeLayout)
	return newDevice(settings, drv, nativeLayout, opts...), drv
}
