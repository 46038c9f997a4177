package v4l2

import "fmt"

// Request identifies one operation of the device control protocol.
// The set is closed: Execute rejects anything not in requestTable.
type Request int

// Supported requests.
const (
	ReqQueryCap Request = iota
	ReqEnumFmt
	ReqGetFmt
	ReqSetFmt
	ReqReqBufs
	ReqQueryBuf
	ReqQBuf
	ReqDQBuf
	ReqStreamOn
	ReqStreamOff
	ReqGetParm
	ReqSetParm
	ReqGetCtrl
	ReqSetCtrl
	ReqQueryCtrl
	ReqCropCap
	ReqEnumFrameSizes
	ReqEnumFrameIntervals
)

// ioctl direction bits.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits
)

type requestSpec struct {
	name  string
	dir   uintptr
	nr    uintptr
	proto func() message
}

var requestTable = map[Request]requestSpec{
	ReqQueryCap:           {"VIDIOC_QUERYCAP", iocRead, 0, func() message { return &capability{} }},
	ReqEnumFmt:            {"VIDIOC_ENUM_FMT", iocRead | iocWrite, 2, func() message { return &fmtdesc{} }},
	ReqGetFmt:             {"VIDIOC_G_FMT", iocRead | iocWrite, 4, func() message { return &format{} }},
	ReqSetFmt:             {"VIDIOC_S_FMT", iocRead | iocWrite, 5, func() message { return &format{} }},
	ReqReqBufs:            {"VIDIOC_REQBUFS", iocRead | iocWrite, 8, func() message { return &requestBuffers{} }},
	ReqQueryBuf:           {"VIDIOC_QUERYBUF", iocRead | iocWrite, 9, func() message { return &buffer{} }},
	ReqQBuf:               {"VIDIOC_QBUF", iocRead | iocWrite, 15, func() message { return &buffer{} }},
	ReqDQBuf:              {"VIDIOC_DQBUF", iocRead | iocWrite, 17, func() message { return &buffer{} }},
	ReqStreamOn:           {"VIDIOC_STREAMON", iocWrite, 18, func() message { return new(bufType) }},
	ReqStreamOff:          {"VIDIOC_STREAMOFF", iocWrite, 19, func() message { return new(bufType) }},
	ReqGetParm:            {"VIDIOC_G_PARM", iocRead | iocWrite, 21, func() message { return &streamParm{} }},
	ReqSetParm:            {"VIDIOC_S_PARM", iocRead | iocWrite, 22, func() message { return &streamParm{} }},
	ReqGetCtrl:            {"VIDIOC_G_CTRL", iocRead | iocWrite, 27, func() message { return &control{} }},
	ReqSetCtrl:            {"VIDIOC_S_CTRL", iocRead | iocWrite, 28, func() message { return &control{} }},
	ReqQueryCtrl:          {"VIDIOC_QUERYCTRL", iocRead | iocWrite, 36, func() message { return &queryCtrl{} }},
	ReqCropCap:            {"VIDIOC_CROPCAP", iocRead | iocWrite, 58, func() message { return &cropCap{} }},
	ReqEnumFrameSizes:     {"VIDIOC_ENUM_FRAMESIZES", iocRead | iocWrite, 74, func() message { return &frmSizeEnum{} }},
	ReqEnumFrameIntervals: {"VIDIOC_ENUM_FRAMEINTERVALS", iocRead | iocWrite, 75, func() message { return &frmIvalEnum{} }},
}

func (r Request) String() string {
	if entry, ok := requestTable[r]; ok {
		return entry.name
	}
	return fmt.Sprintf("Request(%d)", int(r))
}

// ioc builds a request number the way the kernel's _IOC macro does.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | size<<iocSizeShift | typ<<iocTypeShift | nr<<iocNRShift
}

// code returns the numeric request for the given layout. The size component
// comes from the structure codec, so the two cannot drift apart.
func (r Request) code(l layout) (uintptr, error) {
	entry, ok := requestTable[r]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRequest, int(r))
	}
	return ioc(entry.dir, 'V', entry.nr, uintptr(entry.proto().size(l))), nil
}
