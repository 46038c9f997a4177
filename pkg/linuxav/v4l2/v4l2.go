// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for memory-mapped frame capture.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm). Kernel structures are
// encoded explicitly for the target word size rather than overlaid on Go
// structs.
//
// # Single Frame Capture
//
// Open a device and grab a frame. Any setting left nil is filled from the
// device default before capture:
//
//	dev, err := v4l2.Open(v4l2.ConnectionSettings{
//	    BusID:       0,
//	    CaptureSize: &v4l2.Size{Width: 640, Height: 480},
//	    PixelFormat: v4l2.Ptr(v4l2.PixelFormatYUYV),
//	})
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//	frame, err := dev.Capture(ctx)
//
// # Format Queries
//
// Query supported formats, resolutions, and framerates:
//
//	formats, _ := dev.SupportedPixelFormats()
//	for _, f := range formats {
//	    resolutions, _ := dev.PixelFormatResolutions(f.PixelFormat)
//	}
//
// # Controls
//
// Read the range and current value of a control:
//
//	v, _ := dev.DeviceValue(v4l2.ControlBrightness)
//	fmt.Printf("brightness %d (%d..%d)\n", v.Current, v.Minimum, v.Maximum)
//
// # Streaming
//
// The lower-level lifecycle is available when a caller needs more than one
// frame per setup:
//
//	pool, _ := dev.AllocateBuffers(v4l2.DefaultBufferCount)
//	stream, _ := pool.StreamOn()
//	f, _ := stream.Dequeue(ctx)
//	data, _ := f.Bytes()
//	_ = f.Requeue()
//	pool, _ = stream.StreamOff()
//	_ = pool.Release()
package v4l2
