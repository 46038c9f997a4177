package events

// Event type identifiers for kelindar/event.
const (
	TypeCaptureSuccess uint32 = iota + 1
	TypeCaptureError
	TypeFrameReady
	TypeStreamStateChanged
	TypeControlsReloaded
	TypeCaptureStats
	TypeLogEntry
	TypeDevicePresence
)

// Event is implemented by everything published on the bus.
type Event interface {
	Type() uint32
}

// CaptureSuccessEvent is published after a single-frame capture.
type CaptureSuccessEvent struct {
	DevicePath  string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	PixelFormat string `json:"pixel_format" example:"YUYV" doc:"FourCC of the captured frame"`
	Width       uint32 `json:"width" example:"640" doc:"Frame width in pixels"`
	Height      uint32 `json:"height" example:"480" doc:"Frame height in pixels"`
	Bytes       int    `json:"bytes" example:"614400" doc:"Frame payload size"`
	Path        string `json:"path,omitempty" example:"/tmp/frame.raw" doc:"File the frame was written to"`
	DurationMs  int64  `json:"duration_ms" example:"212" doc:"Capture duration including negotiation"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for CaptureSuccessEvent.
func (e CaptureSuccessEvent) Type() uint32 { return TypeCaptureSuccess }

// CaptureErrorEvent is published when a capture fails at any stage.
type CaptureErrorEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Stage      string `json:"stage" example:"allocate" doc:"Pipeline stage that failed"`
	Error      string `json:"error" example:"VIDIOC_QUERYBUF: invalid argument" doc:"Detailed error description"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Error timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }

// FrameReadyEvent is published for each frame of a continuous capture.
type FrameReadyEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Sequence   uint32 `json:"sequence" example:"42" doc:"Driver frame sequence number"`
	BufferID   uint32 `json:"buffer" example:"2" doc:"Index of the buffer that held the frame"`
	Bytes      uint32 `json:"bytes" example:"614400" doc:"Bytes used in the buffer"`
	Corrupted  bool   `json:"corrupted" example:"false" doc:"Driver flagged the frame as damaged"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00.033Z" doc:"Driver timestamp"`
}

// Type returns the event type identifier for FrameReadyEvent.
func (e FrameReadyEvent) Type() uint32 { return TypeFrameReady }

// StreamStateChangedEvent reports a streaming state machine transition.
type StreamStateChangedEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	From       string `json:"from" example:"queued" doc:"Previous state"`
	To         string `json:"to" example:"streaming" doc:"New state"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for StreamStateChangedEvent.
func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// ControlsReloadedEvent is published when changed device settings were
// pushed to a running stream.
type ControlsReloadedEvent struct {
	DevicePath string           `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	Controls   map[string]int32 `json:"controls" doc:"Control names and the values applied"`
	Timestamp  string           `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ControlsReloadedEvent.
func (e ControlsReloadedEvent) Type() uint32 { return TypeControlsReloaded }

// CaptureStatsEvent is a periodic per-device metrics snapshot.
type CaptureStatsEvent struct {
	DevicePath    string  `json:"device_path" example:"/dev/video0" doc:"Path to the video device"`
	FPS           float64 `json:"fps" example:"29.97" doc:"Frames per second over the last interval"`
	Frames        uint64  `json:"frames" example:"1800" doc:"Frames captured since start"`
	Errors        uint64  `json:"errors" example:"0" doc:"Capture failures since start"`
	BuffersMapped int     `json:"buffers_mapped" example:"4" doc:"Mapped driver buffers"`
	State         string  `json:"state" example:"streaming" doc:"Streaming state"`
}

// Type returns the event type identifier for CaptureStatsEvent.
func (e CaptureStatsEvent) Type() uint32 { return TypeCaptureStats }

// LogEntryEvent carries one log line to SSE clients.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// DevicePresenceEvent reports the capture device node appearing or
// disappearing.
type DevicePresenceEvent struct {
	DevicePath string `json:"device_path" example:"/dev/video0"`
	Present    bool   `json:"present" doc:"Whether the node exists after the event"`
	Timestamp  string `json:"timestamp" example:"2025-01-09T10:30:00Z"`
}

// Type returns the event type identifier for DevicePresenceEvent.
func (e DevicePresenceEvent) Type() uint32 { return TypeDevicePresence }
