// Package led drives a board status LED from the capture pipeline's state.
package led

// Mode is what an LED shows.
type Mode int

const (
	ModeOff Mode = iota
	ModeSolid
	ModeBlink
)

func (m Mode) String() string {
	switch m {
	case ModeSolid:
		return "solid"
	case ModeBlink:
		return "blink"
	default:
		return "off"
	}
}

// Controller switches named LEDs.
type Controller interface {
	Set(name string, mode Mode) error
	// Available lists the LED names this controller can drive.
	Available() []string
}
