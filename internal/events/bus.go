// Package events is the in-process bus between the capture service and
// its observers (SSE clients, metrics).
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers e to every subscriber of T. A nil bus drops the event,
// so components can run without one.
func Publish[T Event](b *Bus, e T) {
	if b == nil {
		return
	}
	event.Publish(b.dispatcher, e)
}

// Subscribe registers fn for events of type T and returns the
// unsubscribe function. Handlers run on the dispatcher goroutine.
//
//	unsub := events.Subscribe(bus, func(e events.FrameReadyEvent) { ... })
func Subscribe[T Event](b *Bus, fn func(T)) func() {
	return event.Subscribe(b.dispatcher, fn)
}
