package events

// SubscribeToChannel forwards events of type T into ch for select-based
// consumers such as SSE handlers. Events are dropped while ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return Subscribe(bus, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
