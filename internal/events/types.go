package events

import "trading-core/internal/ports"

// Event names a bus topic. It aliases string so *Bus satisfies the
// core's ObserverBus port directly.
type Event = string

const (
	EventSignalEmitted    Event = ports.EventSignalEmitted
	EventSignalMAEUpdated Event = ports.EventSignalMAEUpdated
	EventSignalClosed     Event = ports.EventSignalClosed
	EventCoreFatal        Event = ports.EventCoreFatal
)
