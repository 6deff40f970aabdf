package nibe

import "sync"

// EventName identifies one of the notifications a Connection publishes,
// grounded on heatpump.py's HeatPump.notify_event_listeners and
// mixins.py's ConnectionStatusMixin event names.
type EventName string

const (
	// EventCoilUpdate fires once per successfully decoded register value,
	// whether it arrived from a read reply or an unsolicited frame.
	EventCoilUpdate EventName = "coil_update"
	// EventStatusUpdate fires whenever the connection's ConnectionState
	// changes.
	EventStatusUpdate EventName = "connection_status"
	// EventProductInfoUpdate fires once a PRODUCT_INFO_MSG has been parsed.
	EventProductInfoUpdate EventName = "product_info"
	// EventRoomUnitUpdate fires once a decoded RMU_DATA_MSG (room-unit
	// telemetry: outdoor/room temperatures, setpoints, sensor flags) is
	// available.
	EventRoomUnitUpdate EventName = "room_unit_update"
)

// CoilUpdate is the payload of an EventCoilUpdate notification.
type CoilUpdate struct {
	Register *Register
	Value    Value
}

// Listener receives an event payload. A Listener is called synchronously
// from whichever goroutine published the event; it must not block.
type Listener func(payload interface{})

// EventBus is a simple named-event subscription bus. A panic or anything
// else inside one Listener never prevents the remaining listeners (for
// this event, or any other) from running — each is isolated, mirroring
// heatpump.py's notify_event_listeners swallowing individual subscriber
// errors so one broken integration cannot break the rest.
type EventBus struct {
	mtx       sync.RWMutex
	listeners map[EventName][]Listener
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[EventName][]Listener)}
}

// Subscribe registers fn to be called whenever name is published. The
// returned function removes the subscription.
func (b *EventBus) Subscribe(name EventName, fn Listener) (unsubscribe func()) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.listeners[name] = append(b.listeners[name], fn)
	idx := len(b.listeners[name]) - 1

	return func() {
		b.mtx.Lock()
		defer b.mtx.Unlock()
		l := b.listeners[name]
		if idx < len(l) {
			l[idx] = nil
		}
	}
}

// Publish calls every live listener subscribed to name with payload. A
// listener that panics is recovered and otherwise ignored: publishing
// continues to the remaining listeners.
func (b *EventBus) Publish(name EventName, payload interface{}) {
	b.mtx.RLock()
	listeners := append([]Listener(nil), b.listeners[name]...)
	b.mtx.RUnlock()

	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		callListener(fn, payload)
	}
}

func callListener(fn Listener, payload interface{}) {
	defer func() { recover() }()
	fn(payload)
}
