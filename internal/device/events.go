package device

import "sync"

// State is where a device controller sits in its lifecycle.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered   State = "registered"
	StateRinging      State = "ringing"
	StateActive       State = "active"
)

// CallStatus tracks the one call a controller handles at a time.
type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAnswered CallStatus = "answered"
)

// EventKey identifies a controller event delivered to UI subscribers.
type EventKey string

const (
	// EventRegistered fires when the vendor confirms line registration.
	EventRegistered EventKey = "registered"
	// EventUnregistered fires when registration is lost or torn down.
	// Payload: the error that killed the registration, or nil.
	EventUnregistered EventKey = "unregistered"
	// EventIncomingCall fires on Registered→Ringing. Payload: Call.
	EventIncomingCall EventKey = "incoming_call"
	// EventCallActive fires on Ringing→Active. Payload: Call.
	EventCallActive EventKey = "call_active"
	// EventCallEnded fires on Active→Registered. Payload: Call.
	EventCallEnded EventKey = "call_ended"
	// EventCallDismissed fires when a ringing call goes away without this
	// device answering it. Payload: Dismissal.
	EventCallDismissed EventKey = "call_dismissed"
	// EventNotice carries a non-blocking, user-visible message such as a
	// vendor error or a failed tracker write. Payload: string.
	EventNotice EventKey = "notice"
)

// EventHandler is a callback function for controller events.
type EventHandler func(data interface{})

// EventEmitter is a minimal pub/sub used to push controller transitions to
// whatever frontend is attached (terminal console, desktop shell).
type EventEmitter struct {
	mu       sync.RWMutex
	handlers map[EventKey][]EventHandler
}

// NewEventEmitter creates an empty EventEmitter.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		handlers: make(map[EventKey][]EventHandler),
	}
}

// On registers a handler for one event key.
func (e *EventEmitter) On(event EventKey, handler EventHandler) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[event] = append(e.handlers[event], handler)
}

// Off removes all handlers for one event key.
func (e *EventEmitter) Off(event EventKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, event)
}

// Emit fires an event, calling every registered handler. Handlers run on
// the emitting goroutine, outside the emitter's lock.
func (e *EventEmitter) Emit(event EventKey, data interface{}) {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers[event]))
	copy(handlers, e.handlers[event])
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(data)
	}
}
