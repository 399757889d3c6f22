package registry

import (
	"maps"
	"slices"
	"sync"

	"github.com/webitel/event-broker/internal/domain/event"
)

// EventListener is a subscription handle owning one ListenerID.
// It remembers every type it registered for and releases them all on Close.
//
// Use it by pointer only; the embedded mutex makes go vet flag copies.
type EventListener struct {
	mu     sync.Mutex
	broker Broker
	id     ListenerID
	types  map[event.EventTypeID]struct{}
	closed bool
}

// NewEventListener asks the broker for a fresh identity.
func NewEventListener(b Broker) *EventListener {
	return &EventListener{
		broker: b,
		id:     b.RegisterListener(),
		types:  make(map[event.EventTypeID]struct{}),
	}
}

func (l *EventListener) ID() ListenerID { return l.id }

// RegisterForEvent subscribes cb to typeID. The type is remembered only if the
// broker accepted the registration.
func (l *EventListener) RegisterForEvent(typeID event.EventTypeID, cb Callback) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	if !l.broker.AddListener(typeID, l.id, cb) {
		return false
	}
	l.types[typeID] = struct{}{}
	return true
}

// UnregisterForEvent drops the subscription for typeID. The type is forgotten
// only if the broker confirmed the removal.
func (l *EventListener) UnregisterForEvent(typeID event.EventTypeID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.broker.RemoveListener(typeID, l.id) {
		return false
	}
	delete(l.types, typeID)
	return true
}

// Types lists the remembered subscriptions.
func (l *EventListener) Types() []event.EventTypeID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Sorted(maps.Keys(l.types))
}

// Close removes every remembered registration, ignoring individual results.
// Calling it again is a no-op.
func (l *EventListener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true

	for typeID := range l.types {
		l.broker.RemoveListener(typeID, l.id)
	}
	clear(l.types)
}
