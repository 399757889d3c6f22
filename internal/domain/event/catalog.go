package event

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrTypeReused is returned when an id is registered twice under different names.
var ErrTypeReused = errors.New("event type id already registered")

// catalog maps every known type id to its diagnostic name.
var catalog = struct {
	sync.RWMutex
	names map[EventTypeID]string
}{names: make(map[EventTypeID]string)}

// RegisterType records the name of an event class.
// Registering the same (id, name) pair again is a no-op.
func RegisterType(id EventTypeID, name string) error {
	catalog.Lock()
	defer catalog.Unlock()

	if prev, ok := catalog.names[id]; ok {
		if prev == name {
			return nil
		}
		return fmt.Errorf("%w: %s is %q, not %q", ErrTypeReused, id, prev, name)
	}
	catalog.names[id] = name
	return nil
}

// MustRegisterType is RegisterType for package-level type declarations.
func MustRegisterType(id EventTypeID, name string) EventTypeID {
	if err := RegisterType(id, name); err != nil {
		panic(err)
	}
	return id
}

// TypeName resolves the registered name of a type id.
func TypeName(id EventTypeID) (string, bool) {
	catalog.RLock()
	defer catalog.RUnlock()
	name, ok := catalog.names[id]
	return name, ok
}

// Types lists every registered type id in ascending order.
func Types() []EventTypeID {
	catalog.RLock()
	ids := make([]EventTypeID, 0, len(catalog.names))
	for id := range catalog.names {
		ids = append(ids, id)
	}
	catalog.RUnlock()

	slices.Sort(ids)
	return ids
}
