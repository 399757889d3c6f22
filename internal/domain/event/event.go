package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventTypeID distinguishes one event class from another.
// Values are process-wide constants registered through MustRegisterType.
type EventTypeID uint32

func (id EventTypeID) String() string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// Eventer defines the contract for all payloads flowing through the broker.
//
// Implementations are immutable after construction: a single instance is shared
// by every listener invoked for it and by the pending queue while it waits.
type Eventer interface {
	GetID() string
	GetTypeID() EventTypeID
	GetName() string
	GetCreatedAt() time.Time
	GetPayload() any
}

// Base carries the fields common to every concrete event.
// Concrete variants embed it and add their own read-only payload.
type Base struct {
	id        string
	typeID    EventTypeID
	name      string
	createdAt time.Time // [MONOTONIC] time.Now keeps the monotonic clock reading
}

// NewBase stamps a fresh instance id and creation time for the given type.
func NewBase(typeID EventTypeID) Base {
	name, _ := TypeName(typeID)
	return Base{
		id:        uuid.NewString(),
		typeID:    typeID,
		name:      name,
		createdAt: time.Now(),
	}
}

func (b Base) GetID() string           { return b.id }
func (b Base) GetTypeID() EventTypeID  { return b.typeID }
func (b Base) GetName() string         { return b.name }
func (b Base) GetCreatedAt() time.Time { return b.createdAt }
