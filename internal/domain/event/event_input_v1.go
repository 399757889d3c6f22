package event

import (
	"github.com/webitel/event-broker/internal/domain/model"
)

// InputCommandType is the 32-bit GUID of key press notifications.
var InputCommandType = MustRegisterType(0xf894bb78, "Input Command")

var _ Eventer = (*InputCommandEvent)(nil)

// InputCommandEvent reports a key pressed in the window layer.
type InputCommandEvent struct {
	Base
	key string
}

func NewInputCommandEvent(key string) *InputCommandEvent {
	return &InputCommandEvent{
		Base: NewBase(InputCommandType),
		key:  key,
	}
}

func (e *InputCommandEvent) GetKey() string { return e.key }

func (e *InputCommandEvent) GetPayload() any {
	return &model.InputCommandPayload{Key: e.key}
}
