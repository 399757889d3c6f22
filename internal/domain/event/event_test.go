package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/domain/model"
)

func TestEventTypeID_String(t *testing.T) {
	assert.Equal(t, "0xf894bb78", InputCommandType.String())
	assert.Equal(t, "0x0000002a", EventTypeID(42).String())
}

func TestRegisterType_RejectsReuse(t *testing.T) {
	const id EventTypeID = 0x0badf00d

	require.NoError(t, RegisterType(id, "Test Reuse"))
	require.NoError(t, RegisterType(id, "Test Reuse"), "same pair is idempotent")

	err := RegisterType(id, "Something Else")
	require.ErrorIs(t, err, ErrTypeReused)

	name, ok := TypeName(id)
	require.True(t, ok)
	assert.Equal(t, "Test Reuse", name, "original name survives a rejected reuse")
}

func TestMustRegisterType_Panics(t *testing.T) {
	assert.Panics(t, func() { MustRegisterType(InputCommandType, "Not Input") })
}

func TestTypes_Sorted(t *testing.T) {
	ids := Types()
	require.NotEmpty(t, ids)
	assert.IsNonDecreasing(t, ids)
	assert.Contains(t, ids, InputCommandType)
	assert.Contains(t, ids, FrameStartedType)
	assert.Contains(t, ids, ListenerQuarantinedType)
}

func TestInputCommandEvent(t *testing.T) {
	before := time.Now()
	ev := NewInputCommandEvent("W")

	assert.Equal(t, InputCommandType, ev.GetTypeID())
	assert.Equal(t, "Input Command", ev.GetName())
	assert.Equal(t, "W", ev.GetKey())
	assert.NotEmpty(t, ev.GetID())
	assert.False(t, ev.GetCreatedAt().Before(before))
	assert.Equal(t, &model.InputCommandPayload{Key: "W"}, ev.GetPayload())

	other := NewInputCommandEvent("W")
	assert.NotEqual(t, ev.GetID(), other.GetID(), "every instance gets its own id")
}

func TestSystemEvent(t *testing.T) {
	payload := &model.FramePayload{Frame: 7, Budget: 16 * time.Millisecond}
	ev := NewSystemEvent(FrameStarted, payload)

	assert.Equal(t, FrameStartedType, ev.GetTypeID())
	assert.Equal(t, "Frame Started", ev.GetName())
	assert.Equal(t, FrameStarted, ev.GetKind())
	assert.Same(t, payload, ev.GetPayload())
	assert.Equal(t, "FrameStarted", ev.GetKind().String())

	q := NewSystemEvent(ListenerQuarantined, nil)
	assert.Equal(t, ListenerQuarantinedType, q.GetTypeID())
	assert.Equal(t, "Listener Quarantined", q.GetName())
}
