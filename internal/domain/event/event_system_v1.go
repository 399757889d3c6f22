package event

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*SystemEvent)(nil)

type SystemKind int16

const (
	FrameStarted        SystemKind = iota + 1 // [LOOP]
	ListenerQuarantined                       // [BROKER]
)

var (
	FrameStartedType        = MustRegisterType(0x3a91c2d4, "Frame Started")
	ListenerQuarantinedType = MustRegisterType(0x5be0f7a1, "Listener Quarantined")
)

func (k SystemKind) String() string {
	switch k {
	case FrameStarted:
		return "FrameStarted"
	case ListenerQuarantined:
		return "ListenerQuarantined"
	default:
		return "SystemKind(unknown)"
	}
}

// TypeID maps the kind to the event type id listeners register for.
func (k SystemKind) TypeID() EventTypeID {
	switch k {
	case FrameStarted:
		return FrameStartedType
	case ListenerQuarantined:
		return ListenerQuarantinedType
	default:
		return 0
	}
}

// SystemEvent is a generic envelope for signals produced by the broker and the frame loop.
type SystemEvent struct {
	Base
	kind    SystemKind
	payload any
}

// NewSystemEvent is a universal factory for creating any signal.
func NewSystemEvent(kind SystemKind, payload any) *SystemEvent {
	return &SystemEvent{
		Base:    NewBase(kind.TypeID()),
		kind:    kind,
		payload: payload,
	}
}

func (e *SystemEvent) GetKind() SystemKind { return e.kind }
func (e *SystemEvent) GetPayload() any     { return e.payload }
