package marshaller

import (
	"encoding/json"
	"time"

	"github.com/webitel/event-broker/internal/domain/event"
)

// EventView is the wire shape of a broker event on the tap topic, the HTTP
// diagnostics and the dashboard.
type EventView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Payload   any       `json:"payload,omitempty"`
}

// MarshallEvent flattens a domain Eventer into its view.
func MarshallEvent(ev event.Eventer) EventView {
	view := EventView{
		ID:        ev.GetID(),
		Type:      ev.GetTypeID().String(),
		Name:      ev.GetName(),
		CreatedAt: ev.GetCreatedAt(),
		Payload:   ev.GetPayload(),
	}

	// System envelopes carry their kind next to the payload.
	if se, ok := ev.(*event.SystemEvent); ok {
		view.Payload = systemPayload{Kind: se.GetKind().String(), Data: se.GetPayload()}
	}
	return view
}

// EncodeEvent is MarshallEvent followed by JSON encoding.
func EncodeEvent(ev event.Eventer) ([]byte, error) {
	return json.Marshal(MarshallEvent(ev))
}

// DecodeEvent parses the bytes produced by EncodeEvent. Payloads come back as
// generic JSON values.
func DecodeEvent(data []byte) (EventView, error) {
	var view EventView
	err := json.Unmarshal(data, &view)
	return view, err
}

type systemPayload struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}
