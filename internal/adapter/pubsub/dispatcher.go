package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/handler/marshaller"
)

// Metadata keys stamped on every event message.
const (
	MetadataEventType = "event_type"
	MetadataEventID   = "event_id"
	MetadataEventName = "event_name"
	MetadataCreatedAt = "created_at"
)

var ErrNilEvent = errors.New("event dispatcher: nil event")

// EventDispatcher writes broker events onto watermill topics.
type EventDispatcher interface {
	Publish(ctx context.Context, topic string, ev event.Eventer) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
}

func NewEventDispatcher(pub message.Publisher) EventDispatcher {
	return &eventDispatcher{publisher: pub}
}

func (d *eventDispatcher) Publish(ctx context.Context, topic string, ev event.Eventer) error {
	msg, err := newEventMessage(ctx, ev)
	if err != nil {
		return err
	}

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: publish %s to %s: %w", ev.GetTypeID(), topic, err)
	}
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher { return d.publisher }

// newEventMessage encodes ev and copies its identity into the metadata so
// consumers can route without decoding the payload.
func newEventMessage(ctx context.Context, ev event.Eventer) (*message.Message, error) {
	if ev == nil {
		return nil, ErrNilEvent
	}

	payload, err := marshaller.EncodeEvent(ev)
	if err != nil {
		return nil, fmt.Errorf("event dispatcher: encode %s: %w", ev.GetTypeID(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata = message.Metadata{
		MetadataEventType: ev.GetTypeID().String(),
		MetadataEventID:   ev.GetID(),
		MetadataEventName: ev.GetName(),
		MetadataCreatedAt: ev.GetCreatedAt().Format(time.RFC3339Nano),
	}
	return msg, nil
}
