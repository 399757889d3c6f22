package pubsub

import (
	"context"
	"log/slog"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/registry"
	"go.uber.org/fx"
)

// TopicBrokerEvents carries a JSON copy of every event the broker dispatched.
const TopicBrokerEvents = "broker.events.v1"

// [GUARD] Ensure compliance with the registry.Tapper interface.
var _ registry.Tapper = (*EventTap)(nil)

// EventTap mirrors dispatched events onto TopicBrokerEvents.
// Publishing failures are logged and never reach the dispatching goroutine.
type EventTap struct {
	dispatcher EventDispatcher
	topic      string
	logger     *slog.Logger
}

func NewEventTap(dispatcher EventDispatcher, logger *slog.Logger) *EventTap {
	return &EventTap{
		dispatcher: dispatcher,
		topic:      TopicBrokerEvents,
		logger:     logger,
	}
}

func (t *EventTap) Tap(ev event.Eventer) {
	if err := t.dispatcher.Publish(context.Background(), t.topic, ev); err != nil {
		t.logger.Warn("TAP_PUBLISH_FAILED",
			"err", err,
			"type", ev.GetTypeID().String(),
			"event_id", ev.GetID(),
		)
	}
}

var Module = fx.Module("pubsub-adapter",
	fx.Provide(
		NewEventDispatcher,
		fx.Annotate(
			NewEventTap,
			fx.As(new(registry.Tapper)),
		),
	),
)
