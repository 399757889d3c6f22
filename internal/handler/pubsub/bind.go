package pubsub

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/event-broker/internal/domain/event"
)

// DomainHandler turns a decoded ingress payload into an event for the broker.
// A nil event with a nil error acknowledges the message without queueing.
type DomainHandler[T any] func(ctx context.Context, payload *T) (event.Eventer, error)

// Bind adapts fn to watermill. Outcomes:
//   - undecodable payload or handler panic: logged and acknowledged
//   - handler error: returned, so retry and then the poison topic apply
//   - event: queued on the broker for the next frame
func Bind[T any](h *MessageHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID,
					"trace_id", traceID(msg.Context()),
				)
			}
		}()

		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil
		}

		ev, err := fn(msg.Context(), &payload)
		switch {
		case err != nil:
			return err
		case ev == nil:
			return nil
		case !h.broker.QueueEvent(ev):
			h.logger.Warn("QUEUE_REJECTED", "msg_id", msg.UUID, "type", ev.GetTypeID().String())
		}
		return nil
	}
}
