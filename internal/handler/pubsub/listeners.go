package pubsub

import (
	"cmp"
	"context"
	"errors"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/service/dto"
)

// [ON_INPUT_COMMAND]
// Validates a key press and converts it to a domain event.
func (h *MessageHandler) OnInputCommandV1(ctx context.Context, raw *dto.InputCommandV1) (event.Eventer, error) {
	trace := cmp.Or(raw.TraceID, traceID(ctx))

	if err := raw.Validate(); err != nil {
		if errors.Is(err, dto.ErrEmptyKey) {
			h.logger.Debug("INPUT_IGNORED: empty key", "trace_id", trace)
		} else {
			h.logger.Warn("INPUT_REJECTED", "err", err, "trace_id", trace)
		}
		return nil, nil // ACK: retrying cannot fix the payload.
	}

	ev := raw.ToDomain()
	h.logger.Debug("INPUT_ACCEPTED",
		"key", ev.GetKey(),
		"event_id", ev.GetID(),
		"trace_id", trace,
	)
	return ev, nil
}
