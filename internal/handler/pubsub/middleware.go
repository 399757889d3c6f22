package pubsub

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

const MetadataTraceID = "trace_id"

type traceIDKey struct{}

// traceID returns the id TraceIDMiddleware put on ctx, or "".
func traceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// [TRACE_ID_MIDDLEWARE]
// Producers may omit trace_id; the ingress mints one so every log line of a
// command can be correlated.
func TraceIDMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		id := msg.Metadata.Get(MetadataTraceID)
		if id == "" {
			id = uuid.NewString()
			msg.Metadata.Set(MetadataTraceID, id)
		}
		msg.SetContext(context.WithValue(msg.Context(), traceIDKey{}, id))
		return h(msg)
	}
}

// [LOGGING_MIDDLEWARE]
// One line per handler attempt; failures are raised to warn so retries are visible.
func LoggingMiddleware(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			out, err := h(msg)

			attrs := []any{
				"handler", message.HandlerNameFromCtx(msg.Context()),
				"msg_id", msg.UUID,
				"trace_id", msg.Metadata.Get(MetadataTraceID),
				"took", time.Since(start),
			}
			if err != nil {
				logger.Warn("MESSAGE_FAILED", append(attrs, "err", err)...)
			} else {
				logger.Debug("MESSAGE_HANDLED", attrs...)
			}
			return out, err
		}
	}
}

// [RETRY_MIDDLEWARE]
// Handlers are in-process, so the backoff stays in the millisecond range.
func NewRetryMiddleware(maxRetries int, logger watermill.LoggerAdapter) middleware.Retry {
	return middleware.Retry{
		MaxRetries:      maxRetries,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
		Multiplier:      2,
		Logger:          logger,
	}
}
