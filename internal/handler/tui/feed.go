package tui

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/event-broker/internal/adapter/pubsub"
	"github.com/webitel/event-broker/internal/handler/marshaller"
)

// Feed keeps the most recent events seen on the tap topic, newest last.
type Feed struct {
	logger *slog.Logger
	limit  int

	mu     sync.Mutex
	events []marshaller.EventView
	seen   uint64
}

func NewFeed(limit int, logger *slog.Logger) *Feed {
	return &Feed{
		logger: logger,
		limit:  max(limit, 1),
	}
}

// Follow consumes the tap topic until ctx ends or the subscriber closes.
func (f *Feed) Follow(ctx context.Context, sub message.Subscriber) error {
	msgs, err := sub.Subscribe(ctx, pubsub.TopicBrokerEvents)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			view, err := marshaller.DecodeEvent(msg.Payload)
			msg.Ack()
			if err != nil {
				f.logger.Warn("FEED_DECODE_FAILED", "err", err, "msg_id", msg.UUID)
				continue
			}
			f.Push(view)
		}
	}()
	return nil
}

func (f *Feed) Push(view marshaller.EventView) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen++
	f.events = append(f.events, view)
	if over := len(f.events) - f.limit; over > 0 {
		f.events = slices.Delete(f.events, 0, over)
	}
}

// Recent returns a copy of the buffered events and the total ever pushed.
func (f *Feed) Recent() ([]marshaller.EventView, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.events), f.seen
}
