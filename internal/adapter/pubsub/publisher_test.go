package pubsub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/handler/marshaller"
)

func TestEventTap_PublishesEncodedEvent(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := ch.Subscribe(ctx, TopicBrokerEvents)
	require.NoError(t, err)

	tap := NewEventTap(NewEventDispatcher(ch), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ev := event.NewInputCommandEvent("A")
	tap.Tap(ev)

	select {
	case msg := <-msgs:
		msg.Ack()
		assert.Equal(t, "0xf894bb78", msg.Metadata.Get(MetadataEventType))
		assert.Equal(t, ev.GetID(), msg.Metadata.Get(MetadataEventID))
		assert.Equal(t, "Input Command", msg.Metadata.Get(MetadataEventName))
		assert.NotEmpty(t, msg.Metadata.Get(MetadataCreatedAt))

		view, err := marshaller.DecodeEvent(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, ev.GetID(), view.ID)
		assert.Equal(t, map[string]any{"key": "A"}, view.Payload)
	case <-ctx.Done():
		t.Fatal("tapped event not published")
	}
}

func TestEventDispatcher_RejectsNil(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	err := NewEventDispatcher(ch).Publish(context.Background(), TopicBrokerEvents, nil)
	assert.ErrorIs(t, err, ErrNilEvent)
}
