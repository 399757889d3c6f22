package tui

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/adapter/pubsub"
	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/handler/marshaller"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFeed_KeepsNewestWithinLimit(t *testing.T) {
	f := NewFeed(3, discard())
	for i := range 5 {
		f.Push(marshaller.EventView{ID: strconv.Itoa(i)})
	}

	recent, seen := f.Recent()
	assert.EqualValues(t, 5, seen)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})

	recent[0].ID = "mutated"
	again, _ := f.Recent()
	assert.Equal(t, "2", again[0].ID)
}

func TestFeed_FollowsTapTopic(t *testing.T) {
	ch := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := NewFeed(8, discard())
	require.NoError(t, f.Follow(ctx, ch))

	tap := pubsub.NewEventTap(pubsub.NewEventDispatcher(ch), discard())
	ev := event.NewInputCommandEvent("W")
	tap.Tap(ev)

	require.Eventually(t, func() bool {
		_, seen := f.Recent()
		return seen == 1
	}, 2*time.Second, 5*time.Millisecond)

	recent, _ := f.Recent()
	assert.Equal(t, ev.GetID(), recent[0].ID)
	assert.Equal(t, "Input Command", recent[0].Name)
}
