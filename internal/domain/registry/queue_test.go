package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/domain/event"
)

func TestPendingQueue_FIFO(t *testing.T) {
	q := newPendingQueue()

	assert.False(t, q.Enqueue(nil))
	for i := range 3 {
		require.True(t, q.Enqueue(newSeqEvent(typeAlpha, i)))
	}
	assert.Equal(t, 3, q.Len())

	for want := range 3 {
		ev, ok := q.DequeueFront()
		require.True(t, ok)
		assert.Equal(t, want, ev.GetPayload())
	}

	ev, ok := q.DequeueFront()
	assert.False(t, ok)
	assert.Nil(t, ev)
}

func TestPendingQueue_DrainStopsWhenEmpty(t *testing.T) {
	q := newPendingQueue()
	for i := range 4 {
		q.Enqueue(newSeqEvent(typeAlpha, i))
	}

	var got []int
	stats := q.Drain(time.Second, func(ev event.Eventer) {
		got = append(got, ev.GetPayload().(int))
	})

	assert.Equal(t, []int{0, 1, 2, 3}, got)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 0, stats.Remaining)
	assert.Equal(t, time.Second, stats.Budget)
}

func TestPendingQueue_DrainOverrunsByOneDispatchAtMost(t *testing.T) {
	q := newPendingQueue()
	for i := range 10 {
		q.Enqueue(newSeqEvent(typeAlpha, i))
	}

	stats := q.Drain(5*time.Millisecond, func(event.Eventer) { spin(4 * time.Millisecond) })

	assert.GreaterOrEqual(t, stats.Processed, 1)
	assert.LessOrEqual(t, stats.Processed, 2)
	assert.Equal(t, 10-stats.Processed, stats.Remaining)
	assert.Greater(t, stats.Overrun, time.Duration(0))
}

func TestPendingQueue_Flush(t *testing.T) {
	q := newPendingQueue()
	q.Enqueue(newSeqEvent(typeAlpha, 0))
	q.Enqueue(newSeqEvent(typeAlpha, 1))

	assert.Equal(t, 2, q.Flush())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Flush())
}
