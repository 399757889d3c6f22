package registry

import (
	"sync"
	"time"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/model"
)

// PendingQueue is a strict FIFO of events awaiting deferred dispatch.
// Its lock is independent of the listener registry.
type PendingQueue struct {
	mu     sync.Mutex
	events []event.Eventer
}

func newPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Enqueue appends ev to the tail. A nil event is refused.
func (q *PendingQueue) Enqueue(ev event.Eventer) bool {
	if ev == nil {
		return false
	}

	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	return true
}

// DequeueFront removes and returns the head, or (nil, false) when empty.
func (q *PendingQueue) DequeueFront() (event.Eventer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil, false
	}

	ev := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.events = nil
	}
	return ev, true
}

func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drain dequeues and dispatches events until the queue is empty or budget has
// elapsed. The clock is checked before each dequeue, so the pass overruns its
// budget by at most one dispatch. A zero budget processes nothing.
//
// The lock is held per dequeue only: dispatch may queue more events, and those
// are eligible for the same pass.
func (q *PendingQueue) Drain(budget time.Duration, dispatch func(event.Eventer)) model.DrainStats {
	stats := model.DrainStats{Budget: budget}
	start := time.Now()

	for time.Since(start) < budget {
		ev, ok := q.DequeueFront()
		if !ok {
			break
		}
		dispatch(ev)
		stats.Processed++
	}

	stats.Elapsed = time.Since(start)
	if stats.Elapsed > budget {
		stats.Overrun = stats.Elapsed - budget
	}
	stats.Remaining = q.Len()
	return stats
}

// Flush drops every pending event and reports how many were discarded.
func (q *PendingQueue) Flush() int {
	q.mu.Lock()
	n := len(q.events)
	q.events = nil
	q.mu.Unlock()
	return n
}
