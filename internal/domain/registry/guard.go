package registry

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sony/gobreaker"
	"github.com/webitel/event-broker/internal/domain/event"
)

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomePanicked
	outcomeQuarantined
	outcomeSkipped
)

// quarantineFunc is told when a listener's breaker opens.
type quarantineFunc func(typeID event.EventTypeID, listenerID ListenerID, failures uint32)

// guard isolates one registration's callback from the rest of the dispatch pass.
// A nil breaker means panics are recovered but never quarantine the listener.
type guard struct {
	breaker *gobreaker.CircuitBreaker
}

func newGuard(typeID event.EventTypeID, listenerID ListenerID, maxFailures uint32, cooldown time.Duration, onOpen quarantineFunc) *guard {
	if maxFailures == 0 {
		maxFailures = 1
	}

	return &guard{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        fmt.Sprintf("%s/%d", typeID, listenerID),
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
			// Half-open re-trips extend an existing quarantine and are not reported again.
			OnStateChange: func(_ string, from, to gobreaker.State) {
				if from == gobreaker.StateClosed && to == gobreaker.StateOpen && onOpen != nil {
					onOpen(typeID, listenerID, maxFailures)
				}
			},
		}),
	}
}

func (g *guard) invoke(cb Callback, ev event.Eventer) (outcome, error) {
	if cb == nil {
		return outcomeSkipped, ErrNilCallback
	}

	if g == nil || g.breaker == nil {
		if err := safeCall(cb, ev); err != nil {
			return outcomePanicked, err
		}
		return outcomeDelivered, nil
	}

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, safeCall(cb, ev)
	})

	switch {
	case err == nil:
		return outcomeDelivered, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return outcomeQuarantined, err
	default:
		return outcomePanicked, err
	}
}

// safeCall converts a listener panic into an error so the breaker can count it.
func safeCall(cb Callback, ev event.Eventer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ListenerPanic{Value: r, Stack: debug.Stack()}
		}
	}()

	cb(ev)
	return nil
}
