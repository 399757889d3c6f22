package registry

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/webitel/event-broker/internal/domain/event"
)

// ListenerID identifies one subscription slot. Issued by the broker, never reused.
type ListenerID int64

// Callback receives a shared, read-only event.
type Callback func(ev event.Eventer)

type registration struct {
	listenerID ListenerID
	callback   Callback
	guard      *guard
}

// ListenerRegistry maps event types to the callbacks registered for them.
// It is lockable independently of the pending queue.
type ListenerRegistry struct {
	// [ID_ALLOCATION] lock-free, monotonically increasing
	nextID atomic.Int64

	// [COPY_ON_WRITE]
	// Slices stored in listeners are never mutated in place. Dispatch reads a slice
	// under the read lock and iterates it after releasing the lock, so callbacks may
	// add or remove listeners without deadlocking.
	mu        sync.RWMutex
	listeners map[event.EventTypeID][]registration

	logger  *slog.Logger
	metrics *Metrics

	// silence remembers types already reported as unheard within the window.
	silence *expirable.LRU[event.EventTypeID, struct{}]

	guardFor func(event.EventTypeID, ListenerID) *guard

	triggered   atomic.Uint64
	unheard     atomic.Uint64
	delivered   atomic.Uint64
	panicked    atomic.Uint64
	quarantined atomic.Uint64
}

func newListenerRegistry(cfg *config, onOpen quarantineFunc) *ListenerRegistry {
	r := &ListenerRegistry{
		listeners: make(map[event.EventTypeID][]registration),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		guardFor:  func(event.EventTypeID, ListenerID) *guard { return nil },
	}

	if cfg.silenceSize > 0 && cfg.silenceWindow > 0 {
		r.silence = expirable.NewLRU[event.EventTypeID, struct{}](cfg.silenceSize, nil, cfg.silenceWindow)
	}

	if cfg.breakerEnabled {
		r.guardFor = func(typeID event.EventTypeID, id ListenerID) *guard {
			return newGuard(typeID, id, cfg.breakerMaxFailures, cfg.breakerCooldown, onOpen)
		}
	}

	return r
}

// IssueListenerID allocates a fresh identity. Safe for concurrent use; never fails.
func (r *ListenerRegistry) IssueListenerID() ListenerID {
	return ListenerID(r.nextID.Add(1))
}

// Add registers cb for (typeID, listenerID). It rejects a nil callback and a
// second registration of the same listener for the same type.
func (r *ListenerRegistry) Add(typeID event.EventTypeID, listenerID ListenerID, cb Callback) bool {
	if cb == nil {
		r.logger.Error("LISTENER_REJECTED: uncallable delegate",
			"type", typeID.String(),
			"listener_id", listenerID,
		)
		r.metrics.Registrations.WithLabelValues("rejected").Inc()
		return false
	}

	r.mu.Lock()
	regs := r.listeners[typeID]
	if slices.ContainsFunc(regs, byListener(listenerID)) {
		r.mu.Unlock()
		r.logger.Warn("LISTENER_REJECTED: duplicate",
			"type", typeID.String(),
			"listener_id", listenerID,
		)
		r.metrics.Registrations.WithLabelValues("duplicate").Inc()
		return false
	}

	// Clip forces append to allocate, leaving any slice held by a running dispatch untouched.
	regs = append(slices.Clip(regs), registration{
		listenerID: listenerID,
		callback:   cb,
		guard:      r.guardFor(typeID, listenerID),
	})
	r.listeners[typeID] = regs
	r.mu.Unlock()

	r.logger.Info("LISTENER_ADDED",
		"type", typeID.String(),
		"listener_id", listenerID,
		"listeners", len(regs),
	)
	r.metrics.Registrations.WithLabelValues("added").Inc()
	r.metrics.Listeners.WithLabelValues(typeID.String()).Set(float64(len(regs)))
	return true
}

// Remove erases the registration for (typeID, listenerID). When the last
// registration of a type goes, the type key goes with it.
func (r *ListenerRegistry) Remove(typeID event.EventTypeID, listenerID ListenerID) bool {
	r.mu.Lock()
	regs, ok := r.listeners[typeID]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("LISTENER_REMOVE_FAILED: unknown type",
			"type", typeID.String(),
			"listener_id", listenerID,
		)
		r.metrics.Removals.WithLabelValues("unknown_type").Inc()
		return false
	}

	i := slices.IndexFunc(regs, byListener(listenerID))
	if i < 0 {
		r.mu.Unlock()
		r.logger.Warn("LISTENER_REMOVE_FAILED: unknown listener",
			"type", typeID.String(),
			"listener_id", listenerID,
		)
		r.metrics.Removals.WithLabelValues("unknown_listener").Inc()
		return false
	}

	remaining := len(regs) - 1
	if remaining == 0 {
		delete(r.listeners, typeID)
	} else {
		r.listeners[typeID] = slices.Delete(slices.Clone(regs), i, i+1)
	}
	r.mu.Unlock()

	r.logger.Info("LISTENER_REMOVED",
		"type", typeID.String(),
		"listener_id", listenerID,
		"listeners", remaining,
	)
	if remaining == 0 {
		r.logger.Info("EVENT_TYPE_RELEASED: no listeners left", "type", typeID.String())
		r.metrics.Listeners.DeleteLabelValues(typeID.String())
	} else {
		r.metrics.Listeners.WithLabelValues(typeID.String()).Set(float64(remaining))
	}
	r.metrics.Removals.WithLabelValues("removed").Inc()
	return true
}

// Dispatch invokes every callback registered for the event's type and returns
// how many completed normally. A type with no listeners is a valid no-op.
//
// Callbacks run in registration order today; callers must not depend on it.
// A panicking callback is recovered and logged, and the remaining listeners still run.
func (r *ListenerRegistry) Dispatch(ev event.Eventer) int {
	typeID := ev.GetTypeID()

	r.mu.RLock()
	regs := r.listeners[typeID]
	r.mu.RUnlock()

	r.triggered.Add(1)
	if len(regs) == 0 {
		r.unheard.Add(1)
		r.reportUnheard(ev)
		return 0
	}

	r.metrics.Triggered.WithLabelValues(typeID.String()).Inc()
	r.logger.Debug("EVENT_DISPATCHING",
		"type", typeID.String(),
		"event_id", ev.GetID(),
		"listeners", len(regs),
	)

	delivered := 0
	for _, reg := range regs {
		out, err := reg.guard.invoke(reg.callback, ev)
		switch out {
		case outcomeDelivered:
			delivered++
		case outcomeSkipped:
			r.logger.Warn("LISTENER_SKIPPED: uncallable delegate",
				"type", typeID.String(),
				"listener_id", reg.listenerID,
			)
		case outcomeQuarantined:
			r.quarantined.Add(1)
			r.metrics.ListenerFailures.WithLabelValues("quarantined").Inc()
			r.logger.Debug("LISTENER_SKIPPED: breaker open",
				"type", typeID.String(),
				"listener_id", reg.listenerID,
			)
		case outcomePanicked:
			r.panicked.Add(1)
			r.metrics.ListenerFailures.WithLabelValues("panic").Inc()
			attrs := []any{
				"type", typeID.String(),
				"listener_id", reg.listenerID,
				"event_id", ev.GetID(),
				"err", err,
			}
			if lp, ok := err.(*ListenerPanic); ok {
				attrs = append(attrs, "stack", string(lp.Stack))
			}
			r.logger.Error("LISTENER_PANIC_RECOVERED", attrs...)
		}
	}

	r.delivered.Add(uint64(delivered))
	return delivered
}

func (r *ListenerRegistry) reportUnheard(ev event.Eventer) {
	typeID := ev.GetTypeID()
	if r.silence != nil {
		if r.silence.Contains(typeID) {
			return
		}
		r.silence.Add(typeID, struct{}{})
	}

	r.logger.Warn("EVENT_UNHEARD: no listeners",
		"type", typeID.String(),
		"name", ev.GetName(),
		"event_id", ev.GetID(),
	)
}

// CountFor returns the number of registrations for typeID, 0 if unknown.
func (r *ListenerRegistry) CountFor(typeID event.EventTypeID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[typeID])
}

// Types lists every type that currently has at least one listener.
func (r *ListenerRegistry) Types() []event.EventTypeID {
	r.mu.RLock()
	ids := make([]event.EventTypeID, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Snapshot copies the per-type listener counts.
func (r *ListenerRegistry) Snapshot() map[event.EventTypeID]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[event.EventTypeID]int, len(r.listeners))
	for id, regs := range r.listeners {
		out[id] = len(regs)
	}
	return out
}

func byListener(id ListenerID) func(registration) bool {
	return func(reg registration) bool { return reg.listenerID == id }
}
