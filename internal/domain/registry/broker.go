package registry

import (
	"context"
	"log/slog"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/webitel/event-broker/internal/domain/registry"

// Broker is the in-process publish/subscribe surface used by producers and consumers.
type Broker interface {
	// RegisterListener issues a fresh, never reused ListenerID.
	RegisterListener() ListenerID
	AddListener(typeID event.EventTypeID, id ListenerID, cb Callback) bool
	RemoveListener(typeID event.EventTypeID, id ListenerID) bool
	// TriggerEvent dispatches ev synchronously on the caller's goroutine.
	TriggerEvent(ev event.Eventer) bool
	// QueueEvent defers ev until the next OnUpdate.
	QueueEvent(ev event.Eventer) bool
	// OnUpdate drains the pending queue for at most budget (plus one dispatch).
	OnUpdate(budget time.Duration) (model.DrainStats, bool)
	QueueLength() int
}

// Inspector exposes read-only diagnostics for operator surfaces.
type Inspector interface {
	CountFor(typeID event.EventTypeID) int
	Types() []event.EventTypeID
	Stats() model.BrokerStats
}

// Tapper observes every dispatched event after local listeners have run.
type Tapper interface {
	Tap(ev event.Eventer)
}

// [GUARD] Ensure compliance with the interfaces.
var (
	_ Broker    = (*EventBroker)(nil)
	_ Inspector = (*EventBroker)(nil)
)

// EventBroker composes a ListenerRegistry and a PendingQueue.
// Every operation is valid from construction onward and safe for concurrent use.
type EventBroker struct {
	config config

	listeners *ListenerRegistry
	queue     *PendingQueue

	queued      atomic.Uint64
	drained     atomic.Uint64
	drainPasses atomic.Uint64
	lastDrain   atomic.Pointer[model.DrainStats]
}

// NewEventBroker initializes a broker with default settings and applies options.
func NewEventBroker(opts ...Option) *EventBroker {
	b := &EventBroker{
		config: config{
			silenceSize:   256,
			silenceWindow: 5 * time.Second,
		},
		queue: newPendingQueue(),
	}

	for _, opt := range opts {
		opt(&b.config)
	}

	if b.config.logger == nil {
		b.config.logger = slog.Default()
	}
	if b.config.metrics == nil {
		b.config.metrics = NewMetrics(nil)
	}
	if b.config.tracer == nil {
		b.config.tracer = otel.Tracer(tracerName)
	}

	b.listeners = newListenerRegistry(&b.config, b.quarantine)
	return b
}

func (b *EventBroker) RegisterListener() ListenerID {
	return b.listeners.IssueListenerID()
}

func (b *EventBroker) AddListener(typeID event.EventTypeID, id ListenerID, cb Callback) bool {
	return b.listeners.Add(typeID, id, cb)
}

func (b *EventBroker) RemoveListener(typeID event.EventTypeID, id ListenerID) bool {
	return b.listeners.Remove(typeID, id)
}

func (b *EventBroker) TriggerEvent(ev event.Eventer) bool {
	if isNil(ev) {
		b.violate("TriggerEvent", ErrNilEvent)
		return false
	}

	b.dispatch(ev)
	return true
}

func (b *EventBroker) QueueEvent(ev event.Eventer) bool {
	if isNil(ev) {
		b.violate("QueueEvent", ErrNilEvent)
		return false
	}

	b.queue.Enqueue(ev)
	b.queued.Add(1)
	b.config.metrics.Queued.Inc()
	b.config.metrics.QueueDepth.Set(float64(b.queue.Len()))
	return true
}

func (b *EventBroker) OnUpdate(budget time.Duration) (model.DrainStats, bool) {
	if budget < 0 {
		b.violate("OnUpdate", ErrNegativeBudget)
		return model.DrainStats{Budget: budget, Remaining: b.queue.Len()}, false
	}

	_, span := b.config.tracer.Start(context.Background(), "broker.drain",
		trace.WithAttributes(
			attribute.Int64("broker.budget_us", budget.Microseconds()),
			attribute.Int("broker.queue_length", b.queue.Len()),
		),
	)
	defer span.End()

	stats := b.queue.Drain(budget, b.dispatch)

	span.SetAttributes(
		attribute.Int("broker.processed", stats.Processed),
		attribute.Int("broker.remaining", stats.Remaining),
		attribute.Int64("broker.overrun_us", stats.Overrun.Microseconds()),
	)
	if stats.Remaining > 0 {
		span.AddEvent("budget exhausted")
	}

	b.drained.Add(uint64(stats.Processed))
	b.drainPasses.Add(1)
	b.lastDrain.Store(&stats)

	m := b.config.metrics
	m.DrainDuration.Observe(stats.Elapsed.Seconds())
	m.DrainOverrun.Observe(stats.Overrun.Seconds())
	m.DrainedEvents.Add(float64(stats.Processed))
	m.QueueDepth.Set(float64(stats.Remaining))

	if stats.Processed > 0 {
		b.config.logger.Debug("QUEUE_DRAINED",
			"processed", stats.Processed,
			"remaining", stats.Remaining,
			"elapsed", stats.Elapsed,
			"budget", budget,
		)
	}
	return stats, true
}

func (b *EventBroker) QueueLength() int {
	return b.queue.Len()
}

func (b *EventBroker) CountFor(typeID event.EventTypeID) int {
	return b.listeners.CountFor(typeID)
}

func (b *EventBroker) Types() []event.EventTypeID {
	return b.listeners.Types()
}

// Flush discards every pending event without dispatching it.
func (b *EventBroker) Flush() int {
	n := b.queue.Flush()
	b.config.metrics.QueueDepth.Set(0)
	if n > 0 {
		b.config.logger.Warn("QUEUE_FLUSHED", "discarded", n)
	}
	return n
}

// Stats returns cumulative counters and the current registry shape.
func (b *EventBroker) Stats() model.BrokerStats {
	snap := b.listeners.Snapshot()
	listeners := make(map[string]int, len(snap))
	for id, n := range snap {
		listeners[id.String()] = n
	}

	r := b.listeners
	return model.BrokerStats{
		QueueLength: b.queue.Len(),
		Listeners:   listeners,
		Dispatch: model.DispatchStats{
			Triggered:   r.triggered.Load(),
			Unheard:     r.unheard.Load(),
			Delivered:   r.delivered.Load(),
			Panicked:    r.panicked.Load(),
			Quarantined: r.quarantined.Load(),
			Queued:      b.queued.Load(),
			Drained:     b.drained.Load(),
			DrainPasses: b.drainPasses.Load(),
		},
		LastDrain: b.lastDrain.Load(),
	}
}

func (b *EventBroker) dispatch(ev event.Eventer) {
	b.listeners.Dispatch(ev)
	if b.config.tap != nil {
		b.config.tap.Tap(ev)
	}
}

// quarantine runs on the dispatching goroutine when a listener's breaker opens.
// No broker lock is held at that point, so queueing is safe.
func (b *EventBroker) quarantine(typeID event.EventTypeID, listenerID ListenerID, failures uint32) {
	b.config.logger.Error("LISTENER_QUARANTINED",
		"type", typeID.String(),
		"listener_id", listenerID,
		"failures", failures,
		"cooldown", b.config.breakerCooldown,
	)

	b.QueueEvent(event.NewSystemEvent(event.ListenerQuarantined, &model.QuarantinePayload{
		TypeID:     uint32(typeID),
		ListenerID: int64(listenerID),
		Failures:   failures,
	}))
}

func (b *EventBroker) violate(op string, err error) {
	b.config.metrics.Violations.WithLabelValues(op).Inc()
	if b.config.strict {
		panic(&ContractViolation{Op: op, Err: err})
	}
	b.config.logger.Error("CONTRACT_VIOLATION", "op", op, "err", err)
}

// isNil also catches typed nil pointers wrapped in a non-nil interface.
func isNil(ev event.Eventer) bool {
	if ev == nil {
		return true
	}

	v := reflect.ValueOf(ev)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
