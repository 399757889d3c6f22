package registry

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/webitel/event-broker/internal/domain/event"
)

var (
	typeAlpha = event.MustRegisterType(0x7e570a01, "Test Alpha")
	typeBeta  = event.MustRegisterType(0x7e570a02, "Test Beta")
	typeGamma = event.MustRegisterType(0x7e570a03, "Test Gamma")
)

type seqEvent struct {
	event.Base
	seq int
}

func newSeqEvent(typeID event.EventTypeID, seq int) *seqEvent {
	return &seqEvent{Base: event.NewBase(typeID), seq: seq}
}

func (e *seqEvent) GetPayload() any { return e.seq }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBroker(opts ...Option) *EventBroker {
	base := []Option{
		WithLogger(discardLogger()),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
	}
	return NewEventBroker(append(base, opts...)...)
}

// spin burns CPU for d without yielding, standing in for real listener work.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

type recordingTap struct {
	events []event.Eventer
}

func (r *recordingTap) Tap(ev event.Eventer) { r.events = append(r.events, ev) }
