package registry

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// config holds everything an Option may tune. Zero values are replaced by defaults in NewEventBroker.
type config struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	tap     Tapper

	strict bool

	silenceSize   int
	silenceWindow time.Duration

	breakerEnabled     bool
	breakerMaxFailures uint32
	breakerCooldown    time.Duration
}

// Option defines a functional configuration type for the EventBroker.
type Option func(*config)

// WithLogger sets the diagnostics side channel. Logging never influences control flow.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer records one span per drain pass.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// WithTap mirrors every triggered event to an observer after local dispatch.
func WithTap(t Tapper) Option {
	return func(c *config) {
		c.tap = t
	}
}

// WithStrictContracts makes precondition violations (nil event, negative budget)
// panic with a *ContractViolation instead of logging and returning a failure result.
func WithStrictContracts() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithSilenceWindow limits the "no listeners" warning to once per type per window.
// size caps how many distinct types are remembered.
func WithSilenceWindow(size int, window time.Duration) Option {
	return func(c *config) {
		c.silenceSize = size
		c.silenceWindow = window
	}
}

// WithListenerBreaker gives every registration a circuit breaker.
// After maxFailures consecutive panics the listener is skipped for cooldown.
func WithListenerBreaker(maxFailures uint32, cooldown time.Duration) Option {
	return func(c *config) {
		c.breakerEnabled = true
		c.breakerMaxFailures = maxFailures
		c.breakerCooldown = cooldown
	}
}
