package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/webitel/event-broker/config"
	otelsetup "github.com/webitel/event-broker/infra/otel"
	httpsrv "github.com/webitel/event-broker/infra/server/http"
	pubsubadapter "github.com/webitel/event-broker/internal/adapter/pubsub"
	"github.com/webitel/event-broker/internal/domain/registry"
	pubsubhandler "github.com/webitel/event-broker/internal/handler/pubsub"
	"github.com/webitel/event-broker/internal/service"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func NewApp(cfg *config.Config, extra ...fx.Option) *fx.App {
	return fx.New(appOptions(cfg, extra...)...)
}

func appOptions(cfg *config.Config, extra ...fx.Option) []fx.Option {
	opts := []fx.Option{
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvidePubSub,
			ProvideMetricsRegistry,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With("component", "fx")}
		}),
		fx.Invoke(RegisterTelemetry),
		registry.Module,
		pubsubadapter.Module,
		pubsubhandler.Module,
		service.Module,
		httpsrv.Module,
	}
	return append(opts, extra...)
}

// ProvideLogger builds the process logger and installs it as slog's default.
func ProvideLogger(cfg *config.Config, lc fx.Lifecycle) (*slog.Logger, error) {
	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		lc.Append(fx.StopHook(f.Close))
		out = f
	}

	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}

	var handler slog.Handler
	switch cfg.Log.Format {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	// [OTEL_BRIDGE] records reach the collector once the log provider is installed
	if cfg.Log.Otel {
		handler = fanout{handler, otelslog.NewHandler(ServiceName)}
	}

	logger := slog.New(handler).With("service", ServiceName, "version", version)
	slog.SetDefault(logger)
	return logger, nil
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger.With("component", "watermill"))
}

type PubSubResult struct {
	fx.Out

	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// ProvidePubSub backs every topic with one in-process channel.
func ProvidePubSub(cfg *config.Config, wmLogger watermill.LoggerAdapter, lc fx.Lifecycle) PubSubResult {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.Ingress.Buffer,
	}, wmLogger)

	lc.Append(fx.StopHook(ch.Close))

	return PubSubResult{
		Publisher:  ch,
		Subscriber: ch,
	}
}

type MetricsResult struct {
	fx.Out

	Registry   *prometheus.Registry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func ProvideMetricsRegistry() MetricsResult {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return MetricsResult{
		Registry:   reg,
		Registerer: reg,
		Gatherer:   reg,
	}
}

// RegisterTelemetry installs the OTLP providers for the app lifetime.
func RegisterTelemetry(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) {
	shutdown := func(context.Context) error { return nil }

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			fn, err := otelsetup.Setup(ctx, cfg.Otel, ServiceName, version)
			if err != nil {
				return err
			}
			shutdown = fn
			if cfg.Otel.Endpoint != "" {
				logger.Info("OTEL_EXPORT_ENABLED", "endpoint", cfg.Otel.Endpoint)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
}
