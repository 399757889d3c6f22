package registry

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	appconfig "github.com/webitel/event-broker/config"
	"go.uber.org/fx"
)

type Params struct {
	fx.In

	Config     *appconfig.Config
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Tap        Tapper `optional:"true"`
}

// Options translates the broker section of the config into functional options.
func Options(cfg appconfig.BrokerConfig) []Option {
	opts := []Option{
		WithSilenceWindow(cfg.SilenceCache, cfg.SilenceWindow),
	}
	if cfg.StrictContracts {
		opts = append(opts, WithStrictContracts())
	}
	if cfg.Breaker.Enabled {
		opts = append(opts, WithListenerBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Cooldown))
	}
	return opts
}

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure the broker using Functional Options
		func(p Params) *EventBroker {
			opts := append(Options(p.Config.Broker),
				WithLogger(p.Logger.With("component", "broker")),
				WithMetrics(NewMetrics(p.Registerer)),
			)
			if p.Tap != nil {
				opts = append(opts, WithTap(p.Tap))
			}
			return NewEventBroker(opts...)
		},
		func(b *EventBroker) Broker { return b },
		func(b *EventBroker) Inspector { return b },
	),
	fx.Invoke(func(lc fx.Lifecycle, b *EventBroker) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				b.Flush() // [GRACEFUL_SHUTDOWN] Pending events are not persisted
				return nil
			},
		})
	}),
)
