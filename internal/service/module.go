package service

import (
	"context"
	"log/slog"

	"github.com/webitel/event-broker/config"
	"github.com/webitel/event-broker/internal/domain/registry"
	"go.uber.org/fx"
)

// speedMultiplier scales one key press to world units per second of frame time.
const speedMultiplier = 2.0

var Module = fx.Module(
	"service",

	fx.Provide(
		func(b registry.Broker, logger *slog.Logger, cfg *config.Config) *FrameLoop {
			return NewFrameLoop(b, logger, cfg.Broker.TickInterval, cfg.Broker.FrameBudget)
		},
		func(b registry.Broker, logger *slog.Logger, cfg *config.Config) *Player {
			return NewPlayer(b, logger, speedMultiplier*cfg.Broker.TickInterval.Seconds())
		},
		func(l *FrameLoop) Looper { return l },
		func(p *Player) Mover { return p },
	),

	fx.Invoke(func(lc fx.Lifecycle, loop *FrameLoop, player *Player) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := player.Start(); err != nil {
					return err
				}
				// [DETACHED_RUN] the loop outlives the start context
				return loop.Start(context.Background())
			},
			OnStop: func(ctx context.Context) error {
				err := loop.Stop(ctx)
				player.Stop()
				return err
			},
		})
	}),

	// [HOT_RELOAD] frame budget follows the config file
	fx.Invoke(func(cfg *config.Config, loop *FrameLoop, logger *slog.Logger) {
		watching := cfg.OnChange(func(next *config.Config, err error) {
			if err != nil {
				logger.Error("CONFIG_RELOAD_FAILED", "err", err)
				return
			}
			loop.SetBudget(next.Broker.FrameBudget)
		})
		if watching {
			logger.Info("CONFIG_WATCH_STARTED", "file", cfg.GetConfigFile())
		}
	}),
)
