package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/urfave/cli/v2"
	"github.com/webitel/event-broker/config"
	"github.com/webitel/event-broker/internal/domain/registry"
	"github.com/webitel/event-broker/internal/handler/tui"
	"github.com/webitel/event-broker/internal/service"
	"go.uber.org/fx"
)

const (
	ServiceName      = "event-broker"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Frame-driven in-process event broker",
		Commands: []*cli.Command{
			serverCmd(),
			dashboardCmd(),
			versionCmd(),
		},
	}

	return app.Run(os.Args)
}

var configFileFlag = &cli.StringFlag{
	Name:    "config_file",
	Aliases: []string{"c"},
	Usage:   "Path to the configuration file",
	EnvVars: []string{config.EnvPrefix + "_CONFIG_FILE"},
}

// loadConfig reads the file flag plus any trailing --key=value overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.LoadConfig(c.String(configFileFlag.Name), c.Args().Slice())
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the broker with its frame loop, ingress and diagnostics",
		ArgsUsage: "[-- --section.key=value ...]",
		Flags:     []cli.Flag{configFileFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			return app.Stop(context.Background())
		},
	}
}

func dashboardCmd() *cli.Command {
	return &cli.Command{
		Name:      "dashboard",
		Aliases:   []string{"d"},
		Usage:     "Run the broker in-process behind a terminal dashboard",
		ArgsUsage: "[-- --section.key=value ...]",
		Flags: []cli.Flag{
			configFileFlag,
			&cli.DurationFlag{
				Name:  "refresh",
				Value: 200 * time.Millisecond,
				Usage: "Redraw interval",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			// [TERMINAL_OWNERSHIP] the dashboard owns stderr
			if cfg.Log.File == "" {
				cfg.Log.File = os.DevNull
			}

			var (
				inspector registry.Inspector
				loop      service.Looper
				player    service.Mover
				pub       message.Publisher
				sub       message.Subscriber
				logger    *slog.Logger
			)
			app := NewApp(cfg, fx.Populate(&inspector, &loop, &player, &pub, &sub, &logger))

			if err := app.Start(c.Context); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			runErr := tui.NewDashboard(inspector, loop, player, pub, sub, logger, c.Duration("refresh")).Run(ctx)

			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := app.Stop(stopCtx); err != nil && runErr == nil {
				return err
			}
			return runErr
		},
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			_, err := fmt.Fprintf(c.App.Writer,
				"%s/%s %s\ncommit: %s (%s)\nbranch: %s\nbuilt:  %s\n",
				ServiceNamespace, ServiceName, version, commit, commitDate, branch, buildTimestamp)
			return err
		},
	}
}
