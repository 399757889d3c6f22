package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/webitel/event-broker/internal/domain/registry"
	"github.com/webitel/event-broker/internal/handler/pubsub"
	"github.com/webitel/event-broker/internal/service"
)

const (
	feedLimit    = 32
	historyWidth = 120
)

// Dashboard renders live broker state and turns w/a/s/d key presses into
// input commands on the ingress topic.
type Dashboard struct {
	inspector registry.Inspector
	loop      service.Looper
	player    service.Mover
	pub       message.Publisher
	sub       message.Subscriber
	logger    *slog.Logger
	refresh   time.Duration
}

func NewDashboard(
	inspector registry.Inspector,
	loop service.Looper,
	player service.Mover,
	pub message.Publisher,
	sub message.Subscriber,
	logger *slog.Logger,
	refresh time.Duration,
) *Dashboard {
	return &Dashboard{
		inspector: inspector,
		loop:      loop,
		player:    player,
		pub:       pub,
		sub:       sub,
		logger:    logger.With("component", "dashboard"),
		refresh:   refresh,
	}
}

type screen struct {
	grid      *ui.Grid
	drain     *widgets.Gauge
	summary   *widgets.Paragraph
	listeners *widgets.List
	recent    *widgets.List
	backlog   *widgets.Sparkline
}

func newScreen() *screen {
	s := &screen{
		grid:      ui.NewGrid(),
		drain:     widgets.NewGauge(),
		summary:   widgets.NewParagraph(),
		listeners: widgets.NewList(),
		recent:    widgets.NewList(),
		backlog:   widgets.NewSparkline(),
	}

	s.drain.Title = " Last drain "
	s.drain.BarColor = ui.ColorGreen
	s.summary.Title = " Broker (q quit, w/a/s/d move) "
	s.listeners.Title = " Listeners "
	s.recent.Title = " Recent events "
	s.backlog.LineColor = ui.ColorCyan

	backlog := widgets.NewSparklineGroup(s.backlog)
	backlog.Title = " Queue length "

	s.grid.Set(
		ui.NewRow(0.15, s.drain),
		ui.NewRow(0.45,
			ui.NewCol(0.6, s.summary),
			ui.NewCol(0.4, s.listeners),
		),
		ui.NewRow(0.2, backlog),
		ui.NewRow(0.2, s.recent),
	)
	return s
}

func (s *screen) resize(w, h int) {
	s.grid.SetRect(0, 0, w, h)
}

func (s *screen) apply(v View) {
	s.drain.Percent = v.DrainPercent
	s.drain.Label = v.DrainLabel
	s.summary.Text = v.Summary
	s.listeners.Rows = v.Listeners
	s.recent.Rows = v.Recent
	s.backlog.Data = v.Backlog
}

// Run takes over the terminal until q, Ctrl-C or ctx cancellation.
func (d *Dashboard) Run(ctx context.Context) error {
	feed := NewFeed(feedLimit, d.logger)
	if err := feed.Follow(ctx, d.sub); err != nil {
		return err
	}

	if err := ui.Init(); err != nil {
		return err
	}
	defer ui.Close()

	scr := newScreen()
	scr.resize(ui.TerminalDimensions())
	history := NewHistory(historyWidth)

	draw := func() {
		scr.apply(BuildView(d.sample(feed), history.Add(float64(d.inspector.Stats().QueueLength))))
		ui.Render(scr.grid)
	}
	draw()

	ticker := time.NewTicker(d.refresh)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			draw()
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				scr.resize(payload.Width, payload.Height)
				ui.Clear()
				draw()
			case "w", "a", "s", "d":
				if err := pubsub.PublishInputCommand(d.pub, strings.ToUpper(e.ID)); err != nil {
					d.logger.Warn("INPUT_PUBLISH_FAILED", "key", e.ID, "err", err)
				}
			}
		}
	}
}

func (d *Dashboard) sample(feed *Feed) Sample {
	recent, seen := feed.Recent()
	return Sample{
		Stats:    d.inspector.Stats(),
		Frame:    d.loop.GetFrame(),
		Budget:   d.loop.GetBudget(),
		Position: d.player.GetPosition(),
		Moves:    d.player.GetMoves(),
		Recent:   recent,
		Seen:     seen,
	}
}
