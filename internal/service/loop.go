package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/model"
	"github.com/webitel/event-broker/internal/domain/registry"
	"golang.org/x/sync/errgroup"
)

var ErrLoopRunning = errors.New("frame loop: already running")

// [FRAME_LOOP] PER-TICK DRIVER OF THE DEFERRED DISPATCH PATH
type Looper interface {
	GetFrame() uint64
	GetBudget() time.Duration
	SetBudget(d time.Duration)
	GetLastDrain() *model.DrainStats
}

var _ Looper = (*FrameLoop)(nil)

// FrameLoop announces each frame and drains the broker queue within the frame budget.
type FrameLoop struct {
	broker   registry.Broker
	logger   *slog.Logger
	interval time.Duration

	budget    atomic.Int64
	frame     atomic.Uint64
	lastDrain atomic.Pointer[model.DrainStats]

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewFrameLoop(broker registry.Broker, logger *slog.Logger, interval, budget time.Duration) *FrameLoop {
	l := &FrameLoop{
		broker:   broker,
		logger:   logger.With("component", "frame_loop"),
		interval: interval,
	}
	l.budget.Store(int64(budget))
	return l
}

func (l *FrameLoop) GetFrame() uint64 { return l.frame.Load() }

func (l *FrameLoop) GetBudget() time.Duration { return time.Duration(l.budget.Load()) }

// SetBudget applies from the next tick on. Negative values are clamped to zero.
func (l *FrameLoop) SetBudget(d time.Duration) {
	d = max(d, 0)
	if old := time.Duration(l.budget.Swap(int64(d))); old != d {
		l.logger.Info("FRAME_BUDGET_CHANGED", "old", old, "new", d)
	}
}

func (l *FrameLoop) GetLastDrain() *model.DrainStats { return l.lastDrain.Load() }

// Tick runs one frame: a synchronous FrameStarted signal, then a time-boxed drain.
func (l *FrameLoop) Tick() model.DrainStats {
	frame := l.frame.Add(1)
	budget := l.GetBudget()

	l.broker.TriggerEvent(event.NewSystemEvent(event.FrameStarted, &model.FramePayload{
		Frame:  frame,
		Budget: budget,
	}))

	stats, _ := l.broker.OnUpdate(budget)
	l.lastDrain.Store(&stats)

	if stats.Remaining > 0 {
		l.logger.Debug("FRAME_BACKLOG",
			"frame", frame,
			"processed", stats.Processed,
			"remaining", stats.Remaining,
			"overrun", stats.Overrun,
		)
	}
	return stats
}

// Start ticks on a background goroutine until Stop or ctx ends.
func (l *FrameLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrLoopRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gCtx := errgroup.WithContext(ctx)
	l.cancel, l.group = cancel, g

	g.Go(func() error {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				l.Tick()
			}
		}
	})

	l.logger.Info("FRAME_LOOP_STARTED", "interval", l.interval, "budget", l.GetBudget())
	return nil
}

// Stop cancels the ticker goroutine and waits for the frame in flight.
func (l *FrameLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	cancel, g := l.cancel, l.group
	l.cancel, l.group = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		l.logger.Info("FRAME_LOOP_STOPPED", "frames", l.GetFrame())
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
