package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/model"
	"github.com/webitel/event-broker/internal/domain/registry"
)

var ErrSubscribeFailed = errors.New("player: input subscription rejected")

// Camera axes: the player looks down -Z with +X to the right.
var (
	cameraFront = model.Vec3{Z: -1}
	cameraRight = model.Vec3{X: 1}
)

// [PLAYER_ACTOR] CONSUMES INPUT COMMANDS
type Mover interface {
	GetPosition() model.Vec3
	GetMoves() uint64
}

var _ Mover = (*Player)(nil)

// Player moves through the world in reaction to W/A/S/D input commands.
type Player struct {
	broker registry.Broker
	logger *slog.Logger
	step   float64

	mu       sync.Mutex
	listener *registry.EventListener
	position model.Vec3
	moves    uint64
}

// NewPlayer creates an idle player; step is the distance covered per key press.
func NewPlayer(broker registry.Broker, logger *slog.Logger, step float64) *Player {
	return &Player{
		broker: broker,
		logger: logger.With("component", "player"),
		step:   step,
	}
}

// Start subscribes to input commands. Calling it twice is a no-op.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.listener != nil {
		return nil
	}

	l := registry.NewEventListener(p.broker)
	if !l.RegisterForEvent(event.InputCommandType, p.onInput) {
		l.Close()
		return ErrSubscribeFailed
	}

	p.listener = l
	p.logger.Info("PLAYER_READY", "listener_id", l.ID())
	return nil
}

// Stop releases the subscription.
func (p *Player) Stop() {
	p.mu.Lock()
	l := p.listener
	p.listener = nil
	p.mu.Unlock()

	if l != nil {
		l.Close()
	}
}

func (p *Player) GetPosition() model.Vec3 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *Player) GetMoves() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.moves
}

func (p *Player) onInput(ev event.Eventer) {
	cmd, ok := ev.(*event.InputCommandEvent)
	if !ok {
		return
	}

	var dir model.Vec3
	switch cmd.GetKey() {
	case "W":
		dir = cameraFront
	case "S":
		dir = cameraFront.Scale(-1)
	case "D":
		dir = cameraRight
	case "A":
		dir = cameraRight.Scale(-1)
	default:
		return
	}

	p.mu.Lock()
	p.position = p.position.Add(dir.Scale(p.step))
	p.moves++
	pos := p.position
	p.mu.Unlock()

	p.logger.Debug("PLAYER_MOVED", "key", cmd.GetKey(), "x", pos.X, "y", pos.Y, "z", pos.Z)
}
