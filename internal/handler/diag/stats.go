package diag

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/model"
	"github.com/webitel/event-broker/internal/domain/registry"
	"github.com/webitel/event-broker/internal/service"
)

// StatsHandler serves read-only broker diagnostics. Nothing here delivers events.
type StatsHandler struct {
	inspector registry.Inspector
	loop      service.Looper
	player    service.Mover
}

func NewStatsHandler(inspector registry.Inspector, loop service.Looper, player service.Mover) *StatsHandler {
	return &StatsHandler{
		inspector: inspector,
		loop:      loop,
		player:    player,
	}
}

type brokerResponse struct {
	model.BrokerStats
	Frame  frameView  `json:"frame"`
	Player playerView `json:"player"`
}

type frameView struct {
	Frame  uint64        `json:"frame"`
	Budget time.Duration `json:"budget"`
}

type playerView struct {
	Position model.Vec3 `json:"position"`
	Moves    uint64     `json:"moves"`
}

type typeResponse struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Listeners int    `json:"listeners"`
}

func RegisterRoutes(r chi.Router, h *StatsHandler) {
	r.Get("/healthz", h.Health)
	r.Route("/debug/broker", func(r chi.Router) {
		r.Get("/", h.Broker)
		r.Get("/types/{typeID}", h.Type)
	})
}

func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *StatsHandler) Broker(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, brokerResponse{
		BrokerStats: h.inspector.Stats(),
		Frame: frameView{
			Frame:  h.loop.GetFrame(),
			Budget: h.loop.GetBudget(),
		},
		Player: playerView{
			Position: h.player.GetPosition(),
			Moves:    h.player.GetMoves(),
		},
	})
}

// Type reports one event type; the id accepts 0x-prefixed hex or decimal.
func (h *StatsHandler) Type(w http.ResponseWriter, r *http.Request) {
	raw, err := strconv.ParseUint(chi.URLParam(r, "typeID"), 0, 32)
	if err != nil {
		http.Error(w, "invalid type id", http.StatusBadRequest)
		return
	}

	typeID := event.EventTypeID(raw)
	name, ok := event.TypeName(typeID)
	if !ok {
		http.Error(w, "unknown event type", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, typeResponse{
		Type:      typeID.String(),
		Name:      name,
		Listeners: h.inspector.CountFor(typeID),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
