package diag

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/domain/event"
	"github.com/webitel/event-broker/internal/domain/registry"
	"github.com/webitel/event-broker/internal/service"
)

func newRouter(t *testing.T) (chi.Router, *registry.EventBroker, *service.Player) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := registry.NewEventBroker(registry.WithLogger(logger))
	loop := service.NewFrameLoop(b, logger, time.Hour, 16*time.Millisecond)
	player := service.NewPlayer(b, logger, 1)
	require.NoError(t, player.Start())
	t.Cleanup(player.Stop)

	r := chi.NewRouter()
	RegisterRoutes(r, NewStatsHandler(b, loop, player))
	return r, b, player
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	r, _, _ := newRouter(t)

	rec := get(r, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBrokerStats(t *testing.T) {
	r, b, _ := newRouter(t)
	b.TriggerEvent(event.NewInputCommandEvent("D"))
	b.QueueEvent(event.NewInputCommandEvent("W"))

	rec := get(r, "/debug/broker/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		QueueLength int            `json:"queue_length"`
		Listeners   map[string]int `json:"listeners"`
		Dispatch    struct {
			Triggered uint64 `json:"triggered"`
			Queued    uint64 `json:"queued"`
		} `json:"dispatch"`
		Player struct {
			Position struct{ X float64 } `json:"position"`
			Moves    uint64              `json:"moves"`
		} `json:"player"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 1, body.QueueLength)
	assert.Equal(t, map[string]int{"0xf894bb78": 1}, body.Listeners)
	assert.EqualValues(t, 1, body.Dispatch.Triggered)
	assert.EqualValues(t, 1, body.Dispatch.Queued)
	assert.Equal(t, 1.0, body.Player.Position.X)
	assert.EqualValues(t, 1, body.Player.Moves)
}

func TestTypeLookup(t *testing.T) {
	r, _, _ := newRouter(t)

	rec := get(r, "/debug/broker/types/0xf894bb78")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"0xf894bb78","name":"Input Command","listeners":1}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, get(r, "/debug/broker/types/zzz").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/debug/broker/types/0x00000001").Code)
}
