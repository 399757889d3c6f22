package registry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/event-broker/internal/domain/event"
	"pgregory.net/rapid"
)

func newTestRegistry(opts ...Option) *ListenerRegistry {
	cfg := &config{
		logger:  discardLogger(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return newListenerRegistry(cfg, nil)
}

func TestListenerRegistry_IssueListenerIDStartsAtOne(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, ListenerID(1), r.IssueListenerID())
	assert.Equal(t, ListenerID(2), r.IssueListenerID())
}

func TestListenerRegistry_DuplicateAddRejected(t *testing.T) {
	r := newTestRegistry()
	id := r.IssueListenerID()

	var first, second int
	require.True(t, r.Add(typeAlpha, id, func(event.Eventer) { first++ }))
	assert.False(t, r.Add(typeAlpha, id, func(event.Eventer) { second++ }))
	assert.Equal(t, 1, r.CountFor(typeAlpha))

	r.Dispatch(newSeqEvent(typeAlpha, 0))
	assert.Equal(t, 1, first, "original registration stays intact")
	assert.Equal(t, 0, second)
}

func TestListenerRegistry_SameListenerDifferentTypes(t *testing.T) {
	r := newTestRegistry()
	id := r.IssueListenerID()

	assert.True(t, r.Add(typeAlpha, id, func(event.Eventer) {}))
	assert.True(t, r.Add(typeBeta, id, func(event.Eventer) {}))
	assert.Equal(t, []event.EventTypeID{typeAlpha, typeBeta}, r.Types())
}

func TestListenerRegistry_NilCallbackRejected(t *testing.T) {
	r := newTestRegistry()

	assert.False(t, r.Add(typeAlpha, r.IssueListenerID(), nil))
	assert.Equal(t, 0, r.CountFor(typeAlpha))
	assert.Empty(t, r.Types())
}

func TestListenerRegistry_RemoveUnknown(t *testing.T) {
	r := newTestRegistry()
	id := r.IssueListenerID()

	assert.False(t, r.Remove(typeAlpha, id), "unknown type")

	require.True(t, r.Add(typeAlpha, id, func(event.Eventer) {}))
	assert.False(t, r.Remove(typeAlpha, id+100), "unknown listener")
	assert.Equal(t, 1, r.CountFor(typeAlpha))
}

func TestListenerRegistry_RemoveLastDropsType(t *testing.T) {
	r := newTestRegistry()
	a, b := r.IssueListenerID(), r.IssueListenerID()

	require.True(t, r.Add(typeAlpha, a, func(event.Eventer) {}))
	require.True(t, r.Add(typeAlpha, b, func(event.Eventer) {}))

	require.True(t, r.Remove(typeAlpha, a))
	assert.Equal(t, map[event.EventTypeID]int{typeAlpha: 1}, r.Snapshot())

	require.True(t, r.Remove(typeAlpha, b))
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.CountFor(typeAlpha))
}

func TestListenerRegistry_DispatchFanOut(t *testing.T) {
	r := newTestRegistry()
	got := map[ListenerID][]int{}

	for range 3 {
		id := r.IssueListenerID()
		require.True(t, r.Add(typeAlpha, id, func(ev event.Eventer) {
			got[id] = append(got[id], ev.GetPayload().(int))
		}))
	}

	assert.Equal(t, 3, r.Dispatch(newSeqEvent(typeAlpha, 7)))
	assert.Len(t, got, 3)
	for id, seqs := range got {
		assert.Equal(t, []int{7}, seqs, "listener %d", id)
	}
}

func TestListenerRegistry_DispatchUnknownTypeIsNoop(t *testing.T) {
	r := newTestRegistry(WithSilenceWindow(8, time.Minute))

	assert.Equal(t, 0, r.Dispatch(newSeqEvent(typeGamma, 1)))
	assert.Equal(t, 0, r.Dispatch(newSeqEvent(typeGamma, 2)))
	assert.EqualValues(t, 2, r.unheard.Load())
	assert.True(t, r.silence.Contains(typeGamma))
}

func TestListenerRegistry_PanicIsolated(t *testing.T) {
	r := newTestRegistry()
	var after int

	require.True(t, r.Add(typeAlpha, r.IssueListenerID(), func(event.Eventer) { panic("boom") }))
	require.True(t, r.Add(typeAlpha, r.IssueListenerID(), func(event.Eventer) { after++ }))

	assert.NotPanics(t, func() {
		assert.Equal(t, 1, r.Dispatch(newSeqEvent(typeAlpha, 0)))
	})
	assert.Equal(t, 1, after)
	assert.EqualValues(t, 1, r.panicked.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.ListenerFailures.WithLabelValues("panic")))
}

func TestListenerRegistry_CallbackMayMutateRegistry(t *testing.T) {
	r := newTestRegistry()
	self := r.IssueListenerID()
	late := r.IssueListenerID()
	var lateCalls int

	require.True(t, r.Add(typeAlpha, self, func(event.Eventer) {
		r.Remove(typeAlpha, self)
		r.Add(typeAlpha, late, func(event.Eventer) { lateCalls++ })
	}))

	assert.Equal(t, 1, r.Dispatch(newSeqEvent(typeAlpha, 0)))
	assert.Equal(t, 0, lateCalls, "registrations made during a dispatch apply to the next one")
	assert.Equal(t, 1, r.CountFor(typeAlpha))

	r.Dispatch(newSeqEvent(typeAlpha, 1))
	assert.Equal(t, 1, lateCalls)
}

func TestListenerRegistry_NoEmptyKeys(t *testing.T) {
	types := []event.EventTypeID{typeAlpha, typeBeta, typeGamma}

	rapid.Check(t, func(t *rapid.T) {
		r := newTestRegistry()
		ids := []ListenerID{r.IssueListenerID(), r.IssueListenerID(), r.IssueListenerID()}
		model := map[event.EventTypeID]map[ListenerID]bool{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := range steps {
			typeID := rapid.SampledFrom(types).Draw(t, "type")
			id := rapid.SampledFrom(ids).Draw(t, "listener")
			add := rapid.Bool().Draw(t, "add")

			if add {
				want := !model[typeID][id]
				if got := r.Add(typeID, id, func(event.Eventer) {}); got != want {
					t.Fatalf("step %d: Add(%s, %d) = %v, want %v", i, typeID, id, got, want)
				}
				if model[typeID] == nil {
					model[typeID] = map[ListenerID]bool{}
				}
				model[typeID][id] = true
			} else {
				want := model[typeID][id]
				if got := r.Remove(typeID, id); got != want {
					t.Fatalf("step %d: Remove(%s, %d) = %v, want %v", i, typeID, id, got, want)
				}
				delete(model[typeID], id)
				if len(model[typeID]) == 0 {
					delete(model, typeID)
				}
			}

			snap := r.Snapshot()
			for typeID, n := range snap {
				if n == 0 {
					t.Fatalf("step %d: type %s kept with no listeners", i, typeID)
				}
			}
			if len(snap) != len(model) {
				t.Fatalf("step %d: %d types registered, want %d", i, len(snap), len(model))
			}
			for typeID, set := range model {
				if snap[typeID] != len(set) {
					t.Fatalf("step %d: type %s has %d listeners, want %d", i, typeID, snap[typeID], len(set))
				}
			}
		}
	})
}
