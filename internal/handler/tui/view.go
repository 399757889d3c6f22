package tui

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/webitel/event-broker/internal/domain/model"
	"github.com/webitel/event-broker/internal/handler/marshaller"
)

// Sample is everything the dashboard draws in one refresh.
type Sample struct {
	Stats    model.BrokerStats
	Frame    uint64
	Budget   time.Duration
	Position model.Vec3
	Moves    uint64
	Recent   []marshaller.EventView
	Seen     uint64
}

// View is the terminal-independent rendering of a Sample.
type View struct {
	DrainPercent int
	DrainLabel   string
	Summary      string
	Listeners    []string
	Recent       []string
	Backlog      []float64
}

// History is a fixed-width window of queue lengths for the sparkline.
type History struct {
	width  int
	values []float64
}

func NewHistory(width int) *History {
	return &History{width: max(width, 1)}
}

func (h *History) Add(v float64) []float64 {
	h.values = append(h.values, v)
	if over := len(h.values) - h.width; over > 0 {
		h.values = slices.Delete(h.values, 0, over)
	}
	return slices.Clone(h.values)
}

// BuildView turns a sample into widget contents. Recent events are listed
// newest first.
func BuildView(s Sample, backlog []float64) View {
	v := View{
		DrainPercent: 100,
		DrainLabel:   "idle",
		Backlog:      backlog,
	}

	if d := s.Stats.LastDrain; d != nil {
		if total := d.Processed + d.Remaining; total > 0 {
			v.DrainPercent = d.Processed * 100 / total
		}
		v.DrainLabel = fmt.Sprintf("%d/%d in %s (overrun %s)",
			d.Processed, d.Processed+d.Remaining, d.Elapsed.Round(time.Microsecond), d.Overrun.Round(time.Microsecond))
	}

	ds := s.Stats.Dispatch
	v.Summary = fmt.Sprintf(
		"frame   %d\nbudget  %s\nqueue   %d\n\ntriggered %d  delivered %d\nqueued    %d  drained   %d\nunheard   %d  panicked  %d\nquarantined %d  tapped %d\n\nplayer  (%.2f, %.2f, %.2f)  moves %d",
		s.Frame, s.Budget, s.Stats.QueueLength,
		ds.Triggered, ds.Delivered,
		ds.Queued, ds.Drained,
		ds.Unheard, ds.Panicked,
		ds.Quarantined, s.Seen,
		s.Position.X, s.Position.Y, s.Position.Z, s.Moves,
	)

	types := make([]string, 0, len(s.Stats.Listeners))
	for id := range s.Stats.Listeners {
		types = append(types, id)
	}
	slices.SortFunc(types, cmp.Compare[string])
	for _, id := range types {
		v.Listeners = append(v.Listeners, fmt.Sprintf("%s  %d", id, s.Stats.Listeners[id]))
	}

	for _, ev := range slices.Backward(s.Recent) {
		v.Recent = append(v.Recent, fmt.Sprintf("%s  %-16s %s",
			ev.CreatedAt.Format("15:04:05.000"), ev.Name, ev.Type))
	}
	return v
}
