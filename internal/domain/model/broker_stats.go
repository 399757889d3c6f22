package model

import "time"

// BrokerStats is a point-in-time view of the broker for operator surfaces.
type BrokerStats struct {
	QueueLength int            `json:"queue_length"`
	Listeners   map[string]int `json:"listeners"`
	Dispatch    DispatchStats  `json:"dispatch"`
	LastDrain   *DrainStats    `json:"last_drain,omitempty"`
}

// DispatchStats holds cumulative counters since the broker was constructed.
type DispatchStats struct {
	Triggered   uint64 `json:"triggered"`
	Unheard     uint64 `json:"unheard"`
	Delivered   uint64 `json:"delivered"`
	Panicked    uint64 `json:"panicked"`
	Quarantined uint64 `json:"quarantined"`
	Queued      uint64 `json:"queued"`
	Drained     uint64 `json:"drained"`
	DrainPasses uint64 `json:"drain_passes"`
}

// DrainStats describes one time-boxed drain pass.
type DrainStats struct {
	Processed int           `json:"processed"`
	Remaining int           `json:"remaining"`
	Budget    time.Duration `json:"budget"`
	Elapsed   time.Duration `json:"elapsed"`
	// Overrun is how far Elapsed went past Budget; bounded by one event's dispatch cost.
	Overrun time.Duration `json:"overrun"`
}
