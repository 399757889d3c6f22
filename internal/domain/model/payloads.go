package model

import "time"

// InputCommandPayload is a key press reported by the window layer.
type InputCommandPayload struct {
	Key string `json:"key"`
}

// FramePayload accompanies the per-tick frame signal.
type FramePayload struct {
	Frame  uint64        `json:"frame"`
	Budget time.Duration `json:"budget"`
}

// QuarantinePayload reports a listener whose circuit breaker opened.
type QuarantinePayload struct {
	TypeID     uint32 `json:"type_id"`
	ListenerID int64  `json:"listener_id"`
	Failures   uint32 `json:"failures"`
}
