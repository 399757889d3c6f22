package dto

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/webitel/event-broker/internal/domain/event"
)

const maxKeyLength = 16

var ErrEmptyKey = errors.New("input command: empty key")

// [INGRESS_V1] payload published on the input command topic
type InputCommandV1 struct {
	Key     string `json:"key"`
	TraceID string `json:"trace_id,omitempty"`
}

// Validate trims and bounds the key name.
func (d *InputCommandV1) Validate() error {
	d.Key = strings.TrimSpace(d.Key)
	if d.Key == "" {
		return ErrEmptyKey
	}
	if n := utf8.RuneCountInString(d.Key); n > maxKeyLength {
		return fmt.Errorf("input command: key has %d runes, max %d", n, maxKeyLength)
	}
	return nil
}

func (d *InputCommandV1) ToDomain() *event.InputCommandEvent {
	return event.NewInputCommandEvent(strings.ToUpper(d.Key))
}
