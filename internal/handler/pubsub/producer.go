package pubsub

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/webitel/event-broker/internal/service/dto"
)

// PublishInputCommand puts a key press on TopicInputCommands.
func PublishInputCommand(pub message.Publisher, key string) error {
	cmd := dto.InputCommandV1{Key: key, TraceID: uuid.NewString()}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("input command: marshal failure: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataTraceID, cmd.TraceID)

	if err := pub.Publish(TopicInputCommands, msg); err != nil {
		return fmt.Errorf("input command: failed to publish to topic %s: %w", TopicInputCommands, err)
	}
	return nil
}
