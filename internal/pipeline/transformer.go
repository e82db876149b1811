// Package pipeline contains the Pub/Sub processing stages that turn push requests into FCM deliveries.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/message"
)

// PushRequest asks for Message to be delivered to every device of RecipientID.
// Message is a template; the processor sets the device token per delivery.
type PushRequest struct {
	RecipientID urn.URN
	Message     *message.Message
}

type pushRequestJSON struct {
	RecipientID string           `json:"recipient_id"`
	Message     *message.Message `json:"message"`
}

func (r *PushRequest) UnmarshalJSON(data []byte) error {
	var raw pushRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	recipient, err := urn.Parse(raw.RecipientID)
	if err != nil {
		return fmt.Errorf("invalid recipient_id: %w", err)
	}
	if raw.Message == nil {
		return errors.New("message is required")
	}
	if raw.Message.HasTarget() {
		return errors.New("message must not carry a token, topic or condition")
	}
	r.RecipientID = recipient
	r.Message = raw.Message
	return nil
}

func (r PushRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(pushRequestJSON{RecipientID: r.RecipientID.String(), Message: r.Message})
}

// PushRequestTransformer decodes and validates a raw payload. Invalid payloads are reported
// with skip=true so the StreamingService can Nack them towards the dead-letter topic.
func PushRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*PushRequest, bool, error) {
	var req PushRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal push request from message %s: %w", msg.ID, err)
	}
	return &req, false, nil
}
