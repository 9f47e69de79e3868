// Package kafka moves code deliveries through a Kafka topic so a separate worker can send
// them. Payloads carry the plaintext code; the topic must be access-controlled accordingly.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"otp-ceremony/backend/internal/notify"
)

const payloadVersion = 1

// ErrInvalidPayload is returned by Decode for payloads that cannot be delivered.
var ErrInvalidPayload = errors.New("kafka: invalid delivery payload")

type payload struct {
	Version int `json:"v"`
	notify.Message
}

// Encode serializes msg for the delivery topic.
func Encode(msg notify.Message) ([]byte, error) {
	return json.Marshal(payload{Version: payloadVersion, Message: msg})
}

// Decode parses a delivery payload. Unknown versions and messages without a subject or
// code are rejected.
func Decode(b []byte) (notify.Message, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return notify.Message{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Version != payloadVersion {
		return notify.Message{}, fmt.Errorf("%w: version %d", ErrInvalidPayload, p.Version)
	}
	if p.Subject == "" || p.Code == "" {
		return notify.Message{}, fmt.Errorf("%w: missing subject or code", ErrInvalidPayload)
	}
	return p.Message, nil
}
