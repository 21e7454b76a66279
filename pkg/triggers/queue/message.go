package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Stream entry fields.
const (
	FieldEvent   = "event"
	FieldPayload = "payload"
)

var ErrMissingEvent = errors.New("stream entry has no event name")

// Message is one decoded stream entry.
type Message struct {
	ID      string
	Event   string
	Payload any
}

// DecodeMessage reads the event name and payload of a stream entry.
// A payload that is not valid JSON is passed through as a string.
func DecodeMessage(id string, values map[string]any) (*Message, error) {
	event, _ := values[FieldEvent].(string)
	if event == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingEvent, id)
	}

	message := &Message{ID: id, Event: event, Payload: map[string]any{}}

	raw, ok := values[FieldPayload].(string)
	if !ok || raw == "" {
		return message, nil
	}

	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		message.Payload = raw

		return message, nil
	}

	message.Payload = payload

	return message, nil
}

// EncodeMessage builds stream entry values for event and payload.
func EncodeMessage(event string, payload any) (map[string]any, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return map[string]any{FieldEvent: event, FieldPayload: string(encoded)}, nil
}
