// Package ws is the live-connection transport: one websocket per
// authenticated handle, JSON event envelopes both ways.
package ws

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"doclink/domain/event"
)

var validate = validator.New()

// Envelope frames every event in both directions:
// {"event": "<name>", "payload": {...}}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> server payload schemas. Payloads are validated before any
// business logic sees them; malformed frames earn a messageError and the
// connection stays up.

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type SendMessagePayload struct {
	Recipient string `json:"recipient" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type TypingPayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 {
		return payload, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("malformed payload: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// Server -> client payload shapes.

type presencePayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

type typingPayload struct {
	UserID   string `json:"userId"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// encodeEvent turns a domain event into its wire frame.
func encodeEvent(e event.DomainEvent) ([]byte, error) {
	var payload any
	switch evt := e.(type) {
	case event.MessageDelivered:
		payload = evt.Message
	case event.MessageAccepted:
		payload = evt.Message
	case event.DispatchFailed:
		payload = errorPayload{Error: evt.Code, Message: evt.Reason}
	case event.PresenceChanged:
		payload = presencePayload{UserID: evt.UserID, IsOnline: evt.Online}
	case event.TypingChanged:
		payload = typingPayload{UserID: evt.UserID, RoomID: string(evt.Room), IsTyping: evt.Typing}
	default:
		return nil, fmt.Errorf("no wire mapping for event %q", e.Name())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Payload: raw})
}
