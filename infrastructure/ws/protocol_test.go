package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"doclink/domain"
	"doclink/domain/event"
)

func TestDecodePayload(t *testing.T) {
	t.Run("valid sendMessage payload", func(t *testing.T) {
		req := require.New(t)
		payload, err := decodePayload[SendMessagePayload](json.RawMessage(
			`{"recipient":"bob","content":"hello"}`,
		))
		req.NoError(err)
		req.Equal("bob", payload.Recipient)
		req.Equal("hello", payload.Content)
	})

	t.Run("missing required field fails validation", func(t *testing.T) {
		_, err := decodePayload[SendMessagePayload](json.RawMessage(`{"recipient":"bob"}`))
		require.Error(t, err)
	})

	t.Run("absent payload is rejected", func(t *testing.T) {
		_, err := decodePayload[JoinRoomPayload](nil)
		require.Error(t, err)
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		_, err := decodePayload[TypingPayload](json.RawMessage(`{not json`))
		require.Error(t, err)
	})
}

func TestEncodeEvent_WireNames(t *testing.T) {
	req := require.New(t)

	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    "alice",
		RecipientID: "bob",
		Content:     "hello",
		CreatedAt:   time.Now().UTC(),
	}

	tests := []struct {
		event     event.DomainEvent
		wireEvent string
	}{
		{event.MessageDelivered{Message: msg}, "newMessage"},
		{event.MessageAccepted{Message: msg}, "messageSent"},
		{event.DispatchFailed{Code: "VALIDATION_ERROR", Reason: "too long"}, "messageError"},
		{event.PresenceChanged{UserID: "alice", Online: true}, "userOnline"},
		{event.PresenceChanged{UserID: "alice", Online: false}, "userOffline"},
		{event.TypingChanged{Room: "chat_alice_bob", UserID: "alice", Typing: true}, "userTyping"},
		{event.TypingChanged{Room: "chat_alice_bob", UserID: "alice", Typing: false}, "userStoppedTyping"},
	}

	for _, tt := range tests {
		raw, err := encodeEvent(tt.event)
		req.NoError(err)

		var envelope Envelope
		req.NoError(json.Unmarshal(raw, &envelope))
		req.Equal(tt.wireEvent, envelope.Event)
		req.NotEmpty(envelope.Payload)
	}
}

func TestEncodeEvent_MessagePayloadShape(t *testing.T) {
	req := require.New(t)

	msg := domain.Message{
		ID:          uuid.New(),
		SenderID:    "alice",
		RecipientID: "bob",
		Content:     "hello",
		CreatedAt:   time.Now().UTC(),
	}

	raw, err := encodeEvent(event.MessageDelivered{Message: msg})
	req.NoError(err)

	var envelope Envelope
	req.NoError(json.Unmarshal(raw, &envelope))

	var decoded struct {
		ID          string `json:"id"`
		SenderID    string `json:"senderId"`
		RecipientID string `json:"recipientId"`
		Content     string `json:"content"`
		Read        bool   `json:"read"`
	}
	req.NoError(json.Unmarshal(envelope.Payload, &decoded))
	req.Equal(msg.ID.String(), decoded.ID)
	req.Equal("alice", decoded.SenderID)
	req.Equal("bob", decoded.RecipientID)
	req.Equal("hello", decoded.Content)
	req.False(decoded.Read)
}

func TestEncodeEvent_TypingPayloadShape(t *testing.T) {
	req := require.New(t)

	raw, err := encodeEvent(event.TypingChanged{Room: "chat_alice_bob", UserID: "alice", Typing: true})
	req.NoError(err)

	var envelope Envelope
	req.NoError(json.Unmarshal(raw, &envelope))

	var decoded typingPayload
	req.NoError(json.Unmarshal(envelope.Payload, &decoded))
	req.Equal("alice", decoded.UserID)
	req.Equal("chat_alice_bob", decoded.RoomID)
	req.True(decoded.IsTyping)
}
