// Package event defines the domain events emitted towards live connections.
// Event names are the server-to-client names of the wire protocol.
package event

import (
	"doclink/domain"
)

type DomainEvent interface {
	// Name is the wire event name delivered to clients.
	Name() string
}

// RoomScoped events are fanned out to the members of a single room.
// Non room-scoped events (presence) broadcast to every live connection.
type RoomScoped interface {
	DomainEvent
	RoomID() domain.RoomID
}

// MessageDelivered carries a persisted message into its room.
// Emitted only after the durable write succeeded.
type MessageDelivered struct {
	Message domain.Message
}

func (e MessageDelivered) Name() string { return "newMessage" }

func (e MessageDelivered) RoomID() domain.RoomID {
	// The pair was validated before the message was persisted.
	id, _ := domain.NewRoomID(e.Message.SenderID, e.Message.RecipientID)
	return id
}

// MessageAccepted is the delivery confirmation echoed to the sender's own
// connection once the message is durably recorded.
type MessageAccepted struct {
	Message domain.Message
}

func (e MessageAccepted) Name() string { return "messageSent" }

// DispatchFailed reports a send failure to the originating connection only.
type DispatchFailed struct {
	Code   string
	Reason string
}

func (e DispatchFailed) Name() string { return "messageError" }

// PresenceChanged is broadcast to all other live connections when an
// identity comes online or goes offline.
type PresenceChanged struct {
	UserID string
	Online bool
}

func (e PresenceChanged) Name() string {
	if e.Online {
		return "userOnline"
	}
	return "userOffline"
}

// TypingChanged is a transient, non-persisted signal relayed to the other
// members of a room. Loss or duplication has no correctness impact.
type TypingChanged struct {
	Room   domain.RoomID
	UserID string
	Typing bool
}

func (e TypingChanged) Name() string {
	if e.Typing {
		return "userTyping"
	}
	return "userStoppedTyping"
}

func (e TypingChanged) RoomID() domain.RoomID { return e.Room }
