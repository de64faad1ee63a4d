//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"doclink/domain"
	"doclink/domain/event"
)

// EventSink is the delivery end of one live connection (or any other
// in-process consumer, such as the search indexer). Consume must not block
// indefinitely: slow consumers drop rather than stall the pipeline.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the process-wide presence and room-membership directory.
// Presence follows last-connected-wins semantics: registering a new handle
// for an identity replaces the entry, and a deregistration only removes the
// entry when it still belongs to the deregistering handle.
type IRegistry interface {
	Register(h *domain.Handle, sink EventSink)
	// Deregister reports whether the handle was still the identity's current
	// entry. A stale handle's deregistration is a no-op on presence.
	Deregister(h *domain.Handle) bool
	IsOnline(identity string) bool
	HandleFor(identity string) (*domain.Handle, bool)

	Join(h *domain.Handle, roomID domain.RoomID)
	Leave(h *domain.Handle, roomID domain.RoomID)
	InRoom(handleID string, roomID domain.RoomID) bool

	SinksForRoom(roomID domain.RoomID) []EventSink
	SinksForRoomExcept(roomID domain.RoomID, handleID string) []EventSink
	SinksExcept(handleID string) []EventSink
}

// IMessageRepository is the persistence gateway for messages. Records are
// immutable apart from the monotonic unread->read transition.
type IMessageRepository interface {
	StoreMessage(m domain.Message) error
	History(userID, partnerID string, cursor *string) ([]domain.Message, *string, error)
	Conversations(userID string) ([]domain.Conversation, error)
	// MarkConversationRead flips every unread partner->user message to read,
	// stamping readAt, and returns how many records transitioned.
	MarkConversationRead(userID, partnerID string, at time.Time) (int, error)
	UnreadCount(userID string) (int, error)
}

// IConnectionGraph answers whether two identities are permitted to exchange
// messages. Lookup failure is a store error, never "not authorized".
type IConnectionGraph interface {
	IsConnected(a, b string) (bool, error)
}

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (domain.User, error)
}

type WorkerName string

// Worker doesn't protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without manual naming in the interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
