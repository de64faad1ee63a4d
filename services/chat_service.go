//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"doclink/contract"
	"doclink/domain"
	"doclink/errors"
	"doclink/runtime"
)

// IChatService is the live-connection facade: the connection lifecycle and
// every operation an active handle may perform.
type IChatService interface {
	Connect(ctx context.Context, identity string, sink contract.EventSink) *domain.Handle
	Disconnect(ctx context.Context, h *domain.Handle)
	JoinRoom(h *domain.Handle, roomID domain.RoomID) error
	LeaveRoom(h *domain.Handle, roomID domain.RoomID)
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	Typing(ctx context.Context, h *domain.Handle, roomID domain.RoomID, typing bool)
}

type ChatService struct {
	log        *slog.Logger
	registry   contract.IRegistry
	dispatcher *runtime.Dispatcher
}

func NewChatService(log *slog.Logger, registry contract.IRegistry, dispatcher *runtime.Dispatcher) *ChatService {
	return &ChatService{log: log, registry: registry, dispatcher: dispatcher}
}

// Connect registers an authenticated connection as the identity's current
// presence entry and announces it to everyone else. Authentication itself
// happened at the transport handshake; by the time a handle exists the
// identity is trusted.
func (s *ChatService) Connect(ctx context.Context, identity string, sink contract.EventSink) *domain.Handle {
	h := domain.NewHandle(identity)
	s.registry.Register(h, sink)
	s.dispatcher.BroadcastPresence(ctx, h, true)
	s.log.Info("Connection registered", "identity", identity, "handle", h.ID)
	return h
}

// Disconnect tears a handle down: room memberships and the session go
// unconditionally, but the offline broadcast is suppressed when a newer
// connection for the same identity has already taken over the presence
// entry - other clients must not be told a user left who is still here.
func (s *ChatService) Disconnect(ctx context.Context, h *domain.Handle) {
	wasCurrent := s.registry.Deregister(h)
	if wasCurrent {
		s.dispatcher.BroadcastPresence(ctx, h, false)
	}
	s.log.Info("Connection released", "identity", h.Identity, "handle", h.ID, "was_current", wasCurrent)
}

// JoinRoom subscribes the handle to a room it is entitled to: the handle's
// identity must be one of the room's two participants.
func (s *ChatService) JoinRoom(h *domain.Handle, roomID domain.RoomID) error {
	if !roomID.Contains(h.Identity) {
		return errors.ErrRoomForbidden
	}
	s.registry.Join(h, roomID)
	return nil
}

func (s *ChatService) LeaveRoom(h *domain.Handle, roomID domain.RoomID) {
	s.registry.Leave(h, roomID)
}

func (s *ChatService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.dispatcher.Send(ctx, cmd)
}

func (s *ChatService) Typing(ctx context.Context, h *domain.Handle, roomID domain.RoomID, typing bool) {
	s.dispatcher.NotifyTyping(ctx, h, roomID, typing)
}
