package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"doclink/domain"
	"doclink/domain/event"
	"doclink/errors"
	"doclink/mocks"
	"doclink/runtime"
)

func newChatService(t *testing.T) (*ChatService, *runtime.Registry, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(slog.Default(), registry,
		mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIConnectionGraph(ctrl),
		nil, 2000)
	return NewChatService(slog.Default(), registry, dispatcher), registry, ctrl
}

func TestChatService_ConnectAnnouncesOnline(t *testing.T) {
	req := require.New(t)
	svc, registry, ctrl := newChatService(t)

	// Given bob already connected and listening. Nobody else is online so
	// his own connect broadcasts to no one.
	var observed event.DomainEvent
	bobSink := mocks.NewMockEventSink(ctrl)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			observed = e
			return nil
		})
	svc.Connect(context.Background(), "bob", bobSink)

	// When alice connects
	h := svc.Connect(context.Background(), "alice", mocks.NewMockEventSink(ctrl))

	// Then bob hears the online announcement, alice does not hear her own
	req.Equal("userOnline", observed.Name())
	req.True(registry.IsOnline("alice"))
	req.Equal("alice", h.Identity)
}

// svcConnectSilently registers a connection without asserting the presence
// broadcast it triggers.
func svcConnectSilently(svc *ChatService, _ *runtime.Registry, identity string, sink *mocks.MockEventSink) *domain.Handle {
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	return svc.Connect(context.Background(), identity, sink)
}

func TestChatService_DisconnectAnnouncesOffline(t *testing.T) {
	req := require.New(t)
	svc, registry, ctrl := newChatService(t)

	var observed event.DomainEvent
	aliceSink := mocks.NewMockEventSink(ctrl)
	aliceSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			observed = e
			return nil
		}).AnyTimes()
	alice := svc.Connect(context.Background(), "alice", aliceSink)
	_ = alice

	bobSink := mocks.NewMockEventSink(ctrl)
	bob := svc.Connect(context.Background(), "bob", bobSink)

	svc.Disconnect(context.Background(), bob)

	req.Equal("userOffline", observed.Name())
	req.False(registry.IsOnline("bob"))
}

func TestChatService_StaleDisconnectStaysSilent(t *testing.T) {
	req := require.New(t)
	svc, registry, ctrl := newChatService(t)

	// Given a reconnect: the second handle replaced the first
	first := svcConnectSilently(svc, registry, "alice", mocks.NewMockEventSink(ctrl))

	var heard []string
	observerSink := mocks.NewMockEventSink(ctrl)
	observerSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			heard = append(heard, e.Name())
			return nil
		}).AnyTimes()
	svc.Connect(context.Background(), "observer", observerSink)

	secondSink := mocks.NewMockEventSink(ctrl)
	secondSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	svc.Connect(context.Background(), "alice", secondSink)

	// When the replaced connection finally goes away, nobody is told
	// alice went offline: her newer connection is still live.
	svc.Disconnect(context.Background(), first)

	req.True(registry.IsOnline("alice"))
	req.NotContains(heard, "userOffline")
}

func TestChatService_JoinRoomRequiresMembership(t *testing.T) {
	req := require.New(t)
	svc, registry, ctrl := newChatService(t)

	h := svcConnectSilently(svc, registry, "alice", mocks.NewMockEventSink(ctrl))

	roomID, err := domain.NewRoomID("alice", "bob")
	req.NoError(err)
	req.NoError(svc.JoinRoom(h, roomID))
	req.True(registry.InRoom(h.ID, roomID))

	// A room between two other users is off limits
	foreign, err := domain.NewRoomID("bob", "carol")
	req.NoError(err)
	req.ErrorIs(svc.JoinRoom(h, foreign), errors.ErrRoomForbidden)
	req.False(registry.InRoom(h.ID, foreign))
}

func TestChatService_LeaveRoom(t *testing.T) {
	req := require.New(t)
	svc, registry, ctrl := newChatService(t)

	h := svcConnectSilently(svc, registry, "alice", mocks.NewMockEventSink(ctrl))
	roomID := domain.RoomID("chat_alice_bob")

	req.NoError(svc.JoinRoom(h, roomID))
	svc.LeaveRoom(h, roomID)
	req.False(registry.InRoom(h.ID, roomID))
}
