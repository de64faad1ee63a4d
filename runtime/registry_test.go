package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"doclink/domain"
	"doclink/mocks"
)

func TestRegistry_LastConnectedWins(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	// Given two successive connections for the same identity
	first := domain.NewHandle("alice")
	second := domain.NewHandle("alice")
	registry.Register(first, mocks.NewMockEventSink(ctrl))
	registry.Register(second, mocks.NewMockEventSink(ctrl))

	// Then the newest handle owns the presence entry
	req.True(registry.IsOnline("alice"))
	h, ok := registry.HandleFor("alice")
	req.True(ok)
	req.Equal(second.ID, h.ID)
}

func TestRegistry_StaleDeregistrationKeepsPresence(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	first := domain.NewHandle("alice")
	second := domain.NewHandle("alice")
	registry.Register(first, mocks.NewMockEventSink(ctrl))
	registry.Register(second, mocks.NewMockEventSink(ctrl))

	// When the replaced handle finally disconnects
	wasCurrent := registry.Deregister(first)

	// Then no offline announcement is due and the identity stays online
	req.False(wasCurrent)
	req.True(registry.IsOnline("alice"))

	// And the current handle's deregistration takes the identity offline
	wasCurrent = registry.Deregister(second)
	req.True(wasCurrent)
	req.False(registry.IsOnline("alice"))
}

func TestRegistry_JoinLeaveIdempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	h := domain.NewHandle("alice")
	registry.Register(h, mocks.NewMockEventSink(ctrl))
	roomID := domain.RoomID("chat_alice_bob")

	registry.Join(h, roomID)
	registry.Join(h, roomID)
	req.True(registry.InRoom(h.ID, roomID))
	req.Len(registry.SinksForRoom(roomID), 1)

	registry.Leave(h, roomID)
	registry.Leave(h, roomID)
	req.False(registry.InRoom(h.ID, roomID))
	req.Empty(registry.SinksForRoom(roomID))
}

func TestRegistry_JoinAfterDeregisterIsNoOp(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	h := domain.NewHandle("alice")
	registry.Register(h, mocks.NewMockEventSink(ctrl))
	registry.Deregister(h)

	// A join racing with disconnection must not resurrect membership
	registry.Join(h, "chat_alice_bob")
	req.False(registry.InRoom(h.ID, "chat_alice_bob"))
}

func TestRegistry_DeregisterClearsRoomMemberships(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	alice := domain.NewHandle("alice")
	bob := domain.NewHandle("bob")
	registry.Register(alice, mocks.NewMockEventSink(ctrl))
	registry.Register(bob, mocks.NewMockEventSink(ctrl))
	registry.Join(alice, "chat_alice_bob")
	registry.Join(bob, "chat_alice_bob")

	registry.Deregister(alice)

	req.False(registry.InRoom(alice.ID, "chat_alice_bob"))
	req.Len(registry.SinksForRoom("chat_alice_bob"), 1)
}

func TestRegistry_SinkSelection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	registry := NewRegistry()

	alice := domain.NewHandle("alice")
	bob := domain.NewHandle("bob")
	carol := domain.NewHandle("carol")
	registry.Register(alice, mocks.NewMockEventSink(ctrl))
	registry.Register(bob, mocks.NewMockEventSink(ctrl))
	registry.Register(carol, mocks.NewMockEventSink(ctrl))
	registry.Join(alice, "chat_alice_bob")
	registry.Join(bob, "chat_alice_bob")

	// Room fanout covers every member, including the sender's connection
	req.Len(registry.SinksForRoom("chat_alice_bob"), 2)

	// The typing relay excludes the signaling connection
	req.Len(registry.SinksForRoomExcept("chat_alice_bob", alice.ID), 1)

	// Presence broadcasts reach everyone but the affected connection
	req.Len(registry.SinksExcept(alice.ID), 2)
}
