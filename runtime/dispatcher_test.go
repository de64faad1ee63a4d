package runtime

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"doclink/domain"
	"doclink/domain/event"
	"doclink/errors"
	"doclink/mocks"
	"doclink/moderation"
)

const maxContentLength = 2000

func newTestDispatcher(t *testing.T) (*Dispatcher, *mocks.MockIRegistry, *mocks.MockIMessageRepository, *mocks.MockIConnectionGraph) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	registry := mocks.NewMockIRegistry(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	graph := mocks.NewMockIConnectionGraph(ctrl)
	d := NewDispatcher(slog.Default(), registry, messages, graph, nil, maxContentLength)
	return d, registry, messages, graph
}

func TestDispatcher_Send_RejectsEmptyContent(t *testing.T) {
	req := require.New(t)
	d, _, _, _ := newTestDispatcher(t)

	// Whitespace-only content is empty after trimming
	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "   \n\t ",
	})
	req.ErrorIs(err, errors.ErrEmptyContent)
}

func TestDispatcher_Send_ContentLengthBoundary(t *testing.T) {
	req := require.New(t)

	t.Run("one rune over the limit is rejected before any lookup", func(t *testing.T) {
		d, _, _, _ := newTestDispatcher(t)
		_, err := d.Send(context.Background(), domain.SendMessageCommand{
			SenderID: "alice", RecipientID: "bob",
			Content: strings.Repeat("é", maxContentLength+1),
		})
		req.ErrorIs(err, errors.ErrContentTooLong)
	})

	t.Run("exactly at the limit passes validation", func(t *testing.T) {
		d, registry, messages, graph := newTestDispatcher(t)
		// Multi-byte runes count as one character each
		content := strings.Repeat("é", maxContentLength)

		graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)
		messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
		registry.EXPECT().SinksForRoom(domain.RoomID("chat_alice_bob")).Return(nil)

		msg, err := d.Send(context.Background(), domain.SendMessageCommand{
			SenderID: "alice", RecipientID: "bob", Content: content,
		})
		req.NoError(err)
		req.Equal(content, msg.Content)
	})
}

func TestDispatcher_Send_SelfPairRejected(t *testing.T) {
	req := require.New(t)
	d, _, _, _ := newTestDispatcher(t)

	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "alice", Content: "hello me",
	})
	req.ErrorIs(err, errors.ErrSelfPair)
}

func TestDispatcher_Send_UnconnectedPairNeverPersists(t *testing.T) {
	req := require.New(t)
	d, _, messages, graph := newTestDispatcher(t)

	graph.EXPECT().IsConnected("alice", "bob").Return(false, nil)
	// StoreMessage must not be called: no expectation is set
	messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.ErrorIs(err, errors.ErrNotConnected)
}

func TestDispatcher_Send_GraphFailureIsStoreErrorNotDenial(t *testing.T) {
	req := require.New(t)
	d, _, _, graph := newTestDispatcher(t)

	graph.EXPECT().IsConnected("alice", "bob").Return(false, context.DeadlineExceeded)

	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.ErrorIs(err, errors.ErrStoreUnavailable)
	req.NotErrorIs(err, errors.ErrNotConnected)
}

func TestDispatcher_Send_PersistenceFailureStopsDelivery(t *testing.T) {
	req := require.New(t)
	d, registry, messages, graph := newTestDispatcher(t)

	graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(context.DeadlineExceeded)
	registry.EXPECT().SinksForRoom(gomock.Any()).Times(0)

	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.ErrorIs(err, errors.ErrStoreUnavailable)
}

func TestDispatcher_Send_FanoutIncludesSenderConnection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Given a real registry with both participants in the room
	registry := NewRegistry()
	alice := domain.NewHandle("alice")
	bob := domain.NewHandle("bob")
	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	registry.Register(alice, aliceSink)
	registry.Register(bob, bobSink)
	registry.Join(alice, "chat_alice_bob")
	registry.Join(bob, "chat_alice_bob")

	messages := mocks.NewMockIMessageRepository(ctrl)
	graph := mocks.NewMockIConnectionGraph(ctrl)
	graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)

	// Then both room members receive the delivery, the sender included
	aliceSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageDelivered{})).Return(nil)
	bobSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageDelivered{})).Return(nil)

	d := NewDispatcher(slog.Default(), registry, messages, graph, nil, maxContentLength)
	msg, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.NoError(err)
	req.Equal("alice", msg.SenderID)
	req.False(msg.Read)
	req.False(msg.CreatedAt.IsZero())
}

func TestDispatcher_Send_OfflineRecipientStillPersists(t *testing.T) {
	req := require.New(t)
	d, registry, messages, graph := newTestDispatcher(t)

	graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	// Empty room: nobody is live, the message waits in the store
	registry.EXPECT().SinksForRoom(domain.RoomID("chat_alice_bob")).Return(nil)

	msg, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.NoError(err)
	req.NotEqual("", msg.ID.String())
}

func TestDispatcher_Send_ModerationMasksBeforePersist(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	moderator, err := moderation.NewModerator([]string{"scam"}, '*')
	req.NoError(err)

	registry := mocks.NewMockIRegistry(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	graph := mocks.NewMockIConnectionGraph(ctrl)
	graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)

	var stored domain.Message
	messages.EXPECT().StoreMessage(gomock.Any()).
		DoAndReturn(func(m domain.Message) error {
			stored = m
			return nil
		})
	registry.EXPECT().SinksForRoom(gomock.Any()).Return(nil)

	d := NewDispatcher(slog.Default(), registry, messages, graph, &moderator, maxContentLength)
	msg, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "this is a scam offer",
	})
	req.NoError(err)

	// The durable record and the returned message agree on masked content
	req.NotContains(stored.Content, "scam")
	req.Equal(stored.Content, msg.Content)
}

func TestDispatcher_Send_PermanentSinksObserveEveryDelivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	graph := mocks.NewMockIConnectionGraph(ctrl)
	permanent := mocks.NewMockEventSink(ctrl)

	graph.EXPECT().IsConnected("alice", "bob").Return(true, nil)
	messages.EXPECT().StoreMessage(gomock.Any()).Return(nil)
	permanent.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageDelivered{})).Return(nil)
	registry.EXPECT().SinksForRoom(gomock.Any()).Return(nil)

	d := NewDispatcher(slog.Default(), registry, messages, graph, nil, maxContentLength)
	d.Add(permanent)

	_, err := d.Send(context.Background(), domain.SendMessageCommand{
		SenderID: "alice", RecipientID: "bob", Content: "hello",
	})
	req.NoError(err)
}

func TestDispatcher_NotifyTyping_NonMemberIsSilent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockIRegistry(ctrl)
	h := domain.NewHandle("alice")
	registry.EXPECT().InRoom(h.ID, domain.RoomID("chat_alice_bob")).Return(false)
	registry.EXPECT().SinksForRoomExcept(gomock.Any(), gomock.Any()).Times(0)

	d := NewDispatcher(slog.Default(), registry,
		mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIConnectionGraph(ctrl),
		nil, maxContentLength)
	d.NotifyTyping(context.Background(), h, "chat_alice_bob", true)
}

func TestDispatcher_NotifyTyping_ExcludesSignalingConnection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	alice := domain.NewHandle("alice")
	bob := domain.NewHandle("bob")
	aliceSink := mocks.NewMockEventSink(ctrl)
	bobSink := mocks.NewMockEventSink(ctrl)
	registry.Register(alice, aliceSink)
	registry.Register(bob, bobSink)
	registry.Join(alice, "chat_alice_bob")
	registry.Join(bob, "chat_alice_bob")

	// Only the partner hears the typing signal
	var relayed event.DomainEvent
	bobSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.DomainEvent) error {
			relayed = e
			return nil
		}).
		Times(2)

	d := NewDispatcher(slog.Default(), registry,
		mocks.NewMockIMessageRepository(ctrl), mocks.NewMockIConnectionGraph(ctrl),
		nil, maxContentLength)
	d.NotifyTyping(context.Background(), alice, "chat_alice_bob", true)

	req.Equal("userTyping", relayed.Name())

	d.NotifyTyping(context.Background(), alice, "chat_alice_bob", false)
	req.Equal("userStoppedTyping", relayed.Name())
}
