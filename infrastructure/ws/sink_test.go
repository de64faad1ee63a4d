package ws

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"doclink/domain/event"
)

func TestSink_BuffersEvents(t *testing.T) {
	req := require.New(t)
	sink := NewSink(slog.Default(), 2)

	evt := event.PresenceChanged{UserID: "alice", Online: true}
	req.NoError(sink.Consume(context.Background(), evt))

	received := <-sink.Events
	req.Equal("userOnline", received.Name())
}

func TestSink_DropsWhenFull(t *testing.T) {
	req := require.New(t)
	sink := NewSink(slog.Default(), 1)

	first := event.PresenceChanged{UserID: "alice", Online: true}
	second := event.PresenceChanged{UserID: "bob", Online: true}

	// The second event is dropped silently: a slow connection must never
	// stall the fanout.
	req.NoError(sink.Consume(context.Background(), first))
	req.NoError(sink.Consume(context.Background(), second))

	req.Len(sink.Events, 1)
	received := <-sink.Events
	req.Equal(event.DomainEvent(first), received)
}

func TestSink_CanceledContextWithFullBuffer(t *testing.T) {
	req := require.New(t)
	sink := NewSink(slog.Default(), 1)

	req.NoError(sink.Consume(context.Background(), event.PresenceChanged{UserID: "alice", Online: true}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Buffer full and consumer gone: the cancellation surfaces instead of
	// a silent drop.
	err := sink.Consume(ctx, event.PresenceChanged{UserID: "bob", Online: true})
	req.ErrorIs(err, context.Canceled)
}
