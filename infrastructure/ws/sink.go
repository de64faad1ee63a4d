package ws

import (
	"context"
	"log/slog"

	"doclink/domain/event"
)

// Sink is one connection's delivery channel. The fanout goroutine hands
// events over; the connection's write pump drains them. When the buffer is
// full the event is dropped rather than stalling the pipeline - live
// delivery is best effort on top of the durable store.
type Sink struct {
	Events chan event.DomainEvent
	log    *slog.Logger
}

func NewSink(log *slog.Logger, bufferSize int) *Sink {
	return &Sink{
		Events: make(chan event.DomainEvent, bufferSize),
		log:    log,
	}
}

func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.log.Debug("Connection buffer full, event dropped", "event", e.Name())
		return nil
	}
}
