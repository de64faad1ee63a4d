package search

import (
	"context"

	"doclink/domain/event"
)

// IndexSink adapts the Index to the permanent-sink seam of the dispatch
// pipeline: every persisted message is offered for indexing, whether or
// not anyone was in the room to receive it live.
type IndexSink struct {
	index *Index
}

func NewIndexSink(index *Index) *IndexSink {
	return &IndexSink{index: index}
}

func (s *IndexSink) Consume(_ context.Context, e event.DomainEvent) error {
	delivered, ok := e.(event.MessageDelivered)
	if !ok {
		return nil
	}
	return s.index.IndexMessage(delivered.Message)
}
