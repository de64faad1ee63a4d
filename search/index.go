// Package search maintains a full-text index over message content, fed by
// the dispatch pipeline and queried through the read-path API.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"doclink/domain"
)

// Index wraps a bluge writer over the message corpus. One document per
// message: content is text-searchable, the rest are stored keywords used
// to rebuild hits and to scope results to the caller's own rooms.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is a search result, a trimmed projection of the indexed message.
type Hit struct {
	MessageID string    `json:"messageId"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one message document. Indexing is best effort on
// top of the durable store: a failure here never fails the send.
func (i *Index) IndexMessage(m domain.Message) error {
	roomID, err := domain.NewRoomID(m.SenderID, m.RecipientID)
	if err != nil {
		return err
	}

	doc := bluge.NewDocument(m.ID.String()).
		AddField(bluge.NewTextField("content", m.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", string(roomID)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", m.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField("at", m.CreatedAt).StoreValue())

	return i.writer.Update(doc.ID(), doc)
}

// Search matches terms against message content and returns only hits from
// rooms the calling identity participates in. The room check happens on
// the stored room id, so a caller can never read across conversations. A
// non-empty room narrows results to that one conversation.
func (i *Index) Search(ctx context.Context, userID, terms string, room domain.RoomID, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewMatchQuery(terms).SetField("content")
	// Over-fetch so post-filtering by room still fills the page.
	request := bluge.NewTopNSearch(limit*4, query)

	iter, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iter.Next()
	for err == nil && match != nil {
		var hit Hit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "room":
				hit.RoomID = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "at":
				if t, terr := bluge.DecodeDateTime(value); terr == nil {
					hit.CreatedAt = t.UTC()
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}

		if domain.RoomID(hit.RoomID).Contains(userID) && (room == "" || domain.RoomID(hit.RoomID) == room) {
			hits = append(hits, hit)
			if len(hits) == limit {
				break
			}
		}
		match, err = iter.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
