package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"doclink/domain"
)

// MessageRepository persists point-to-point messages in BadgerDB.
//
// Key layout:
//
//	msg:{roomID}:{timestamp_padded}:{uuid}  -> message record (JSON)
//	unread:{recipient}:{sender}:{uuid}      -> message key (read-state index)
//	conv:{user}:{partner}                   -> message key of the latest message
//
// The 19-digit zero-padded nanosecond timestamp makes lexicographic order
// chronological, and the trailing UUID disambiguates two messages landing
// on the same nanosecond.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// diskMessage is the stored representation of a domain.Message.
type diskMessage struct {
	ID        string     `json:"id"`
	Sender    string     `json:"sender"`
	Recipient string     `json:"recipient"`
	Content   string     `json:"content"`
	At        int64      `json:"at"` // unix nanoseconds
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

func messageKey(roomID domain.RoomID, m domain.Message) string {
	return fmt.Sprintf("msg:%s:%019d:%s", roomID, m.CreatedAt.UnixNano(), m.ID)
}

func unreadKey(m domain.Message) string {
	return fmt.Sprintf("unread:%s:%s:%s", m.RecipientID, m.SenderID, m.ID)
}

func convKey(user, partner string) string {
	return fmt.Sprintf("conv:%s:%s", user, partner)
}

// StoreMessage durably records a message and maintains the unread and
// conversation indexes in the same transaction. The message is stored as-is:
// the read flag must be false on creation and is owned by this layer afterwards.
func (m MessageRepository) StoreMessage(msg domain.Message) error {
	roomID, err := domain.NewRoomID(msg.SenderID, msg.RecipientID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return err
	}

	key := messageKey(roomID, msg)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		if err := txn.Set([]byte(unreadKey(msg)), []byte(key)); err != nil {
			return err
		}
		// Both participants point at the same latest record.
		if err := txn.Set([]byte(convKey(msg.SenderID, msg.RecipientID)), []byte(key)); err != nil {
			return err
		}
		return txn.Set([]byte(convKey(msg.RecipientID, msg.SenderID)), []byte(key))
	})
}

// History returns one page of the conversation between userID and partnerID,
// oldest to newest, plus a cursor addressing the next (older) page.
// Internally the scan walks backwards from the cursor so the most recent
// page comes first, exactly like a chat client paginates.
func (m MessageRepository) History(userID, partnerID string, cursor *string) ([]domain.Message, *string, error) {
	roomID, err := domain.NewRoomID(userID, partnerID)
	if err != nil {
		return nil, nil, err
	}

	var raw [][]byte
	var lastKey string
	err = m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// The cursor addresses the last row of the previous page; skip it.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(raw) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("History page limit of %d reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, b := range raw {
		msg, err := decodeMessage(b)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, msg)
	}

	// The reverse scan collected newest first; the caller wants oldest first.
	lo.Reverse(messages)
	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// Conversations recomputes the conversation list for an identity: distinct
// partners, each with the latest exchanged message and the number of unread
// messages from that partner, sorted by latest activity descending.
func (m MessageRepository) Conversations(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := convKey(userID, "")
		prefix := []byte(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			partner := string(item.Key()[len(prefixStr):])

			var msgKey []byte
			if err := item.Value(func(value []byte) error {
				msgKey = append([]byte(nil), value...)
				return nil
			}); err != nil {
				return err
			}

			last, err := readMessage(txn, msgKey)
			if err != nil {
				return err
			}

			unread, err := countPrefix(txn, fmt.Sprintf("unread:%s:%s:", userID, partner))
			if err != nil {
				return err
			}

			conversations = append(conversations, domain.Conversation{
				PartnerID:   partner,
				LastMessage: last,
				UnreadCount: unread,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})
	return conversations, nil
}

// MarkConversationRead transitions every unread partner->user message to
// read with the given timestamp. The transition is one-way: records already
// read are untouched, and the unread index rows are consumed atomically with
// the record updates.
func (m MessageRepository) MarkConversationRead(userID, partnerID string, at time.Time) (int, error) {
	marked := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("unread:%s:%s:", userID, partnerID)
		prefix := []byte(prefixStr)

		// Collect first, mutate after: badger iterators must not observe
		// writes made inside the same loop.
		type indexRow struct{ indexKey, msgKey []byte }
		var rows []indexRow

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			row := indexRow{indexKey: item.KeyCopy(nil)}
			if err := item.Value(func(value []byte) error {
				row.msgKey = append([]byte(nil), value...)
				return nil
			}); err != nil {
				it.Close()
				return err
			}
			rows = append(rows, row)
		}
		it.Close()

		for _, row := range rows {
			msg, err := readMessage(txn, row.msgKey)
			if err != nil {
				return err
			}
			if !msg.Read {
				msg.Read = true
				readAt := at
				msg.ReadAt = &readAt
				data, err := json.Marshal(fromDomain(msg))
				if err != nil {
					return err
				}
				if err := txn.Set(row.msgKey, data); err != nil {
					return err
				}
				marked++
			}
			if err := txn.Delete(row.indexKey); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// UnreadCount counts every unread message addressed to userID, all partners.
func (m MessageRepository) UnreadCount(userID string) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = countPrefix(txn, fmt.Sprintf("unread:%s:", userID))
		return err
	})
	return count, err
}

// CountForRoom counts the persisted messages of one room. Used by the
// inspection tooling and tests, not by the serving path.
func (m MessageRepository) CountForRoom(roomID domain.RoomID) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = countPrefix(txn, fmt.Sprintf("msg:%s:", roomID))
		return err
	})
	return count, err
}

func countPrefix(txn *badger.Txn, prefixStr string) (int, error) {
	prefix := []byte(prefixStr)
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count, nil
}

func readMessage(txn *badger.Txn, key []byte) (domain.Message, error) {
	item, err := txn.Get(key)
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	err = item.Value(func(value []byte) error {
		var innerErr error
		msg, innerErr = decodeMessage(value)
		return innerErr
	})
	return msg, err
}

func decodeMessage(data []byte) (domain.Message, error) {
	var dm diskMessage
	if err := json.Unmarshal(data, &dm); err != nil {
		return domain.Message{}, err
	}
	return toDomain(dm)
}

func fromDomain(msg domain.Message) diskMessage {
	return diskMessage{
		ID:        msg.ID.String(),
		Sender:    msg.SenderID,
		Recipient: msg.RecipientID,
		Content:   msg.Content,
		At:        msg.CreatedAt.UnixNano(),
		Read:      msg.Read,
		ReadAt:    msg.ReadAt,
	}
}

func toDomain(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          parsedID,
		SenderID:    dm.Sender,
		RecipientID: dm.Recipient,
		Content:     dm.Content,
		CreatedAt:   time.Unix(0, dm.At).UTC(),
		Read:        dm.Read,
		ReadAt:      dm.ReadAt,
	}, nil
}
