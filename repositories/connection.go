package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"doclink/errors"
)

// ConnectionRepository is the badger-backed adapter behind the external
// authorization hook: it records which identity pairs are connected on the
// platform and therefore allowed to exchange messages. The relationship
// workflow itself (requests, approvals) lives outside this subsystem.
type ConnectionRepository struct {
	db *badger.DB
}

func NewConnectionRepository(db *badger.DB) ConnectionRepository {
	return ConnectionRepository{db: db}
}

type connectionRecord struct {
	Since time.Time `json:"since"`
}

// pairKey is order-independent, like room ids: same two identities, same key.
func pairKey(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", errors.ErrEmptyIdentity
	}
	if a == b {
		return "", errors.ErrSelfPair
	}
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("connected:%s:%s", a, b), nil
}

func (c ConnectionRepository) Connect(a, b string) error {
	key, err := pairKey(a, b)
	if err != nil {
		return err
	}
	data, err := json.Marshal(connectionRecord{Since: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		// Idempotent: reconnecting an already connected pair keeps the
		// original timestamp.
		if _, err := txn.Get([]byte(key)); err == nil {
			return nil
		}
		return txn.Set([]byte(key), data)
	})
}

func (c ConnectionRepository) Disconnect(a, b string) error {
	key, err := pairKey(a, b)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// IsConnected answers the authorization question for a pair of identities.
// A missing record means "not connected"; any other store failure is
// surfaced so callers never mistake an outage for a denial.
func (c ConnectionRepository) IsConnected(a, b string) (bool, error) {
	key, err := pairKey(a, b)
	if err != nil {
		return false, err
	}
	connected := false
	err = c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		connected = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return connected, nil
}
