package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"doclink/errors"
)

func Test_Connect_And_IsConnected(t *testing.T) {
	req := require.New(t)
	repository := NewConnectionRepository(newTestDB(t))

	connected, err := repository.IsConnected("alice", "bob")
	req.NoError(err)
	req.False(connected)

	req.NoError(repository.Connect("alice", "bob"))

	// The relation is symmetric: order of the pair does not matter
	connected, err = repository.IsConnected("alice", "bob")
	req.NoError(err)
	req.True(connected)
	connected, err = repository.IsConnected("bob", "alice")
	req.NoError(err)
	req.True(connected)

	// Unrelated pairs stay unconnected
	connected, err = repository.IsConnected("alice", "carol")
	req.NoError(err)
	req.False(connected)
}

func Test_Connect_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewConnectionRepository(newTestDB(t))

	req.NoError(repository.Connect("alice", "bob"))
	req.NoError(repository.Connect("bob", "alice"))

	connected, err := repository.IsConnected("alice", "bob")
	req.NoError(err)
	req.True(connected)
}

func Test_Disconnect(t *testing.T) {
	req := require.New(t)
	repository := NewConnectionRepository(newTestDB(t))

	req.NoError(repository.Connect("alice", "bob"))
	req.NoError(repository.Disconnect("bob", "alice"))

	connected, err := repository.IsConnected("alice", "bob")
	req.NoError(err)
	req.False(connected)

	// Disconnecting an unconnected pair is a no-op
	req.NoError(repository.Disconnect("alice", "bob"))
}

func Test_Connection_InvalidPairs(t *testing.T) {
	req := require.New(t)
	repository := NewConnectionRepository(newTestDB(t))

	req.ErrorIs(repository.Connect("alice", "alice"), errors.ErrSelfPair)
	req.ErrorIs(repository.Connect("", "bob"), errors.ErrEmptyIdentity)

	_, err := repository.IsConnected("alice", "alice")
	req.ErrorIs(err, errors.ErrSelfPair)
}
