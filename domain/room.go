package domain

import (
	"strings"

	"doclink/errors"
)

// RoomID is the derived identifier of a two-identity channel. It is never
// stored: the same pair always yields the same id, computed on either side.
type RoomID string

const roomPrefix = "chat_"

// NewRoomID derives the shared room id for two identities:
// "chat_<lower>_<higher>" with the identities sorted lexicographically.
// Clients compute the same string to join a room pre-emptively, so the
// format is part of the wire contract and must stay bit-exact.
//
// Identities are opaque user ids (UUIDs in this deployment) and must not
// contain the "_" separator.
func NewRoomID(a, b string) (RoomID, error) {
	if a == "" || b == "" {
		return "", errors.ErrEmptyIdentity
	}
	if a == b {
		return "", errors.ErrSelfPair
	}
	if a > b {
		a, b = b, a
	}
	return RoomID(roomPrefix + a + "_" + b), nil
}

// Contains reports whether identity is one of the room's two participants.
func (r RoomID) Contains(identity string) bool {
	if identity == "" {
		return false
	}
	body, ok := strings.CutPrefix(string(r), roomPrefix)
	if !ok {
		return false
	}
	return strings.HasPrefix(body, identity+"_") || strings.HasSuffix(body, "_"+identity)
}

// Partner returns the other participant of the room, relative to identity.
func (r RoomID) Partner(identity string) (string, bool) {
	body, ok := strings.CutPrefix(string(r), roomPrefix)
	if !ok {
		return "", false
	}
	if rest, found := strings.CutPrefix(body, identity+"_"); found {
		return rest, true
	}
	if rest, found := strings.CutSuffix(body, "_"+identity); found {
		return rest, true
	}
	return "", false
}
